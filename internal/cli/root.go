package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planforge-dev/planforge/internal/cli/commands"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "planforge",
	Short: "Planforge - Turn product ideas into build packages",
	Long: `Planforge CLI - Manage your Planforge account from the terminal.

Sessions are restored from the OS keychain between invocations and refreshed
against the identity provider automatically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("planforge version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
}

// Execute runs the root command
func Execute(v string) {
	version = v
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
