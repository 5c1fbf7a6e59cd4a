package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the identity provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set PLANFORGE_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set PLANFORGE_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("PLANFORGE_EMAIL")
	}
	if password == "" {
		password = os.Getenv("PLANFORGE_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or PLANFORGE_EMAIL env var)")
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println() // New line after password input
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or PLANFORGE_PASSWORD env var)")
		}
	}

	st, err := newStack()
	if err != nil {
		return err
	}

	sess, err := st.identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if sess == nil {
		return fmt.Errorf("login failed: invalid email or password")
	}

	// Persist the pair so the next invocation restores the session
	st.cache.Save(sess)

	fmt.Printf("Logged in as %s\n", sess.User.Email)
	return nil
}
