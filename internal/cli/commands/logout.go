package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and discard the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newStack()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st.controller.Start(ctx)
			defer st.controller.Close()

			if err := st.controller.SignOut(ctx); err != nil {
				// The local session is gone either way; the provider-side
				// revocation failing is worth knowing but not fatal
				fmt.Printf("Warning: provider sign-out failed: %v\n", err)
			}

			fmt.Println("Logged out")
			return nil
		},
	}
}
