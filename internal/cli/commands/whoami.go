package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user, plan tier and usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newStack()
			if err != nil {
				return err
			}

			st.controller.Start(cmd.Context())
			defer st.controller.Close()

			state := st.controller.State()
			if state.User == nil {
				return fmt.Errorf("not logged in. Run 'planforge login' first")
			}

			fmt.Printf("Email: %s\n", state.User.Email)
			if state.Profile == nil {
				fmt.Println("Profile: unavailable")
				return nil
			}

			fmt.Printf("Name:  %s\n", state.Profile.FullName)
			fmt.Printf("Role:  %s\n", state.Profile.Role)
			fmt.Printf("Tier:  %s\n", state.Profile.Tier)
			if state.Profile.Usage.Limit == -1 {
				fmt.Printf("Usage: %d this month (unlimited)\n", state.Profile.Usage.Used)
			} else {
				fmt.Printf("Usage: %d/%d this month (%d remaining)\n",
					state.Profile.Usage.Used, state.Profile.Usage.Limit, state.Profile.Usage.Remaining)
			}
			return nil
		},
	}
}
