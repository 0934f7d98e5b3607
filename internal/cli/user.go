package cli

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/database"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/services"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/session"
	"github.com/spf13/cobra"
)

// NewCreateUserCommand creates the create-user command. Dashboard accounts
// are provisioned here; the API has no sign-up route.
func NewCreateUserCommand(rootOpts *RootOptions) *cobra.Command {
	var password, role string

	cmd := &cobra.Command{
		Use:   "create-user <email>",
		Short: "Provision a dashboard account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.cfg
			if err := requireStore(cfg); err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("--password is required")
			}

			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}

			auth := services.NewAuthService(db, cfg, session.NewMemoryStore())
			user, err := auth.CreateUser(cmd.Context(), args[0], password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", "admin", "account role")
	return cmd
}
