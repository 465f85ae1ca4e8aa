package cli

import (
	"fmt"

	"shrimpy/database"
	"shrimpy/models"
	"shrimpy/service"

	"github.com/spf13/cobra"
)

func newRolesCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage user roles",
	}

	run := func(grant bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			email, role := args[0], models.RoleAdmin
			if len(args) > 1 {
				role = args[1]
			}

			cfg, err := bootstrap(*configFile)
			if err != nil {
				return err
			}
			auth := service.NewAuthService(database.DB, cfg, nil)

			if grant {
				err = auth.GrantRole(cmd.Context(), email, role)
			} else {
				err = auth.RevokeRole(cmd.Context(), email, role)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", email, err)
			}

			verb := "granted"
			if !grant {
				verb = "revoked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s role %q for %s\n", verb, role, email)
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "grant <email> [role]",
			Short: "Grant a role (default admin)",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  run(true),
		},
		&cobra.Command{
			Use:   "revoke <email> [role]",
			Short: "Revoke a role (default admin)",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  run(false),
		},
	)
	return cmd
}
