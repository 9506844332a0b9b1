package cli

import (
	"context"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"accounts-backend/internal/database"
	"accounts-backend/internal/models"
	"accounts-backend/internal/security"
)

const (
	emailFlag     = "email"
	passwordFlag  = "password"
	firstNameFlag = "first-name"
	lastNameFlag  = "last-name"
	roleFlag      = "role"
)

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCommand())
	cmd.AddCommand(newUserActiveCommand("deactivate", false))
	cmd.AddCommand(newUserActiveCommand("reactivate", true))
	return cmd
}

func newUserCreateCommand() *cobra.Command {
	flags := map[string]cobraflags.Flag{
		dsnFlag:       dsnOption(),
		emailFlag:     &cobraflags.StringFlag{Name: emailFlag, Usage: "Login email (required)"},
		passwordFlag:  &cobraflags.StringFlag{Name: passwordFlag, Usage: "Initial password (required)"},
		firstNameFlag: &cobraflags.StringFlag{Name: firstNameFlag, Usage: "First name (required)"},
		lastNameFlag:  &cobraflags.StringFlag{Name: lastNameFlag, Usage: "Last name (required)"},
		roleFlag: &cobraflags.StringFlag{
			Name:  roleFlag,
			Value: models.DefaultRoleName,
			Usage: "Existing role name",
		},
	}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with its personal data",
		Example: `  accountsctl role create --name admin --description Administrador
  accountsctl user create --email ana@example.com --password s3cret! \
      --first-name Ana --last-name Gomez --role admin`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(flags, emailFlag, passwordFlag, firstNameFlag, lastNameFlag); err != nil {
				return err
			}
			hash, err := security.HashPassword(flags[passwordFlag].GetString())
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), flags, func(ctx context.Context, s *database.Store) error {
				user, err := s.RegisterUser(ctx, database.Registration{
					FirstName:    flags[firstNameFlag].GetString(),
					LastName:     flags[lastNameFlag].GetString(),
					Email:        flags[emailFlag].GetString(),
					PasswordHash: hash,
					RoleName:     flags[roleFlag].GetString(),
				})
				if err != nil {
					return err
				}
				s.RecordAudit(ctx, nil, models.AuditEntityUser, user.ID, models.AuditActionCreate, "created "+user.Email+" from accountsctl")
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, role %s)\n", user.Email, user.ID, user.Role.Name)
				return nil
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

// newUserActiveCommand builds "deactivate" and "reactivate". Deactivation also closes
// the account's refresh sessions.
func newUserActiveCommand(use string, active bool) *cobra.Command {
	flags := map[string]cobraflags.Flag{
		dsnFlag:   dsnOption(),
		emailFlag: &cobraflags.StringFlag{Name: emailFlag, Usage: "Login email (required)"},
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: use + " an account by email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(flags, emailFlag); err != nil {
				return err
			}

			return withStore(cmd.Context(), flags, func(ctx context.Context, s *database.Store) error {
				user, err := s.UserByEmail(ctx, flags[emailFlag].GetString())
				if err != nil {
					return err
				}

				action := models.AuditActionReactivate
				if active {
					err = s.ReactivateUser(ctx, user.ID)
				} else {
					action = models.AuditActionDeactivate
					if err = s.DeactivateUser(ctx, user.ID); err == nil {
						_, err = s.DisableUserSessions(ctx, user.ID)
					}
				}
				if err != nil {
					return err
				}

				s.RecordAudit(ctx, nil, models.AuditEntityUser, user.ID, action, action+" from accountsctl")
				fmt.Fprintf(cmd.OutOrStdout(), "%s: active=%t\n", user.Email, active)
				return nil
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}
