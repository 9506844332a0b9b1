package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"accounts-backend/internal/database"
	"accounts-backend/internal/models"
)

const (
	nameFlag        = "name"
	descriptionFlag = "description"
)

func newRoleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles",
	}
	cmd.AddCommand(newRoleCreateCommand())
	cmd.AddCommand(newRoleListCommand())
	return cmd
}

func newRoleCreateCommand() *cobra.Command {
	flags := map[string]cobraflags.Flag{
		dsnFlag: dsnOption(),
		nameFlag: &cobraflags.StringFlag{
			Name:  nameFlag,
			Usage: "Role name, unique (required)",
		},
		descriptionFlag: &cobraflags.StringFlag{
			Name:  descriptionFlag,
			Usage: "Free-form description",
		},
	}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(flags, nameFlag); err != nil {
				return err
			}
			var description *string
			if d := flags[descriptionFlag].GetString(); d != "" {
				description = &d
			}

			return withStore(cmd.Context(), flags, func(ctx context.Context, s *database.Store) error {
				role, err := s.CreateRole(ctx, flags[nameFlag].GetString(), description)
				if err != nil {
					return err
				}
				s.RecordAudit(ctx, nil, models.AuditEntityRole, role.ID, models.AuditActionCreate, "created role "+role.Name+" from accountsctl")
				fmt.Fprintf(cmd.OutOrStdout(), "created role %q (id %d)\n", role.Name, role.ID)
				return nil
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func newRoleListCommand() *cobra.Command {
	flags := map[string]cobraflags.Flag{dsnFlag: dsnOption()}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), flags, func(ctx context.Context, s *database.Store) error {
				roles, err := s.Roles(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, r := range roles {
					desc := ""
					if r.Description != nil {
						desc = *r.Description
					}
					fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.Name, desc)
				}
				return w.Flush()
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}
