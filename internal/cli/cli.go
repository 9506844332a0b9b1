// Package cli implements accountsctl, the operator tool for provisioning roles and
// accounts outside the HTTP API.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"accounts-backend/internal/database"
)

const dsnFlag = "dsn"

func dsnOption() *cobraflags.StringFlag {
	return &cobraflags.StringFlag{
		Name:  dsnFlag,
		Value: os.Getenv("DB_DSN"),
		Usage: `Database DSN; "sqlite:<path>" selects SQLite (default $DB_DSN)`,
	}
}

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "accountsctl",
		Short:         "Manage the accounts database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBootstrapCommand())
	root.AddCommand(newRoleCommand())
	root.AddCommand(newUserCommand())
	return root
}

func newBootstrapCommand() *cobra.Command {
	flags := map[string]cobraflags.Flag{dsnFlag: dsnOption()}

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the schema and seed the default role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), flags, func(ctx context.Context, s *database.Store) error {
				if err := database.Bootstrap(ctx, s.DB()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
				return nil
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

// withStore opens the database named by the dsn flag for the duration of fn.
func withStore(ctx context.Context, flags map[string]cobraflags.Flag, fn func(context.Context, *database.Store) error) error {
	dsn := flags[dsnFlag].GetString()
	if dsn == "" {
		return fmt.Errorf("--%s is required (or set DB_DSN)", dsnFlag)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.Open(dsn)
	if err != nil {
		return err
	}
	defer database.Close(db)

	return fn(ctx, database.NewStore(db))
}

func requireFlags(flags map[string]cobraflags.Flag, names ...string) error {
	for _, name := range names {
		if flags[name].GetString() == "" {
			return fmt.Errorf("--%s is required", name)
		}
	}
	return nil
}
