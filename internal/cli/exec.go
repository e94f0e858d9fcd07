package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smhg/criteria/internal/adapter"
	"github.com/smhg/criteria/internal/db"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	QueryOptions
	Count bool
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Compile a query document and run it",
		Long: `Compile a query document and run it against the database. PostgreSQL runs
through a pgx pool; MySQL and SQLite through database/sql.`,
		Example: `  critc exec -s schema.yaml -q report.yaml --db postgres://localhost/shop
  critc exec -s schema.yaml --adapter sqlite --db ./shop.db --params 'from=book' --count`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query document path, - for stdin")
	cmd.Flags().StringVarP(&opts.Params, "params", "p", "", "query as URL parameters")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the row count instead of the rows")

	return cmd
}

func runExec(opts *ExecOptions, cmd *cobra.Command) error {
	c, err := opts.build(&opts.QueryOptions, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if opts.Count {
		c = c.Count()
	}
	stmt, err := c.Compile()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runner, err := openRunner(ctx, c.Adapter().Name(), opts.DatabaseURL)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := runner.Rows(ctx, stmt)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), opts.Format, res)
}

// openRunner connects with pgx for PostgreSQL and with database/sql otherwise.
func openRunner(ctx context.Context, adapterName, dsn string) (db.Runner, error) {
	if dsn == "" {
		return nil, fmt.Errorf("no database: pass --db or set DATABASE_URL")
	}
	a, err := adapter.ForName(adapterName)
	if err != nil {
		return nil, err
	}
	if a.Name() == "pgsql" {
		pool, err := db.NewPool(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &db.PgRunner{Pool: pool}, nil
	}
	driver, err := db.DriverFor(a.Name())
	if err != nil {
		return nil, err
	}
	r, err := db.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	return r, nil
}
