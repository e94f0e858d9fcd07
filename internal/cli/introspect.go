package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smhg/criteria/internal/db"
	"github.com/smhg/criteria/internal/schema"
)

// IntrospectOptions holds flags for the introspect command.
type IntrospectOptions struct {
	*RootOptions
	SchemaName string
	Output     string
}

// NewIntrospectCommand creates the introspect command.
func NewIntrospectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IntrospectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Write a schema file from a PostgreSQL catalog",
		Long: `Read tables, primary keys and foreign keys of a PostgreSQL schema and write
them as a schema YAML file usable with --schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntrospect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaName, "pg-schema", "public", "PostgreSQL schema to read")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (default stdout)")

	return cmd
}

func runIntrospect(opts *IntrospectOptions, cmd *cobra.Command) error {
	if opts.DatabaseURL == "" {
		return fmt.Errorf("no database: pass --db or set DATABASE_URL")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.NewPool(ctx, opts.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	dbMap, err := schema.LoadPostgres(ctx, pool, opts.SchemaName)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return schema.WriteYAML(w, dbMap)
}
