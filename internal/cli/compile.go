package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	QueryOptions
	Dump bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a query document to SQL",
		Long: `Compile a YAML or JSON query document (or URL-style parameters) against a
schema and print the SQL with its ordered parameters.`,
		Example: `  critc compile -s schema.yaml -q report.yaml
  critc compile -s schema.yaml --params 'from=book&Title=like.War*' --adapter mysql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query document path, - for stdin")
	cmd.Flags().StringVarP(&opts.Params, "params", "p", "", "query as URL parameters")
	cmd.Flags().BoolVar(&opts.Dump, "dump", false, "dump parameter descriptors")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command) error {
	c, err := opts.build(&opts.QueryOptions, cmd.InOrStdin())
	if err != nil {
		return err
	}
	stmt, err := c.Compile()
	if err != nil {
		return err
	}
	slog.Debug("compiled", "adapter", c.Adapter().Name(), "params", len(stmt.Params))
	return printStatement(cmd.OutOrStdout(), opts.Format, c.Adapter().Name(), stmt, opts.Dump)
}
