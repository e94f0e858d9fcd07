// Package cli implements the critc command line.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/smhg/criteria/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	NoColor     bool
	Schema      string // schema YAML path
	Adapter     string
	DatabaseURL string

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the critc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "critc",
		Short: "critc - compile and run criteria queries",
		Long: `Compile declarative query documents into SQL for PostgreSQL, MySQL or SQLite,
run them, or serve the compiler over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVarP(&opts.Schema, "schema", "s", "", "schema YAML file (default $CRITERIA_SCHEMA)")
	cmd.PersistentFlags().StringVar(&opts.Adapter, "adapter", "", "SQL dialect: pgsql, mysql or sqlite (default $CRITERIA_ADAPTER)")
	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "db", "", "database URL or DSN (default $DATABASE_URL)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewIntrospectCommand(opts))

	return cmd
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}
	if o.NoColor {
		color.NoColor = true
	}

	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	o.cfg = cfg
	if o.Schema == "" {
		o.Schema = cfg.SchemaPath
	}
	if o.DatabaseURL == "" {
		o.DatabaseURL = cfg.DatabaseURL
	}
	return nil
}

// config returns the loaded configuration, loading it when a command runs without the root.
func (o *RootOptions) config() *config.Config {
	if o.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			slog.Warn("load config", "error", err)
			cfg = &config.Config{Adapter: "pgsql", Port: "8080"}
		}
		o.cfg = cfg
	}
	return o.cfg
}
