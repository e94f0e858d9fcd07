package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smhg/criteria/internal/db"
	"github.com/smhg/criteria/internal/handler"
	"github.com/smhg/criteria/internal/middleware"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr    string
	NoQuery bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiler over HTTP",
		Long: `Serve POST /compile, GET /compile, POST /query and GET /tables.
POST /query needs a database; pass --no-query to serve compilation only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default :$PORT)")
	cmd.Flags().BoolVar(&opts.NoQuery, "no-query", false, "do not connect to a database")

	return cmd
}

// newServer wires the handler and middleware. The returned runner is nil with --no-query.
func newServer(ctx context.Context, opts *ServeOptions) (*http.Server, db.Runner, error) {
	dbMap, err := opts.loadSchema()
	if err != nil {
		return nil, nil, err
	}

	var runner db.Runner
	if !opts.NoQuery {
		runner, err = openRunner(ctx, dbMap.Adapter, opts.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
	}

	mux := http.NewServeMux()
	handler.New(dbMap, runner).Routes(mux)

	addr := opts.Addr
	if addr == "" {
		addr = opts.config().Addr()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.Chain(mux, middleware.RequestID, middleware.Logging, middleware.Recovery, middleware.ContentType),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, runner, nil
}

func runServe(opts *ServeOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, runner, err := newServer(ctx, opts)
	if err != nil {
		return err
	}
	if runner != nil {
		defer runner.Close()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", "addr", srv.Addr, "query", runner != nil)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
