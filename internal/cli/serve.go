package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/api"
	"github.com/rileyhilliard/loadwatch/internal/config"
	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/logger"
	"github.com/rileyhilliard/loadwatch/internal/scheduler"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/telemetry"
	"github.com/rileyhilliard/loadwatch/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(e *env) *cobra.Command {
	var noAPI bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collection scheduler and HTTP API",
		Long: `Collect from every registered host each collection.interval, prune samples
older than retention.window, and serve the HTTP API on api.listen.

Runs until interrupted. SIGINT or SIGTERM stops the ticker, waits for the
cycle in flight, and drains open HTTP requests.

Examples:
  loadwatch serve
  loadwatch serve --no-api
  LOADWATCH_COLLECTION_INTERVAL=60s loadwatch serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return e.serve(ctx, cmd.OutOrStdout(), noAPI)
		},
	}
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "collect only; don't start the HTTP API")
	return cmd
}

func (e *env) serve(ctx context.Context, out io.Writer, noAPI bool) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	log, err := e.newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer logger.Sync(log)

	// Without a store there is nothing to collect into.
	st, err := e.openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	metrics := telemetry.New()
	sched := scheduler.New(st, e.newCollector(cfg), scheduler.Options{
		Interval:        cfg.Collection.Interval,
		RetentionWindow: cfg.Retention.Window,
		Concurrency:     cfg.Collection.Concurrency,
		RunOnStart:      cfg.Collection.RunOnStart,
		Logger:          log,
		Metrics:         metrics,
		OnCycle:         e.deps.OnCycle,
	})

	var srv *api.Server
	var ln net.Listener
	if cfg.API.Enabled && !noAPI {
		ln, err = net.Listen("tcp", cfg.API.Listen)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot listen on "+cfg.API.Listen,
				"Pick a free address with api.listen, or run with --no-api")
		}
		srv = api.New(cfg.API.Listen, st, api.Options{
			DefaultLimit: cfg.API.DefaultLimit,
			MaxLimit:     cfg.API.MaxLimit,
			Logger:       log.With("component", "api"),
			Metrics:      metrics,
			Version:      version,
		})
	}

	fmt.Fprint(out, ui.RenderHeader(serveHeader(cfg, ln)))

	g, gctx := errgroup.WithContext(ctx)
	// Shutdown goes through Stop so an in-flight cycle can finish.
	if err := sched.Start(context.WithoutCancel(gctx)); err != nil {
		if ln != nil {
			ln.Close()
		}
		return err
	}
	if srv != nil {
		g.Go(func() error { return srv.Serve(ln) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sched.Stop()
		if srv == nil {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func serveHeader(cfg *config.Config, ln net.Listener) ui.HeaderInfo {
	detail := "database " + cfg.Database.Path
	if ln != nil {
		detail += ", API http://" + ln.Addr().String()
	}
	return ui.HeaderInfo{
		Version: formatVersion(version),
		Tagline: fmt.Sprintf("collecting every %s, keeping %s", cfg.Collection.Interval, cfg.Retention.Window),
		Detail:  detail,
	}
}

// ensure the store satisfies both consumers serve wires it into
var (
	_ scheduler.Store = (*store.Store)(nil)
	_ api.Store       = (*store.Store)(nil)
)
