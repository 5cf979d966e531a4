package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seantiz/snakebridge/internal/api"
	"github.com/seantiz/snakebridge/internal/bridge"
	"github.com/seantiz/snakebridge/internal/config"
	"github.com/seantiz/snakebridge/internal/engine"
	"github.com/seantiz/snakebridge/internal/store"
	"github.com/seantiz/snakebridge/internal/telemetry"
)

const (
	serviceName         = "snakebridge"
	tracingFlushTimeout = 5 * time.Second
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and game engine",
		Long: `Run the HTTP server and game engine until interrupted.

Configuration comes from SNAKEBRIDGE_* environment variables and an optional
.env file in the working directory.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runServe(ctx context.Context, logOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(logOut, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Endpoint:    cfg.OTELEndpoint,
		Enabled:     cfg.OTELEnabled,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), tracingFlushTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("flush traces", "error", err)
		}
	}()

	decider, err := engine.DefaultRegistry().Resolve(cfg.Decider)
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	logger.Info("snakebridge: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"decider", cfg.Decider,
		"call_timeout", cfg.CallTimeout.String(),
	)

	eng := engine.New(decider, logger, cfg.EngineQueue)
	srv := api.NewServer(cfg.ListenAddr, bridge.New(eng, logger), db, logger, api.Options{
		CallTimeout: cfg.CallTimeout,
		Ready:       eng.Ready,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	return g.Wait()
}
