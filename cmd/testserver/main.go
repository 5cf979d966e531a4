// testserver starts a snakebridge server whose engine echoes every payload
// after a fixed delay. Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seantiz/snakebridge/internal/api"
	"github.com/seantiz/snakebridge/internal/bridge"
	"github.com/seantiz/snakebridge/internal/engine"
	"github.com/seantiz/snakebridge/internal/store"
)

// slowEcho answers like engine.Echo after delay.
type slowEcho struct {
	engine.Echo
	delay time.Duration
}

func (s slowEcho) Start(ctx context.Context, payload []byte) ([]byte, error) {
	s.wait(ctx)
	return payload, nil
}

func (s slowEcho) Move(ctx context.Context, payload []byte) ([]byte, error) {
	s.wait(ctx)
	return payload, nil
}

func (s slowEcho) wait(ctx context.Context) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
}

func main() {
	addr := ":8080"
	if v := os.Getenv("SNAKEBRIDGE_LISTEN_ADDR"); v != "" {
		addr = v
	}
	delay := 100 * time.Millisecond
	if v := os.Getenv("TESTSERVER_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid TESTSERVER_DELAY: %v", err)
		}
		delay = d
	}

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	eng := engine.New(slowEcho{delay: delay}, logger, engine.DefaultQueueSize)
	srv := api.NewServer(addr, bridge.New(eng, logger), db, logger, api.Options{
		CallTimeout: 2 * time.Second,
		Ready:       eng.Ready,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("testserver: starting", "addr", addr, "delay", delay.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
