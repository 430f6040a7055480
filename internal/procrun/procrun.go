// Package procrun wires an http.Server into an oklog/run.Group with graceful
// shutdown, the pattern cmd/dex/serve.go's serverRunner implements once and
// every trustcore binary (ks, ais) reuses rather than re-deriving.
package procrun

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/oklog/run"
	"golang.org/x/net/netutil"
)

// ShutdownGrace bounds how long a listening server gets to drain in-flight
// requests once the run.Group starts tearing down (spec §5: "graceful
// shutdown drains in-flight requests, default 30s").
const ShutdownGrace = 30 * time.Second

// MaxConnections is the per-listener connection cap enforced via
// netutil.LimitListener, the concrete mechanism behind spec §5's "server's
// built-in connection limit".
const MaxConnections = 1000

// Server binds name/srv into gr: one goroutine serves on a freshly-opened,
// connection-limited listener, the paired interrupt function calls
// srv.Shutdown with ShutdownGrace. Mirrors serverRunner.RunAndShutdownGracefully.
func Server(gr *run.Group, name string, srv *http.Server, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listening (%s) on %s: %v", name, srv.Addr, err)
	}
	listener = netutil.LimitListener(listener, MaxConnections)

	gr.Add(func() error {
		logger.Info("listening", "server", name, "addr", srv.Addr)
		err := srv.Serve(listener)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}, func(err error) {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
		defer cancel()

		logger.Debug("starting graceful shutdown", "server", name)
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "server", name, "error", err)
		}
	})
	return nil
}

// Background adds a goroutine governed only by ctx cancellation -- the shape
// the public-key cache refresher needs, run alongside the HTTP listeners in
// the same group. (The store sweeper is not run through here: store.Open
// starts it and closing the store stops it.)
func Background(gr *run.Group, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	gr.Add(func() error {
		fn(ctx)
		return nil
	}, func(error) {
		cancel()
	})
}
