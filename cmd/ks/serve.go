package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	gosundheit "github.com/AppsFlyer/go-sundheit"
	"github.com/AppsFlyer/go-sundheit/checks"
	gosundheithttp "github.com/AppsFlyer/go-sundheit/http"
	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/webrtc-relay/trustcore/internal/config"
	"github.com/webrtc-relay/trustcore/internal/envelope"
	"github.com/webrtc-relay/trustcore/internal/httpapi"
	"github.com/webrtc-relay/trustcore/internal/keyserver"
	"github.com/webrtc-relay/trustcore/internal/logging"
	"github.com/webrtc-relay/trustcore/internal/procrun"
	"github.com/webrtc-relay/trustcore/internal/store"
)

func commandServe() *cobra.Command {
	return &cobra.Command{
		Use:     "serve [flags] [config file]",
		Short:   "Launch the Key Server",
		Example: "ks serve config.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return runServe(args[0])
		},
	}
}

func runServe(configFile string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}

	kekKey, err := c.DecodedKEKKey()
	if err != nil {
		return err
	}

	sqlStore, err := store.Open(store.Config{DSN: c.DB.DSN}, kekKey, c.Auth.ClockSkew(), logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %v", err)
	}
	defer sqlStore.Close()

	verifier := envelope.NewVerifier(sqlStore.ACL, sqlStore.Nonces)
	verifier.ClockSkew = c.Auth.ClockSkew()

	ksServer := &keyserver.Server{
		Keys:     sqlStore.Keys,
		Verifier: verifier,
		Roles:    sqlStore.ACL,
		Config: keyserver.Config{
			KeyTTL:                 c.KS.KeyTTL(),
			AllowNeverExpiringKeys: c.KS.AllowNeverExpiringKeys,
		},
	}

	handler := &httpapi.KSHandler{Server: ksServer, Version: Version}
	router := httpapi.NewKSRouter(handler, logger)

	logger.Info("config", "node_id", c.NodeID, "listen", c.Listen)

	var gr run.Group

	srv := &http.Server{Addr: c.Listen, Handler: router}
	defer srv.Close()
	if err := procrun.Server(&gr, "http", srv, logger); err != nil {
		return err
	}

	if c.TelemetryListen != "" {
		healthChecker := gosundheit.New()
		healthChecker.RegisterCheck(&gosundheit.Config{
			Check: &checks.CustomCheck{
				CheckName: "keystore",
				CheckFunc: func(ctx context.Context) (interface{}, error) {
					_, err := sqlStore.Keys.Count(ctx)
					return nil, err
				},
			},
			ExecutionPeriod:  15 * time.Second,
			InitiallyPassing: true,
		})

		telemetryRouter := http.NewServeMux()
		telemetryRouter.Handle("/healthz", gosundheithttp.HandleHealthJSON(healthChecker))

		telemetrySrv := &http.Server{Addr: c.TelemetryListen, Handler: telemetryRouter}
		defer telemetrySrv.Close()
		if err := procrun.Server(&gr, "telemetry", telemetrySrv, logger); err != nil {
			return err
		}
	}

	gr.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))
	if err := gr.Run(); err != nil {
		if _, ok := err.(run.SignalError); !ok {
			return fmt.Errorf("run groups: %w", err)
		}
		logger.Info(fmt.Sprintf("%v, shutdown now", err))
	}
	return nil
}
