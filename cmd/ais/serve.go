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
	"github.com/webrtc-relay/trustcore/internal/httpapi"
	"github.com/webrtc-relay/trustcore/internal/httpclient"
	"github.com/webrtc-relay/trustcore/internal/issuer"
	"github.com/webrtc-relay/trustcore/internal/ksclient"
	"github.com/webrtc-relay/trustcore/internal/logging"
	"github.com/webrtc-relay/trustcore/internal/pkcache"
	"github.com/webrtc-relay/trustcore/internal/procrun"
	"github.com/webrtc-relay/trustcore/internal/snowflake"
	"github.com/webrtc-relay/trustcore/internal/store"
)

func commandServe() *cobra.Command {
	return &cobra.Command{
		Use:     "serve [flags] [config file]",
		Short:   "Launch the Actor Identity Issuer",
		Example: "ais serve config.yaml",
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
	if c.KS.Endpoint == "" {
		return fmt.Errorf("invalid config:\n\tno ks.endpoint specified in config file")
	}

	logger, err := logging.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}

	secret, err := c.DecodedSecret()
	if err != nil {
		return err
	}

	// AIS persists no key material of its own; it only reads the shared
	// realm/ACL tables (spec §6.4 shared schema), so kek is never set here.
	sqlStore, err := store.Open(store.Config{DSN: c.DB.DSN}, nil, c.Auth.ClockSkew(), logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %v", err)
	}
	defer sqlStore.Close()

	ksHTTP, err := httpclient.New(c.KS.RootCAs, c.KS.InsecureSkipVerify)
	if err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}

	ksc := &ksclient.Client{
		Endpoint: c.KS.Endpoint,
		NodeID:   c.NodeID,
		Secret:   secret,
		HTTP:     ksHTTP,
		Timeout:  c.KS.Timeout(),
	}

	keyCache := pkcache.New(ksc, logger)

	allocator := snowflake.New(c.AIS.WorkerID)

	iss := &issuer.Issuer{
		Realms:    sqlStore.Realms,
		Keys:      keyCache,
		Allocator: allocator,
		Config: issuer.Config{
			TokenTTL:                       c.AIS.TokenTTL(),
			SignalingHeartbeatIntervalSecs: c.AIS.SignalingHeartbeatIntervalSecs,
		},
	}

	handler := &httpapi.AISHandler{Issuer: iss}
	router := httpapi.NewAISRouter(handler, logger, c.AIS.AllowedOrigins...)

	var gr run.Group

	procrun.Background(&gr, keyCache.Run)

	srv := &http.Server{Addr: c.Listen, Handler: router}
	defer srv.Close()
	if err := procrun.Server(&gr, "http", srv, logger); err != nil {
		return err
	}

	if c.TelemetryListen != "" {
		healthChecker := gosundheit.New()
		healthChecker.RegisterCheck(&gosundheit.Config{
			Check: &checks.CustomCheck{
				CheckName: "public_key_cache",
				CheckFunc: func(ctx context.Context) (interface{}, error) {
					_, _, err := keyCache.GetActive(ctx)
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
