// Command turnauth-check exercises internal/validator directly against a
// running Key Server, the way cmd/example-app exercises an OpenID Connect
// provider from outside the server process: a small flag-driven client, no
// subcommands.
package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/webrtc-relay/trustcore/internal/config"
	"github.com/webrtc-relay/trustcore/internal/httpclient"
	"github.com/webrtc-relay/trustcore/internal/ksclient"
	"github.com/webrtc-relay/trustcore/internal/validator"
)

func cmd() *cobra.Command {
	var (
		configFile string
		username   string
	)

	c := &cobra.Command{
		Use:   "turnauth-check --config config.yaml --username <turn-username>",
		Short: "Decode a TURN username and print the derived long-term credential key",
		Long:  "",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.New("surplus arguments provided")
			}
			if configFile == "" {
				return errors.New("--config is required")
			}
			if username == "" {
				return errors.New("--username is required")
			}
			return run(configFile, username)
		},
	}

	flags := c.Flags()
	flags.StringVar(&configFile, "config", "", "Path to the node's YAML config file")
	flags.StringVar(&username, "username", "", "TURN username field to decode")

	return c
}

func run(configFile, username string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.KS.Endpoint == "" || c.Turn.Realm == "" {
		return fmt.Errorf("invalid config:\n\tboth ks.endpoint and turn.realm are required for this command")
	}

	secret, err := c.DecodedSecret()
	if err != nil {
		return err
	}

	ksHTTP, err := httpclient.New(c.KS.RootCAs, c.KS.InsecureSkipVerify)
	if err != nil {
		return fmt.Errorf("invalid config:\n\t%v", err)
	}

	resolver := &ksclient.Client{
		Endpoint: c.KS.Endpoint,
		NodeID:   c.NodeID,
		Secret:   secret,
		HTTP:     ksHTTP,
		Timeout:  c.KS.Timeout(),
	}

	auth, err := validator.New(resolver)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.KS.Timeout())
	defer cancel()

	start := time.Now()
	key, err := auth.Authenticate(ctx, username, c.Turn.Realm)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("FAIL (%v): %v\n", elapsed, err)
		return err
	}

	fmt.Printf("OK (%v)\n", elapsed)
	fmt.Printf("integrity_key(hex)=%s\n", hex.EncodeToString(key))
	fmt.Printf("integrity_key(base64)=%s\n", base64.StdEncoding.EncodeToString(key))
	return nil
}

func main() {
	if err := cmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
