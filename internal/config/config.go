// Package config defines the configuration surface the core consumes
// (spec §6.5), loaded from YAML via ghodss/yaml the way cmd/dex/config.go
// loads dex's top-level Config.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ghodss/yaml"
)

// Config is the top-level configuration shared by the ks, ais, and
// turnauth-check binaries (spec §6.5).
type Config struct {
	// SharedSecret is this node's HMAC key for the auth envelope (spec §3,
	// §6.5: "bytes, ≥16. Identical on all communicating parties for a
	// given role"). Base64-encoded in the config file.
	SharedSecret string `json:"shared_secret"`

	// NodeID identifies this process as an envelope caller/callee.
	NodeID string `json:"node_id"`

	DB   DBConfig   `json:"db"`
	KS   KSConfig   `json:"ks"`
	AIS  AISConfig  `json:"ais"`
	Auth AuthConfig `json:"auth"`
	Turn TurnConfig `json:"turn"`

	Listen string `json:"listen"`

	// TelemetryListen, if set, serves the go-sundheit health checker
	// (distinct from the KS's own unauthenticated health() RPC) the way
	// cmd/dex/serve.go's c.Telemetry.HTTP does.
	TelemetryListen string `json:"telemetry_listen"`

	// Log follows cmd/dex/logger.go's level/format pair.
	Log LogConfig `json:"log"`

	// KEKKey, if set, is base64-encoded kek.KeySize bytes enabling
	// encryption-at-rest for secret_key (spec §9 open question 3).
	KEKKey string `json:"kek_key"`
}

// LogConfig mirrors cmd/dex/logger.go's newLogger(level, format) inputs.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DBConfig names the database paths the core persists to (spec §6.4,
// §6.5: "Database paths").
type DBConfig struct {
	DSN string `json:"dsn"`
}

// KSConfig is the subset of spec §6.5 the KS client/server consult.
type KSConfig struct {
	Endpoint       string `json:"endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	KeyTTLSeconds  int64  `json:"key_ttl_seconds"`
	WorkerID       uint32 `json:"worker_id"`

	// AllowNeverExpiringKeys opts into expires_at=0 (spec §9 open question
	// 1: forbidden by default).
	AllowNeverExpiringKeys bool `json:"allow_never_expiring_keys"`

	// RootCAs and InsecureSkipVerify configure the TLS posture of outbound
	// calls to Endpoint, following cmd/dex's client-side TLS flags.
	RootCAs            []string `json:"root_cas"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify"`
}

// AISConfig is the subset of spec §6.5 the Issuer consults.
type AISConfig struct {
	TokenTTLSeconds                int64  `json:"token_ttl_seconds"`
	SignalingHeartbeatIntervalSecs uint32 `json:"signaling_heartbeat_interval_secs"`
	WorkerID                       uint32 `json:"worker_id"`

	// AllowedOrigins enables CORS on /allocate the way cmd/dex/config.go's
	// Web.AllowedOrigins does for the discovery/token endpoints, for
	// browser-hosted provisioning UIs that call allocate directly.
	AllowedOrigins []string `json:"allowed_origins"`
}

// AuthConfig is spec §6.5's auth.max_clock_skew_secs.
type AuthConfig struct {
	MaxClockSkewSecs int64 `json:"max_clock_skew_secs"`
}

// TurnConfig is spec §6.5's turn.realm.
type TurnConfig struct {
	Realm string `json:"realm"`
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %v", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %v", path, err)
	}
	return c, nil
}

// DecodedSecret base64-decodes SharedSecret.
func (c Config) DecodedSecret() ([]byte, error) {
	return base64.StdEncoding.DecodeString(c.SharedSecret)
}

// DecodedKEKKey base64-decodes KEKKey. Returns (nil, nil) when KEKKey is
// unset: encryption-at-rest is opt-in (spec §9 open question 3).
func (c Config) DecodedKEKKey() ([]byte, error) {
	if c.KEKKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.KEKKey)
	if err != nil {
		return nil, fmt.Errorf("config: kek_key is not valid base64: %v", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("config: kek_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Validate checks the config for the invariants the core depends on,
// following cmd/dex/config.go's "collect checks, report all failures at
// once" idiom.
func (c Config) Validate() error {
	secret, err := c.DecodedSecret()
	checks := []struct {
		bad    bool
		errMsg string
	}{
		{c.NodeID == "", "no node_id specified in config file"},
		{c.SharedSecret == "", "no shared_secret specified in config file"},
		{err != nil, "shared_secret is not valid base64"},
		{err == nil && len(secret) < 16, "shared_secret must decode to at least 16 bytes"},
		{c.DB.DSN == "", "no db.dsn specified in config file"},
		{c.Listen == "", "no listen address specified in config file"},
	}

	var msgs []string
	for _, chk := range checks {
		if chk.bad {
			msgs = append(msgs, chk.errMsg)
		}
	}
	if len(msgs) != 0 {
		return fmt.Errorf("invalid config:\n\t%s", strings.Join(msgs, "\n\t"))
	}
	return nil
}

func (c AuthConfig) ClockSkew() time.Duration {
	if c.MaxClockSkewSecs == 0 {
		return 300 * time.Second
	}
	return time.Duration(c.MaxClockSkewSecs) * time.Second
}

func (c KSConfig) Timeout() time.Duration {
	if c.TimeoutSeconds == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c KSConfig) KeyTTL() time.Duration {
	return time.Duration(c.KeyTTLSeconds) * time.Second
}

func (c AISConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}
