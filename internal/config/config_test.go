package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrtc-relay/trustcore/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAndValidateSucceeds(t *testing.T) {
	path := writeConfig(t, `
node_id: ks-1
shared_secret: MDEyMzQ1Njc4OWFiY2RlZg==
db:
  dsn: ":memory:"
listen: ":8080"
`)

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.NoError(t, c.Validate())
}

func TestValidateCollectsAllFailures(t *testing.T) {
	var c config.Config
	err := c.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "no node_id specified")
	assert.Contains(t, msg, "no shared_secret specified")
	assert.Contains(t, msg, "no db.dsn specified")
	assert.Contains(t, msg, "no listen address specified")
}

func TestValidateRejectsShortSecret(t *testing.T) {
	c := config.Config{
		NodeID:       "ks-1",
		SharedSecret: base64.StdEncoding.EncodeToString([]byte("short")),
		DB:           config.DBConfig{DSN: ":memory:"},
		Listen:       ":8080",
	}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 16 bytes")
}

func TestValidateRejectsNonBase64Secret(t *testing.T) {
	c := config.Config{
		NodeID:       "ks-1",
		SharedSecret: "not base64!!",
		DB:           config.DBConfig{DSN: ":memory:"},
		Listen:       ":8080",
	}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid base64")
}

func TestDecodedKEKKeyUnsetReturnsNil(t *testing.T) {
	var c config.Config
	key, err := c.DecodedKEKKey()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestDecodedKEKKeyValidatesLength(t *testing.T) {
	c := config.Config{KEKKey: base64.StdEncoding.EncodeToString([]byte("too short"))}
	_, err := c.DecodedKEKKey()
	assert.Error(t, err)

	c = config.Config{KEKKey: base64.StdEncoding.EncodeToString(make([]byte, 32))}
	key, err := c.DecodedKEKKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestAuthConfigDefaultClockSkew(t *testing.T) {
	var a config.AuthConfig
	assert.Equal(t, 300, int(a.ClockSkew().Seconds()))
}

func TestKSConfigDefaultTimeout(t *testing.T) {
	var k config.KSConfig
	assert.Equal(t, 10, int(k.Timeout().Seconds()))
}
