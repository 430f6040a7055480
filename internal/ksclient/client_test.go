package ksclient_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrtc-relay/trustcore/internal/ksclient"
	"github.com/webrtc-relay/trustcore/internal/wire"
)

func TestFetchActiveKeySucceeds(t *testing.T) {
	pub := []byte("0123456789012345678901234567890XY")[:33]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate_key", r.URL.Path)
		var req wire.GenerateKeyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "node-a", req.Envelope.NodeID)

		json.NewEncoder(w).Encode(wire.GenerateKeyResponse{
			KeyID:     7,
			PublicKey: base64.StdEncoding.EncodeToString(pub),
			ExpiresAt: 1_700_003_600,
		})
	}))
	defer srv.Close()

	c := &ksclient.Client{Endpoint: srv.URL, NodeID: "node-a", Secret: []byte("0123456789abcdef")}
	keyID, gotPub, expiresAt, err := c.FetchActiveKey(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, keyID)
	assert.Equal(t, pub, gotPub)
	assert.EqualValues(t, 1_700_003_600, expiresAt)
}

func TestFetchActiveKeyPropagatesKSError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(wire.Error{Code: wire.KindForbidden, Message: "not allowed"})
	}))
	defer srv.Close()

	c := &ksclient.Client{Endpoint: srv.URL, NodeID: "node-a", Secret: []byte("0123456789abcdef")}
	_, _, _, err := c.FetchActiveKey(context.Background())
	require.Error(t, err)
	var werr *wire.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, wire.KindForbidden, werr.Code)
}

func TestResolveSecretKeySucceeds(t *testing.T) {
	secret := []byte("supersecretkeybytes1234")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get_secret_key/9", r.URL.Path)
		json.NewEncoder(w).Encode(wire.GetSecretKeyResponse{
			SecretKey: base64.StdEncoding.EncodeToString(secret),
		})
	}))
	defer srv.Close()

	c := &ksclient.Client{Endpoint: srv.URL, NodeID: "node-a", Secret: []byte("0123456789abcdef")}
	got, err := c.ResolveSecretKey(context.Background(), 0, 9)
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestResolveSecretKeyPropagatesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(wire.Error{Code: wire.KindNotFound, Message: "no such key"})
	}))
	defer srv.Close()

	c := &ksclient.Client{Endpoint: srv.URL, NodeID: "node-a", Secret: []byte("0123456789abcdef")}
	_, err := c.ResolveSecretKey(context.Background(), 0, 42)
	require.Error(t, err)
	var werr *wire.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, wire.KindNotFound, werr.Code)
}
