// Package ksclient is the outbound KS RPC client used by the Issuer's
// public-key cache and by a non-co-located Validator (spec §4.3, §4.6 step
// 3). Every call carries a freshly-signed auth envelope and a deadline,
// grounded on middleware/grpc/grpc.go's context.WithTimeout-wrapped
// outbound call pattern, adapted from gRPC interceptor to http.Client.
package ksclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/webrtc-relay/trustcore/internal/envelope"
	"github.com/webrtc-relay/trustcore/internal/wire"
)

// DefaultTimeout matches spec §5: "every outbound KS/AIS call has a
// deadline (default 10s)".
const DefaultTimeout = 10 * time.Second

// Client calls a remote KS's HTTP+JSON surface (spec §6.1).
type Client struct {
	Endpoint string
	NodeID   string
	Secret   []byte
	HTTP     *http.Client
	Timeout  time.Duration
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// FetchActiveKey implements pkcache.Fetcher by calling generate_key: the
// Issuer's role ("issuer") is permitted to generate_key but not
// get_secret_key (spec §9 open question 2), and generate_key is the only
// KS call that returns a fresh (key_id, public_key, expires_at) triple in
// one round trip (spec §4.3 refresh_if_stale).
func (c *Client) FetchActiveKey(ctx context.Context) (keyID uint32, publicKey []byte, expiresAt int64, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	env, err := envelope.Sign(c.Secret, c.NodeID, "generate_key", "", time.Now())
	if err != nil {
		return 0, nil, 0, err
	}

	body, err := json.Marshal(wire.GenerateKeyRequest{Envelope: env})
	if err != nil {
		return 0, nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/generate_key", bytes.NewReader(body))
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, nil, 0, decodeError(resp)
	}

	var out wire.GenerateKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, nil, 0, err
	}
	pub, err := base64.StdEncoding.DecodeString(out.PublicKey)
	if err != nil {
		return 0, nil, 0, err
	}
	return out.KeyID, pub, out.ExpiresAt, nil
}

// ResolveSecretKey implements validator.SecretResolver by calling
// get_secret_key (spec §4.6 step 3). tid is accepted for interface
// symmetry; the core's KS has no tenant partitioning.
func (c *Client) ResolveSecretKey(ctx context.Context, tid, keyID uint32) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	subject := strconv.FormatUint(uint64(keyID), 10)
	env, err := envelope.Sign(c.Secret, c.NodeID, "get_secret_key", subject, time.Now())
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wire.GetSecretKeyRequest{Envelope: env})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/get_secret_key/%d", c.Endpoint, keyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out wire.GetSecretKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(out.SecretKey)
}

func decodeError(resp *http.Response) error {
	var werr wire.Error
	if err := json.NewDecoder(resp.Body).Decode(&werr); err != nil {
		return fmt.Errorf("ksclient: unexpected status %d", resp.StatusCode)
	}
	return &werr
}
