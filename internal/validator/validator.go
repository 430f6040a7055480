// Package validator implements the TURN authenticator: parse the sealed
// credential out of a TURN username, resolve the matching secret key,
// decrypt, and derive the RFC 5766 long-term-credential integrity key
// (spec §4.6).
package validator

import (
	"context"
	"crypto/md5" //nolint:gosec // RFC 5766 mandates MD5 for the long-term credential key.
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/webrtc-relay/trustcore/internal/ecies"
	"github.com/webrtc-relay/trustcore/internal/wire"
)

// CacheCapacity bounds the LRU's memory use regardless of request rate
// (spec §4.6, §5: "a hard capacity that bounds memory").
const CacheCapacity = 1000

// SecretResolver fetches the secret key for (tid, key_id), either directly
// against a co-located KeyStore or via an authenticated KS get_secret_key
// call (spec §4.6 step 3).
type SecretResolver interface {
	ResolveSecretKey(ctx context.Context, tid, keyID uint32) ([]byte, error)
}

// Authenticator derives TURN integrity keys from sealed credentials (spec
// §4.6). The LRU is mutex-protected internally by the hashicorp/golang-lru
// implementation; contention is acceptable since each op is O(1) (spec §5).
type Authenticator struct {
	Secrets SecretResolver
	Now     func() time.Time

	cache *lru.Cache[string, []byte]
}

// New returns an Authenticator with the spec's default cache capacity.
func New(secrets SecretResolver) (*Authenticator, error) {
	cache, err := lru.New[string, []byte](CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("validator: building lru cache: %v", err)
	}
	return &Authenticator{Secrets: secrets, Now: time.Now, cache: cache}, nil
}

// Sentinel errors for the kinds spec §4.6/§7 assigns this path.
var (
	ErrInvalidUsername = errors.New("validator: invalid username")
	ErrDecryptFailed    = errors.New("validator: credential decrypt failed")
	ErrExpired          = errors.New("validator: credential expired")
)

// Authenticate implements spec §4.6's algorithm. realm is the TURN realm
// string; username is the raw TURN username field.
func (a *Authenticator) Authenticate(ctx context.Context, username, realmStr string) ([]byte, error) {
	cacheKey := cacheKeyFor(username, realmStr)
	if key, ok := a.cache.Get(cacheKey); ok {
		return key, nil
	}

	var claims wire.TurnUsername
	if err := json.Unmarshal([]byte(username), &claims); err != nil {
		return nil, ErrInvalidUsername
	}

	ct, err := base64.URLEncoding.DecodeString(claims.Ct)
	if err != nil {
		return nil, ErrInvalidUsername
	}

	secret, err := a.Secrets.ResolveSecretKey(ctx, claims.Tid, claims.KeyID)
	if err != nil {
		return nil, fmt.Errorf("validator: resolve secret key: %w", err)
	}

	plaintext, err := ecies.Open(secret, ct)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	parsedClaims, err := wire.UnmarshalClaims(plaintext)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	if parsedClaims.ExpiresAt < now().Unix() {
		return nil, ErrExpired
	}

	integrityKey := deriveIntegrityKey(username, realmStr, parsedClaims.PSK)
	a.cache.Add(cacheKey, integrityKey)
	return integrityKey, nil
}

// deriveIntegrityKey computes the RFC 5766 long-term credential key:
// MD5(username ':' realm ':' psk). MUST remain MD5 for protocol
// conformance (spec §4.6 step 7) -- not a design choice a library could
// improve on.
func deriveIntegrityKey(username, realmStr string, psk []byte) []byte {
	h := md5.New() //nolint:gosec
	h.Write([]byte(username))
	h.Write([]byte(":"))
	h.Write([]byte(realmStr))
	h.Write([]byte(":"))
	h.Write(psk)
	return h.Sum(nil)
}

func cacheKeyFor(username, realmStr string) string {
	h := md5.New() //nolint:gosec
	h.Write([]byte(username))
	h.Write([]byte(realmStr))
	return string(h.Sum(nil))
}
