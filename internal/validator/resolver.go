package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/webrtc-relay/trustcore/internal/keystore"
)

// LocalResolver resolves secrets directly against a co-located KeyStore,
// bypassing the network round-trip the envelope-authenticated path needs
// (spec §4.6 step 3: "If the validator is the KS process, use
// KeyStore.get_secret_key directly"). tid is accepted for interface
// symmetry with the remote resolver but unused: the core's KeyStore has
// no tenant partitioning.
type LocalResolver struct {
	Keys keystore.Store
}

var _ SecretResolver = (*LocalResolver)(nil)

func (r *LocalResolver) ResolveSecretKey(ctx context.Context, tid, keyID uint32) ([]byte, error) {
	rec, err := r.Keys.Get(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if !rec.Usable(time.Now()) {
		return nil, fmt.Errorf("validator: key %d has expired", keyID)
	}
	return rec.SecretKey, nil
}
