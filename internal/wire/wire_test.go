package wire_test

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrtc-relay/trustcore/internal/wire"
)

func TestClaimsRoundTrip(t *testing.T) {
	claims := wire.Claims{
		ActorID:   0xDEADBEEFCAFE,
		RealmID:   42,
		IssuedAt:  1_700_000_000,
		ExpiresAt: 1_700_003_600,
		PSK:       []byte("0123456789abcdef0123456789abcdef"),
	}

	out, err := wire.UnmarshalClaims(wire.MarshalClaims(claims))
	require.NoError(t, err)
	if diff := pretty.Compare(claims, out); diff != "" {
		t.Errorf("claims round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestClaimsRoundTripEmptyPSK(t *testing.T) {
	claims := wire.Claims{ActorID: 1, RealmID: 2, IssuedAt: 3, ExpiresAt: 4}

	out, err := wire.UnmarshalClaims(wire.MarshalClaims(claims))
	require.NoError(t, err)
	assert.Equal(t, claims.ActorID, out.ActorID)
	assert.Empty(t, out.PSK)
}

func TestAllocateRequestRoundTrip(t *testing.T) {
	req := wire.AllocateRequest{RealmID: 7, ActorType: wire.ActorType{Manufacturer: "acme", Name: "cam-1"}}

	out, err := wire.UnmarshalAllocateRequest(wire.MarshalAllocateRequest(req))
	require.NoError(t, err)
	assert.Equal(t, req, out)
}

func TestAllocateResponseRoundTripSuccess(t *testing.T) {
	resp := wire.AllocateResponse{Success: &wire.AllocateSuccess{
		ActorID:                        123456,
		Credential:                     []byte("credential-bytes"),
		PSK:                            []byte("0123456789abcdef0123456789abcdef"),
		SignalingHeartbeatIntervalSecs: 30,
	}}

	encoded, err := wire.MarshalAllocateResponse(resp)
	require.NoError(t, err)

	out, err := wire.UnmarshalAllocateResponse(encoded)
	require.NoError(t, err)
	if diff := pretty.Compare(resp, out); diff != "" {
		t.Errorf("allocate response round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAllocateResponseRoundTripFailure(t *testing.T) {
	resp := wire.AllocateResponse{Failure: &wire.AllocateFailure{Code: wire.KindForbidden, Message: "nope"}}

	encoded, err := wire.MarshalAllocateResponse(resp)
	require.NoError(t, err)

	out, err := wire.UnmarshalAllocateResponse(encoded)
	require.NoError(t, err)
	assert.Equal(t, resp, out)
}

func TestMarshalAllocateResponseRejectsEmptyOneOf(t *testing.T) {
	_, err := wire.MarshalAllocateResponse(wire.AllocateResponse{})
	assert.Error(t, err)
}

func TestCredentialRoundTrip(t *testing.T) {
	cred := wire.CredentialWire{KeyID: 9, Ciphertext: []byte("sealed-bytes")}

	out, err := wire.UnmarshalCredential(wire.MarshalCredential(cred))
	require.NoError(t, err)
	assert.Equal(t, cred, out)
}

func TestErrorKindHTTPStatus(t *testing.T) {
	cases := map[wire.ErrorKind]int{
		wire.KindInvalidSignature: 401,
		wire.KindNotFound:         404,
		wire.KindExpired:          410,
		wire.KindForbidden:        403,
		wire.KindTimeout:          504,
		wire.KindKsUnavailable:    503,
		wire.KindInternalError:    500,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), "kind=%s", kind)
	}
}
