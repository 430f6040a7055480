package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Claims is the plaintext payload ECIES-sealed into a credential (spec §3).
// optional_psk carries the PSK the Issuer generated so the Validator can
// recover it from the sealed credential rather than the TURN username
// itself (spec §4.6 step 6 corrects the historical actor_id-as-PSK defect).
type Claims struct {
	ActorID   uint64
	RealmID   uint32
	IssuedAt  int64
	ExpiresAt int64
	PSK       []byte // 32 bytes, optional
}

// MarshalClaims encodes c for ECIES sealing.
func MarshalClaims(c Claims) []byte {
	var buf bytes.Buffer
	var b8 [8]byte
	binary.BigEndian.PutUint64(b8[:], c.ActorID)
	buf.Write(b8[:])

	var b4 [4]byte
	binary.BigEndian.PutUint32(b4[:], c.RealmID)
	buf.Write(b4[:])

	binary.BigEndian.PutUint64(b8[:], uint64(c.IssuedAt))
	buf.Write(b8[:])
	binary.BigEndian.PutUint64(b8[:], uint64(c.ExpiresAt))
	buf.Write(b8[:])

	putBytes(&buf, c.PSK)
	return buf.Bytes()
}

// UnmarshalClaims decodes what MarshalClaims produces.
func UnmarshalClaims(data []byte) (Claims, error) {
	r := bytes.NewReader(data)
	var b8 [8]byte
	if _, err := io.ReadFull(r, b8[:]); err != nil {
		return Claims{}, fmt.Errorf("wire: read actor_id: %v", err)
	}
	c := Claims{ActorID: binary.BigEndian.Uint64(b8[:])}

	var b4 [4]byte
	if _, err := io.ReadFull(r, b4[:]); err != nil {
		return Claims{}, fmt.Errorf("wire: read realm_id: %v", err)
	}
	c.RealmID = binary.BigEndian.Uint32(b4[:])

	if _, err := io.ReadFull(r, b8[:]); err != nil {
		return Claims{}, fmt.Errorf("wire: read issued_at: %v", err)
	}
	c.IssuedAt = int64(binary.BigEndian.Uint64(b8[:]))

	if _, err := io.ReadFull(r, b8[:]); err != nil {
		return Claims{}, fmt.Errorf("wire: read expires_at: %v", err)
	}
	c.ExpiresAt = int64(binary.BigEndian.Uint64(b8[:]))

	psk, err := readBytes(r)
	if err != nil {
		return Claims{}, err
	}
	c.PSK = psk
	return c, nil
}
