package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ActorType names a class of actor a realm may or may not permit (spec §3,
// §6.2).
type ActorType struct {
	Manufacturer string
	Name         string
}

// AllocateRequest is the binary body of POST allocate (spec §4.5, §6.2):
// { realm_id: u32, actor_type: {mfr, name} }.
type AllocateRequest struct {
	RealmID   uint32
	ActorType ActorType
}

// AllocateSuccess is the success arm of the allocate one-of response.
type AllocateSuccess struct {
	ActorID                        uint64
	Credential                     []byte
	PSK                             []byte // 32 bytes
	SignalingHeartbeatIntervalSecs uint32
}

// AllocateFailure is the failure arm of the allocate one-of response
// (spec §4.5 failure codes).
type AllocateFailure struct {
	Code    ErrorKind
	Message string
}

// AllocateResponse is the one-of success/failure binary response (spec
// §6.2). Exactly one of Success/Failure is non-nil.
type AllocateResponse struct {
	Success *AllocateSuccess
	Failure *AllocateFailure
}

// Binary layout: everything is length-prefixed (uint32 big-endian) so the
// encoder never needs a schema compiler; grounded on the "wrap a column for
// storage" encode/decode idiom used throughout storage/sql/crud.go, applied
// here to an RPC body instead of a database column.

func putString(buf *bytes.Buffer, s string) {
	putBytes(buf, []byte(s))
}

func putBytes(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: read length prefix: %v", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	b := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, fmt.Errorf("wire: read %d bytes: %v", n, err)
		}
	}
	return b, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

// MarshalAllocateRequest encodes req per spec §6.2.
func MarshalAllocateRequest(req AllocateRequest) []byte {
	var buf bytes.Buffer
	var realmBuf [4]byte
	binary.BigEndian.PutUint32(realmBuf[:], req.RealmID)
	buf.Write(realmBuf[:])
	putString(&buf, req.ActorType.Manufacturer)
	putString(&buf, req.ActorType.Name)
	return buf.Bytes()
}

// UnmarshalAllocateRequest decodes what MarshalAllocateRequest produces.
func UnmarshalAllocateRequest(data []byte) (AllocateRequest, error) {
	r := bytes.NewReader(data)
	var realmBuf [4]byte
	if _, err := io.ReadFull(r, realmBuf[:]); err != nil {
		return AllocateRequest{}, fmt.Errorf("wire: read realm_id: %v", err)
	}
	req := AllocateRequest{RealmID: binary.BigEndian.Uint32(realmBuf[:])}
	mfr, err := readString(r)
	if err != nil {
		return AllocateRequest{}, err
	}
	name, err := readString(r)
	if err != nil {
		return AllocateRequest{}, err
	}
	req.ActorType = ActorType{Manufacturer: mfr, Name: name}
	return req, nil
}

const (
	tagSuccess byte = 1
	tagFailure byte = 2
)

// MarshalAllocateResponse encodes resp per spec §6.2 (one-of success/failure).
func MarshalAllocateResponse(resp AllocateResponse) ([]byte, error) {
	var buf bytes.Buffer
	switch {
	case resp.Success != nil:
		buf.WriteByte(tagSuccess)
		var actorIDBuf [8]byte
		binary.BigEndian.PutUint64(actorIDBuf[:], resp.Success.ActorID)
		buf.Write(actorIDBuf[:])
		putBytes(&buf, resp.Success.Credential)
		putBytes(&buf, resp.Success.PSK)
		var heartbeatBuf [4]byte
		binary.BigEndian.PutUint32(heartbeatBuf[:], resp.Success.SignalingHeartbeatIntervalSecs)
		buf.Write(heartbeatBuf[:])
	case resp.Failure != nil:
		buf.WriteByte(tagFailure)
		putString(&buf, string(resp.Failure.Code))
		putString(&buf, resp.Failure.Message)
	default:
		return nil, errors.New("wire: allocate response has neither success nor failure")
	}
	return buf.Bytes(), nil
}

// UnmarshalAllocateResponse decodes what MarshalAllocateResponse produces.
func UnmarshalAllocateResponse(data []byte) (AllocateResponse, error) {
	r := bytes.NewReader(data)
	tag, err := r.ReadByte()
	if err != nil {
		return AllocateResponse{}, fmt.Errorf("wire: read response tag: %v", err)
	}
	switch tag {
	case tagSuccess:
		var actorIDBuf [8]byte
		if _, err := io.ReadFull(r, actorIDBuf[:]); err != nil {
			return AllocateResponse{}, fmt.Errorf("wire: read actor_id: %v", err)
		}
		cred, err := readBytes(r)
		if err != nil {
			return AllocateResponse{}, err
		}
		psk, err := readBytes(r)
		if err != nil {
			return AllocateResponse{}, err
		}
		var heartbeatBuf [4]byte
		if _, err := io.ReadFull(r, heartbeatBuf[:]); err != nil {
			return AllocateResponse{}, fmt.Errorf("wire: read heartbeat interval: %v", err)
		}
		return AllocateResponse{Success: &AllocateSuccess{
			ActorID:                        binary.BigEndian.Uint64(actorIDBuf[:]),
			Credential:                     cred,
			PSK:                            psk,
			SignalingHeartbeatIntervalSecs: binary.BigEndian.Uint32(heartbeatBuf[:]),
		}}, nil
	case tagFailure:
		code, err := readString(r)
		if err != nil {
			return AllocateResponse{}, err
		}
		msg, err := readString(r)
		if err != nil {
			return AllocateResponse{}, err
		}
		return AllocateResponse{Failure: &AllocateFailure{Code: ErrorKind(code), Message: msg}}, nil
	default:
		return AllocateResponse{}, fmt.Errorf("wire: unknown response tag %d", tag)
	}
}

// CredentialWire is the { key_id: u32, ciphertext: bytes } wire format for
// an AIdCredential (spec §3, §4.5 step 5).
type CredentialWire struct {
	KeyID      uint32
	Ciphertext []byte
}

// MarshalCredential encodes a CredentialWire for embedding in
// AllocateSuccess.Credential.
func MarshalCredential(c CredentialWire) []byte {
	var buf bytes.Buffer
	var keyIDBuf [4]byte
	binary.BigEndian.PutUint32(keyIDBuf[:], c.KeyID)
	buf.Write(keyIDBuf[:])
	putBytes(&buf, c.Ciphertext)
	return buf.Bytes()
}

// UnmarshalCredential decodes what MarshalCredential produces.
func UnmarshalCredential(data []byte) (CredentialWire, error) {
	r := bytes.NewReader(data)
	var keyIDBuf [4]byte
	if _, err := io.ReadFull(r, keyIDBuf[:]); err != nil {
		return CredentialWire{}, fmt.Errorf("wire: read key_id: %v", err)
	}
	ct, err := readBytes(r)
	if err != nil {
		return CredentialWire{}, err
	}
	return CredentialWire{KeyID: binary.BigEndian.Uint32(keyIDBuf[:]), Ciphertext: ct}, nil
}
