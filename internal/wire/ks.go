package wire

// Envelope is the auth envelope carried on the KS's authenticated calls
// (spec §3, §4.1, §6.1). JSON field names match the wire schema verbatim.
type Envelope struct {
	NodeID    string `json:"node_id"`
	Nonce     string `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"` // base64-encoded HMAC-SHA256
}

// GenerateKeyRequest is the body of POST generate_key (spec §6.1).
type GenerateKeyRequest struct {
	Envelope Envelope `json:"envelope"`
}

// GenerateKeyResponse is the 200 body of POST generate_key.
type GenerateKeyResponse struct {
	KeyID     uint32 `json:"key_id"`
	PublicKey string `json:"public_key"` // base64(33 bytes)
	ExpiresAt int64  `json:"expires_at"`
}

// GetSecretKeyRequest is the body of GET get_secret_key/{key_id}.
type GetSecretKeyRequest struct {
	Envelope Envelope `json:"envelope"`
}

// GetSecretKeyResponse is the 200 body of GET get_secret_key/{key_id}.
type GetSecretKeyResponse struct {
	KeyID     uint32 `json:"key_id"`
	SecretKey string `json:"secret_key"` // base64(32 bytes)
	ExpiresAt int64  `json:"expires_at"`
}

// GetPublicKeyResponse is the 200 body of GET get_public_key/{key_id}.
// That endpoint carries no envelope (spec §6.1: "no envelope").
type GetPublicKeyResponse struct {
	KeyID     uint32 `json:"key_id"`
	PublicKey string `json:"public_key"`
	ExpiresAt int64  `json:"expires_at"`
}

// HealthResponse is the body of GET health (spec §4.2, §6.1).
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	KeyCount int    `json:"key_count"`
}
