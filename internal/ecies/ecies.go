// Package ecies implements the secp256k1 ECIES scheme used to seal TURN
// credentials and actor claims (spec §3, §4.5, §8). An ephemeral key pair is
// generated per call, its shared secret with the recipient's static public
// key is stretched through HKDF-SHA256, and the result keys AES-256-GCM.
package ecies

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/hkdf"

	"github.com/webrtc-relay/trustcore/internal/keystore"
)

// hkdfInfo binds the derived key to this scheme; changing it invalidates
// every ciphertext produced by an older version.
var hkdfInfo = []byte("trustcore/ecies/v1")

// ErrMalformed is returned when a sealed blob is shorter than the fixed
// ephemeral-pubkey-plus-nonce header.
var ErrMalformed = errors.New("ecies: ciphertext too short")

// Seal encrypts plaintext to recipientPubKey (a 33-byte compressed
// secp256k1 point, spec §3). The output is
// ephemeral_pubkey(33) || nonce(12) || sealed, matching spec §8's
// round-trip property.
func Seal(recipientPubKey []byte, plaintext []byte) ([]byte, error) {
	if err := keystore.ValidatePublicKey(recipientPubKey); err != nil {
		return nil, err
	}
	recipient, err := secp256k1.ParsePubKey(recipientPubKey)
	if err != nil {
		return nil, err
	}

	ephemeral, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	key, err := deriveKey(ephemeral, recipient)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	ephemeralPub := ephemeral.PubKey().SerializeCompressed()
	out := make([]byte, 0, len(ephemeralPub)+len(nonce)+len(sealed))
	out = append(out, ephemeralPub...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Open decrypts a blob produced by Seal using the recipient's secret key
// (a 32-byte scalar, spec §3).
func Open(recipientSecretKey []byte, blob []byte) ([]byte, error) {
	if len(recipientSecretKey) != keystore.SecretKeySize {
		return nil, errors.New("ecies: secret key is not 32 bytes")
	}

	const headerLen = keystore.PublicKeySize
	if len(blob) < headerLen {
		return nil, ErrMalformed
	}

	ephemeralPub, err := secp256k1.ParsePubKey(blob[:headerLen])
	if err != nil {
		return nil, err
	}
	recipient := secp256k1.PrivKeyFromBytes(recipientSecretKey)

	key, err := deriveKey(recipient, ephemeralPub)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	rest := blob[headerLen:]
	if len(rest) < gcm.NonceSize() {
		return nil, ErrMalformed
	}
	nonce, sealed := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	return gcm.Open(nil, nonce, sealed, nil)
}

// deriveKey computes the ECDH shared secret and stretches it into a
// 256-bit AES key via HKDF-SHA256.
func deriveKey(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) ([]byte, error) {
	shared := secp256k1.GenerateSharedSecret(priv, pub)

	kdf := hkdf.New(sha256.New, shared, nil, hkdfInfo)
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
