// Package kek implements optional encryption-at-rest for secret_key columns
// (spec §3, §9 open question 3). Wrapping is off by default; when a KEK is
// configured (config kek_key), internal/store's SQLKeyStore wraps
// secret_key with it before persisting and unwraps on read.
package kek

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

const KeySize = 32

// Wrap encrypts plaintext using 256-bit AES-GCM. Output is
// nonce || ciphertext || tag.
func Wrap(plaintext, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, aes.KeySizeError(len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Unwrap reverses Wrap.
func Unwrap(ciphertext, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, aes.KeySizeError(len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("kek: ciphertext too short")
	}

	return gcm.Open(nil, ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():], nil)
}
