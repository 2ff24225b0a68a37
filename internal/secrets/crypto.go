package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const nonceSize = 12

// ErrIntegrity is returned when a stored ciphertext fails authentication:
// either it was tampered with or it was sealed under a different secret.
// Callers must surface it, never fall back past it.
var ErrIntegrity = errors.New("credential ciphertext failed integrity check")

// Box seals and opens short strings with AES-256-GCM. The key is derived
// from the server secret via SHA-256. The stored form is
// base64(nonce | tag-authenticated ciphertext) with a fresh random nonce
// per Seal call.
type Box struct {
	aead cipher.AEAD
}

// NewBox derives the AES key from secret and prepares the AEAD.
func NewBox(secret string) (*Box, error) {
	if secret == "" {
		return nil, errors.New("empty secret")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plain and returns the base64 stored form.
func (b *Box) Seal(plain string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a stored form produced by Seal. Any authentication or
// framing failure maps to ErrIntegrity.
func (b *Box) Open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrIntegrity
	}
	if len(raw) < nonceSize {
		return "", ErrIntegrity
	}
	plain, err := b.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plain), nil
}
