package twofactor

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// sealedPrefix marks stored secrets that were sealed with a SecretBox.
// Values without it are treated as plaintext so a key can be introduced later.
const sealedPrefix = "enc:"

var (
	ErrInvalidKeySize   = errors.New("two-factor encryption key must be 32 bytes")
	ErrSealedTooShort   = errors.New("sealed secret too short")
	ErrUnsealFailed     = errors.New("failed to unseal two-factor secret")
	ErrSecretBoxMissing = errors.New("sealed secret found but no encryption key is configured")
)

// SecretBox seals TOTP secrets before they are written to the users table.
// A nil *SecretBox stores secrets as-is.
type SecretBox struct {
	key []byte
}

// NewSecretBox decodes a base64 XChaCha20-Poly1305 key. An empty key returns nil.
func NewSecretBox(encodedKey string) (*SecretBox, error) {
	encodedKey = strings.TrimSpace(encodedKey)
	if encodedKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode two-factor encryption key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKeySize
	}
	return &SecretBox{key: key}, nil
}

// GenerateKey returns a random base64 key suitable for NewSecretBox.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Seal encrypts secret. Empty input stays empty.
func (b *SecretBox) Seal(secret string) (string, error) {
	if b == nil || secret == "" {
		return secret, nil
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(secret)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(secret), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Unsealed values pass through unchanged.
func (b *SecretBox) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if b == nil {
		return "", ErrSecretBoxMissing
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed secret: %w", err)
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrSealedTooShort
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], nil)
	if err != nil {
		return "", ErrUnsealFailed
	}
	return string(plain), nil
}
