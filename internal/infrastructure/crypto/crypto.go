package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

var (
	// ErrInvalidKey is returned when the encryption key is not 64 hex characters.
	ErrInvalidKey = errors.New("encryption key must be 64 hex characters (32 bytes)")

	// ErrDecryptionFailed is the single error surfaced for any decryption
	// failure: malformed base64, truncated blob, tampered ciphertext or tag,
	// wrong key. Callers never see which, and no plaintext is ever included.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Encryptor encrypts and decrypts credential material with AES-256-GCM.
// Blob layout: nonce (12 bytes) || ciphertext || tag (16 bytes), base64-encoded.
// Safe for concurrent use.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor from a 64-hex-character key.
func NewEncryptor(hexKey string) (*Encryptor, error) {
	if len(hexKey) != 64 {
		return nil, ErrInvalidKey
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Encryptor{aead: aead}, nil
}

// Encrypt encrypts plaintext with a fresh random nonce. Two calls on the
// same input produce different blobs.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any corruption or tampering is rejected with
// ErrDecryptionFailed rather than returning garbage.
func (e *Encryptor) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	nonceSize := e.aead.NonceSize()
	if len(raw) < nonceSize+e.aead.Overhead() {
		return "", ErrDecryptionFailed
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
