// Package cardcrypto encrypts card numbers at rest.
//
// Encryption is deterministic: the same number under the same key always
// yields the same ciphertext, so the stores can look a card up and enforce
// uniqueness on the encrypted column. Values are sealed with AES-SIV
// (RFC 5297) from Tink; the 512-bit SIV key is derived from the configured
// secret with HKDF.
package cardcrypto

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/tink-crypto/tink-go/v2/daead/subtle"
	"golang.org/x/crypto/hkdf"
)

// MinKeyLength is the minimum length of the configured secret.
const MinKeyLength = 32

const hkdfInfo = "cards-api card-number v2"

// associatedData binds ciphertexts to the card-number column.
var associatedData = []byte("cards.number")

var (
	// ErrKeyTooShort is returned when the configured secret is too short.
	ErrKeyTooShort = fmt.Errorf("card encryption key must be at least %d characters", MinKeyLength)

	// ErrInvalidCiphertext is returned when a value cannot be decoded or
	// fails authentication.
	ErrInvalidCiphertext = errors.New("invalid card number ciphertext")
)

// Cipher encrypts and decrypts card numbers. It is safe for concurrent use.
type Cipher struct {
	siv *subtle.AESSIV
}

// New derives the AES-SIV key from secret.
func New(secret string) (*Cipher, error) {
	if len(secret) < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	key := make([]byte, subtle.AESSIVKeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive card encryption key: %w", err)
	}

	siv, err := subtle.NewAESSIV(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES-SIV cipher: %w", err)
	}

	return &Cipher{siv: siv}, nil
}

// Encrypt returns the URL-safe base64 encoding of the AES-SIV ciphertext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("cannot encrypt an empty card number")
	}

	out, err := c.siv.EncryptDeterministically([]byte(plaintext), associatedData)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt card number: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt and verifies that the ciphertext was produced
// under this key.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := c.siv.DecryptDeterministically(raw, associatedData)
	if err != nil || len(plaintext) == 0 {
		return "", ErrInvalidCiphertext
	}

	return string(plaintext), nil
}
