// Package secret implements envelope encryption for env-var blobs at rest.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// envelopeTag prefixes every sealed value so future algorithm migrations can
// detect which scheme produced a record.
const envelopeTag = "np1"

// Fixed salt: the master key is operator-supplied and unique per install, so
// the salt only needs to domain-separate this KDF usage.
var kdfSalt = []byte("nodepilot-env-encryption-v1")

// ErrIntegrity indicates a sealed value failed to parse or authenticate. The
// accompanying value is returned unchanged so read paths never lose data.
var ErrIntegrity = errors.New("secret: integrity check failed")

// Codec seals and opens secret blobs using a key derived once from the
// operator master key. The derived key is never persisted.
type Codec struct {
	aead cipher.AEAD
}

// New derives the encryption key from the operator master key via scrypt and
// returns a ready codec.
func New(masterKey string) (*Codec, error) {
	key, err := scrypt.Key([]byte(masterKey), kdfSalt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Seal encrypts plaintext into a self-describing envelope of the form
// tag.iv.authtag.ciphertext with hex-encoded segments.
func (c *Codec) Seal(plaintext string) (string, error) {
	iv := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	// GCM appends the auth tag to the ciphertext; the envelope keeps them
	// in separate segments.
	split := len(sealed) - c.aead.Overhead()
	ciphertext, authTag := sealed[:split], sealed[split:]
	return strings.Join([]string{
		envelopeTag,
		hex.EncodeToString(iv),
		hex.EncodeToString(authTag),
		hex.EncodeToString(ciphertext),
	}, "."), nil
}

// Open decrypts an envelope produced by Seal. Untagged input is returned
// unchanged with a nil error, tolerating records that predate encryption.
// Any parse or cryptographic failure also returns the input unchanged,
// with ErrIntegrity so the caller can log the degraded read.
func (c *Codec) Open(value string) (string, error) {
	if !Sealed(value) {
		return value, nil
	}
	parts := strings.Split(value, ".")
	if len(parts) != 4 {
		return value, fmt.Errorf("%w: malformed envelope", ErrIntegrity)
	}
	iv, err := hex.DecodeString(parts[1])
	if err != nil {
		return value, fmt.Errorf("%w: bad iv encoding", ErrIntegrity)
	}
	authTag, err := hex.DecodeString(parts[2])
	if err != nil {
		return value, fmt.Errorf("%w: bad tag encoding", ErrIntegrity)
	}
	ciphertext, err := hex.DecodeString(parts[3])
	if err != nil {
		return value, fmt.Errorf("%w: bad ciphertext encoding", ErrIntegrity)
	}
	if len(iv) != c.aead.NonceSize() {
		return value, fmt.Errorf("%w: iv length %d", ErrIntegrity, len(iv))
	}
	plain, err := c.aead.Open(nil, iv, append(ciphertext, authTag...), nil)
	if err != nil {
		return value, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return string(plain), nil
}

// Sealed reports whether value carries the envelope tag.
func Sealed(value string) bool {
	return strings.HasPrefix(value, envelopeTag+".")
}
