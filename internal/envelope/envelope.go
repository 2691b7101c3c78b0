// Package envelope implements the encrypted transport wrapper for credential
// payloads. The codec authenticates as well as encrypts (AES-256-GCM), so a
// tampered envelope fails to open instead of yielding garbage plaintext. The
// key is a pre-shared transport secret; knowing it never authenticates a user.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
)

const (
	keySize   = 32
	nonceSize = 12
)

var (
	// ErrDecrypt is returned on any failure to open an envelope: wrong key,
	// tag mismatch, malformed payload. Deliberately a single sentinel so the
	// transport layer never leaks cryptographic diagnostics.
	ErrDecrypt = errors.New("envelope: cannot decrypt payload")
	// ErrInvalidKey is returned when the codec key is not 32 bytes.
	ErrInvalidKey = errors.New("envelope: key must be 32 bytes")
)

// Envelope carries an encrypted JSON payload and the IV it was sealed with.
// The IV is generated fresh per envelope and never reused with the same key.
// encoding/json renders the byte fields as base64, which is the wire form.
type Envelope struct {
	Encrypted bool   `json:"encrypted"`
	Payload   []byte `json:"payload"`
	IV        []byte `json:"iv"`
}

// Codec seals and opens envelopes under a fixed pre-shared key.
type Codec struct {
	key []byte
}

// NewCodec returns a Codec for the given 32-byte key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != keySize {
		return nil, ErrInvalidKey
	}
	c := &Codec{key: make([]byte, keySize)}
	copy(c.key, key)
	return c, nil
}

// DeriveKey produces the codec key from the configured transport secret. A
// 64-character hex secret is decoded directly; anything else is stretched
// with argon2id over the configured salt.
func DeriveKey(secret, salt string) ([]byte, error) {
	if secret == "" {
		return nil, ErrInvalidKey
	}
	if len(secret) == keySize*2 {
		if b, err := hex.DecodeString(secret); err == nil {
			return b, nil
		}
	}
	return argon2.IDKey([]byte(secret), []byte(salt), 1, 64*1024, 4, keySize), nil
}

// Seal serializes v to JSON and encrypts it under a fresh random IV.
func (c *Codec) Seal(v any) (*Envelope, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Encrypted: true,
		Payload:   aead.Seal(nil, iv, plaintext, nil),
		IV:        iv,
	}, nil
}

// Open decrypts the envelope and unmarshals the plaintext into v.
// Fails with ErrDecrypt on tag mismatch, truncated IV, or undecodable
// plaintext; the failure kinds are intentionally indistinguishable.
func (c *Codec) Open(env *Envelope, v any) error {
	if env == nil || len(env.IV) != nonceSize {
		return ErrDecrypt
	}
	aead, err := c.aead()
	if err != nil {
		return err
	}
	plaintext, err := aead.Open(nil, env.IV, env.Payload, nil)
	if err != nil {
		return ErrDecrypt
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return ErrDecrypt
	}
	return nil
}

func (c *Codec) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
