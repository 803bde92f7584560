package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Cipher errors.
var (
	// ErrAuthenticationFailed indicates the ciphertext, nonce, tag, or user
	// context failed authenticated-decryption verification.
	ErrAuthenticationFailed = errors.New("secrets: authentication failed")
	// ErrEmptyMasterSecret indicates the cipher was constructed without a key.
	ErrEmptyMasterSecret = errors.New("secrets: empty master secret")
)

// hkdfInfo domain-separates the credential encryption key from any other
// key derived from the same master secret.
const hkdfInfo = "convoflow/credential-key/v1"

// gcmTagSize is the AES-GCM authentication tag length in bytes.
const gcmTagSize = 16

// Sealed holds the output of an authenticated encryption, split into the
// three parts persisted on a credential row.
type Sealed struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
}

// Cipher seals and unseals credential secrets under a key derived from the
// server master secret. The owning user ID is bound as additional
// authenticated data, so a ciphertext cannot be unsealed in another user's
// context even if rows are swapped.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the encryption key from the master secret and returns a
// ready cipher. The master secret is injected here and never read from the
// environment by this package.
func NewCipher(masterSecret string) (*Cipher, error) {
	if masterSecret == "" {
		return nil, ErrEmptyMasterSecret
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(masterSecret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("secrets: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: new gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext for the given user. The nonce is generated fresh
// on every call and is never accepted from the caller.
func (c *Cipher) Seal(plaintext, userID string) (Sealed, error) {
	iv := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Sealed{}, fmt.Errorf("secrets: generate iv: %w", err)
	}

	out := c.aead.Seal(nil, iv, []byte(plaintext), []byte(userID))
	if len(out) < gcmTagSize {
		return Sealed{}, fmt.Errorf("secrets: short seal output")
	}
	split := len(out) - gcmTagSize
	return Sealed{
		Ciphertext: out[:split],
		IV:         iv,
		AuthTag:    out[split:],
	}, nil
}

// Unseal decrypts a sealed secret in the given user's context. Any tamper
// with the ciphertext, IV, or tag, and any user ID mismatch, fails with
// ErrAuthenticationFailed; corrupted plaintext is never returned.
func (c *Cipher) Unseal(sealed Sealed, userID string) (string, error) {
	if len(sealed.IV) != c.aead.NonceSize() {
		return "", ErrAuthenticationFailed
	}

	joined := make([]byte, 0, len(sealed.Ciphertext)+len(sealed.AuthTag))
	joined = append(joined, sealed.Ciphertext...)
	joined = append(joined, sealed.AuthTag...)

	plaintext, err := c.aead.Open(nil, sealed.IV, joined, []byte(userID))
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plaintext), nil
}
