package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-256-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

const (
	// KeySize is the size of keys accepted by New and NewWithType.
	KeySize = 32

	// MinSecretSize is the shortest secret DeriveKey accepts.
	MinSecretSize = 16

	// SaltSize is the recommended DeriveKey salt size.
	SaltSize = 16
)

var (
	ErrInvalidKey      = errors.New("adaptive: key must be 32 bytes")
	ErrSecretTooShort  = fmt.Errorf("adaptive: secret must be at least %d bytes", MinSecretSize)
	ErrCiphertextShort = errors.New("adaptive: ciphertext too short")
	ErrUnknownCipher   = errors.New("adaptive: unknown cipher type")
)

// Cipher provides authenticated encryption. Implementations are safe for
// concurrent use.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Encrypt seals plaintext and returns nonce||ciphertext||tag.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt opens the output of Encrypt. It fails if either the ciphertext
	// or additionalData was altered.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// Preferred returns the cipher type New selects on this platform.
func Preferred() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}

// New creates a cipher of the preferred type for this platform.
func New(key []byte) (Cipher, error) {
	return NewWithType(key, Preferred())
}

// NewWithType creates a cipher of the given type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch cipherType {
	case CipherAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherChaCha20:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, cipherType)
	}
	if err != nil {
		return nil, err
	}

	return &aeadCipher{typ: cipherType, aead: aead}, nil
}

// ParseCipherType validates a cipher name.
func ParseCipherType(s string) (CipherType, error) {
	switch t := CipherType(s); t {
	case CipherAESGCM, CipherChaCha20:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCipher, s)
	}
}

// DeriveKey stretches secret into a KeySize key with HKDF-SHA256. The same
// secret, salt and info always yield the same key.
func DeriveKey(secret, salt []byte, info string) ([]byte, error) {
	if len(secret) < MinSecretSize {
		return nil, ErrSecretTooShort
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("adaptive: derive key: %w", err)
	}
	return key, nil
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

type aeadCipher struct {
	typ  CipherType
	aead cipher.AEAD
}

func (c *aeadCipher) Type() CipherType { return c.typ }
func (c *aeadCipher) NonceSize() int   { return c.aead.NonceSize() }
func (c *aeadCipher) Overhead() int    { return c.aead.Overhead() }

func (c *aeadCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n+c.aead.Overhead() {
		return nil, ErrCiphertextShort
	}
	return c.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
}
