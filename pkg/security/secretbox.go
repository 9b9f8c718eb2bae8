package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrKeyLength        = errors.New("credentials key must decode to 32 bytes")
	ErrCiphertextLength = errors.New("ciphertext too short")
)

// SecretBox seals short secrets with XChaCha20-Poly1305. Output layout is
// nonce || ciphertext.
type SecretBox struct {
	key []byte
}

// NewSecretBox accepts a base64 (standard or URL) encoded 32 byte key.
func NewSecretBox(encodedKey string) (*SecretBox, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(encodedKey)
		if err != nil {
			return nil, fmt.Errorf("decode credentials key: %w", err)
		}
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrKeyLength
	}
	return &SecretBox{key: key}, nil
}

func (b *SecretBox) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (b *SecretBox) Open(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCiphertextLength
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open secret: %w", err)
	}
	return plain, nil
}

// GenerateKey returns a fresh base64 key for CREDENTIALS_ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
