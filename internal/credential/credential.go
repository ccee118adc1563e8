package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/iamzifei/bookmark-is-learned/internal/storage"
)

const (
	secretKey = "credential"
	keySize   = 32
)

var (
	ErrMissingCredential    = errors.New("no API key configured")
	ErrCredentialUnreadable = errors.New("stored API key cannot be decrypted")
)

// Secrets is the backing key/value surface, satisfied by *storage.Store.
type Secrets interface {
	Secret(key string) ([]byte, error)
	PutSecret(key string, value []byte) error
	DeleteSecret(key string) error
}

// Store keeps the API key sealed with AES-GCM. The data key lives in its own
// file next to, not inside, the database.
type Store struct {
	secrets Secrets
	keyPath string
}

func NewStore(secrets Secrets, keyPath string) *Store {
	return &Store{secrets: secrets, keyPath: keyPath}
}

// Get returns the sealed credential, or ErrMissingCredential.
func (s *Store) Get() ([]byte, error) {
	sealed, err := s.secrets.Secret(secretKey)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && len(sealed) == 0) {
		return nil, ErrMissingCredential
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCredential, err)
	}
	return sealed, nil
}

// Decrypt opens a sealed credential. Any failure, including a missing key
// file, is ErrCredentialUnreadable.
func (s *Store) Decrypt(sealed []byte) (string, error) {
	key, err := os.ReadFile(s.keyPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialUnreadable, err)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialUnreadable, err)
	}

	n := aead.NonceSize()
	if len(sealed) < n+aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrCredentialUnreadable)
	}
	plain, err := aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialUnreadable, err)
	}
	return string(plain), nil
}

// Set seals and stores apiKey, creating the data key on first use.
func (s *Store) Set(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return s.secrets.DeleteSecret(secretKey)
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(apiKey), nil)
	return s.secrets.PutSecret(secretKey, sealed)
}

func (s *Store) loadOrCreateKey() ([]byte, error) {
	key, err := os.ReadFile(s.keyPath)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key = make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.keyPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(s.keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
