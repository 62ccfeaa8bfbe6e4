// Package keys encrypts user supplied provider keys before they are stored.
package keys

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/domain"
)

const maxConcurrentSaves = 4

// KeyStore persists encrypted provider keys.
type KeyStore interface {
	SaveEncryptedKey(ctx context.Context, userID string, provider domain.KeyProvider, encrypted string) error
}

// Vault seals secrets with AES-GCM under a SHA-256 digest of the configured
// secret. Sealed values are "base64(nonce):base64(ciphertext)".
type Vault struct {
	aead   cipher.AEAD
	store  KeyStore
	logger *zap.Logger
}

func NewVault(secret string, store KeyStore, logger *zap.Logger) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	digest := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(digest[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &Vault{aead: aead, store: store, logger: logger}, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(nonce) + ":" + base64.StdEncoding.EncodeToString(sealed), nil
}

func (v *Vault) Decrypt(payload string) (string, error) {
	nonceB64, cipherB64, ok := strings.Cut(payload, ":")
	if !ok {
		return "", fmt.Errorf("malformed sealed value")
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	if len(nonce) != v.aead.NonceSize() {
		return "", fmt.Errorf("invalid nonce length %d", len(nonce))
	}
	sealed, err := base64.StdEncoding.DecodeString(cipherB64)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	plain, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}

// SaveKeys encrypts and stores every key concurrently. The first failure is
// returned after all saves finish.
func (v *Vault) SaveKeys(ctx context.Context, userID string, keys []domain.ProviderKey) error {
	if v.store == nil {
		return fmt.Errorf("key store not configured")
	}

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(maxConcurrentSaves)
	for _, key := range keys {
		p.Go(func(ctx context.Context) error {
			sealed, err := v.Encrypt(strings.TrimSpace(key.Value))
			if err != nil {
				return err
			}
			if err := v.store.SaveEncryptedKey(ctx, userID, key.Provider, sealed); err != nil {
				return fmt.Errorf("save %s key: %w", key.Provider, err)
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		v.logger.Error("Failed to save provider keys", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	v.logger.Info("Provider keys saved", zap.String("user_id", userID), zap.Int("count", len(keys)))
	return nil
}
