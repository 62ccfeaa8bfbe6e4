package keys

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/domain"
)

func TestVaultRoundTrip(t *testing.T) {
	vault, err := NewVault("super-secret-key", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sealed, err := vault.Encrypt("test-value-123")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if strings.Contains(sealed, "test-value-123") || strings.Count(sealed, ":") != 1 {
		t.Fatalf("unexpected sealed format %q", sealed)
	}

	plain, err := vault.Decrypt(sealed)
	if err != nil || plain != "test-value-123" {
		t.Fatalf("expected round trip, got %q %v", plain, err)
	}

	other, _ := NewVault("another-secret", nil, nil)
	if _, err := other.Decrypt(sealed); err == nil {
		t.Fatalf("decrypt with another secret should fail")
	}
}

func TestVaultRejectsMalformed(t *testing.T) {
	vault, _ := NewVault("secret", nil, nil)
	for _, payload := range []string{"", "nocolon", "!!:!!", "AAAA:AAAA"} {
		if _, err := vault.Decrypt(payload); err == nil {
			t.Fatalf("expected error for %q", payload)
		}
	}
}

type fakeKeyStore struct {
	mu    sync.Mutex
	saved map[domain.KeyProvider]string
	fail  domain.KeyProvider
}

func (f *fakeKeyStore) SaveEncryptedKey(ctx context.Context, userID string, provider domain.KeyProvider, encrypted string) error {
	if provider == f.fail {
		return errors.New("write failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[domain.KeyProvider]string{}
	}
	f.saved[provider] = encrypted
	return nil
}

func TestSaveKeysEncryptsEveryKey(t *testing.T) {
	store := &fakeKeyStore{}
	vault, _ := NewVault("secret", store, zap.NewNop())

	err := vault.SaveKeys(context.Background(), "user-1", []domain.ProviderKey{
		{Provider: domain.KeyProviderOpenAI, Value: "sk-openai-123456"},
		{Provider: domain.KeyProviderXAI, Value: "xai-key-123456"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.saved) != 2 {
		t.Fatalf("expected 2 saved keys, got %d", len(store.saved))
	}
	plain, _ := vault.Decrypt(store.saved[domain.KeyProviderOpenAI])
	if plain != "sk-openai-123456" {
		t.Fatalf("stored value does not decrypt, got %q", plain)
	}
}

func TestSaveKeysReportsFailure(t *testing.T) {
	store := &fakeKeyStore{fail: domain.KeyProviderX}
	vault, _ := NewVault("secret", store, zap.NewNop())

	err := vault.SaveKeys(context.Background(), "user-1", []domain.ProviderKey{
		{Provider: domain.KeyProviderX, Value: "x-token-123456"},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}
