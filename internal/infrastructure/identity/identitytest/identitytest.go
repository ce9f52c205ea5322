// Package identitytest builds identity providers backed by throwaway keys for tests.
package identitytest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"estate-backend/internal/infrastructure/identity"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	ProjectID   = "estate-test"
	ClientEmail = "svc@estate-test.iam"
)

var (
	keyOnce sync.Once
	keyPEM  string
)

// KeyPEM returns a PKCS#1 RSA key, generated once per test binary.
func KeyPEM(t testing.TB) string {
	t.Helper()
	keyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	})
	return keyPEM
}

// NewProvider returns a Provider over db and rdb. db must have domain.Account migrated.
func NewProvider(t testing.TB, db *gorm.DB, rdb *redis.Client) *identity.Provider {
	t.Helper()
	p, err := identity.NewProvider(db, rdb, identity.Options{
		PrivateKeyPEM: KeyPEM(t),
		ClientEmail:   ClientEmail,
		ProjectID:     ProjectID,
		TTL:           time.Hour,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}
