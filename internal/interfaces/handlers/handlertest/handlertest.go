// Package handlertest wires an in-memory platform for handler tests.
package handlertest

import (
	"context"
	"testing"

	"estate-backend/internal/application/admins"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/identity"
	"estate-backend/internal/infrastructure/identity/identitytest"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	OwnerEmail    = "owner@estate.test"
	OwnerPassword = "owner-pass"
)

// Env is a migrated SQLite database, a miniredis server, an identity provider and the admin
// service, with the main admin bootstrapped.
type Env struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Mini     *miniredis.Miniredis
	Provider *identity.Provider
	Admins   *admins.Service
	Owner    *domain.Admin
}

func New(t *testing.T) *Env {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	p := identitytest.NewProvider(t, db, rdb)
	svc := &admins.Service{DB: db, Identity: p}
	owner, err := svc.EnsureMainAdmin(context.Background(), admins.MainAdmin{
		Email: OwnerEmail, Password: OwnerPassword, FirstName: "Olga", LastName: "Owner",
	})
	if err != nil {
		t.Fatalf("bootstrap main admin: %v", err)
	}
	return &Env{DB: db, Redis: rdb, Mini: mr, Provider: p, Admins: svc, Owner: owner}
}

// AddAdmin creates an admin with role through the main admin and returns it.
func (e *Env) AddAdmin(t *testing.T, email, role string) *domain.Admin {
	t.Helper()
	a, err := e.Admins.Create(context.Background(), e.Owner, admins.CreateInput{
		Email: email, Password: "secret1", FirstName: "Test", LastName: "Admin", Role: role,
	})
	if err != nil {
		t.Fatalf("create admin %s: %v", email, err)
	}
	return a
}

// Token signs in and returns a fresh id token.
func (e *Env) Token(t *testing.T, email, password string) string {
	t.Helper()
	tok, err := e.Provider.SignIn(context.Background(), email, password)
	if err != nil {
		t.Fatalf("sign in %s: %v", email, err)
	}
	return tok.IDToken
}

// OwnerToken is a fresh id token of the main admin.
func (e *Env) OwnerToken(t *testing.T) string {
	return e.Token(t, OwnerEmail, OwnerPassword)
}
