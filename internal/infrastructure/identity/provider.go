package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/validation"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("User not found")
	ErrEmailExists        = errors.New("The email address is already in use by another account")
	ErrInvalidEmail       = errors.New("The email address is improperly formatted")
	ErrWeakPassword       = errors.New("Password should be at least 6 characters")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrUserDisabled       = errors.New("User account is disabled")
	ErrInvalidToken       = errors.New("Invalid or expired token")
	ErrTokenRevoked       = errors.New("Token has been revoked")
)

const (
	defaultIDTokenTTL  = time.Hour
	refreshTokenTTL    = 30 * 24 * time.Hour
	refreshKeyPrefix   = "auth:refresh:"
	userRefreshPrefix  = "auth:user_refresh:"
	defaultLeeway      = 30 * time.Second
	activeSigningKeyID = "service-account"
)

// User is the public view of an auth identity.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Token is a verified id token.
type Token struct {
	UID      string
	Email    string
	IssuedAt time.Time
	Expires  time.Time
}

// Tokens is the result of a sign-in or refresh.
type Tokens struct {
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}

// CreateUserParams are the fields of a new identity.
type CreateUserParams struct {
	Email       string
	Password    string
	DisplayName string
}

type idClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Provider is the auth backend: password identities in the database, id tokens signed with the
// service account key, refresh tokens in Redis.
type Provider struct {
	DB  *gorm.DB
	Rdb *redis.Client

	key      *rsa.PrivateKey
	issuer   string
	audience string
	ttl      time.Duration
	leeway   time.Duration
	now      func() time.Time
}

// Options configures a Provider.
type Options struct {
	PrivateKeyPEM string
	ClientEmail   string
	ProjectID     string
	TTL           time.Duration
}

// NewProvider parses the service account key and builds a Provider.
func NewProvider(db *gorm.DB, rdb *redis.Client, opts Options) (*Provider, error) {
	key, err := parseRSAPrivateKey(opts.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("identity: service account key: %w", err)
	}
	if opts.ClientEmail == "" || opts.ProjectID == "" {
		return nil, errors.New("identity: client email and project id are required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultIDTokenTTL
	}
	return &Provider{
		DB:       db,
		Rdb:      rdb,
		key:      key,
		issuer:   opts.ClientEmail,
		audience: opts.ProjectID,
		ttl:      ttl,
		leeway:   defaultLeeway,
		now:      time.Now,
	}, nil
}

func parseRSAPrivateKey(pemText string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(pemText)))
	if block == nil {
		return nil, errors.New("invalid PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

func toUser(a *domain.Account) User {
	return User{UID: a.UID, Email: a.Email, DisplayName: a.DisplayName}
}

// CreateUser creates a password identity.
func (p *Provider) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidPassword(params.Password) {
		return nil, ErrWeakPassword
	}
	var count int64
	if err := p.DB.WithContext(ctx).Model(&domain.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), 10)
	if err != nil {
		return nil, err
	}
	acc := &domain.Account{
		UID:              strings.ReplaceAll(uuid.NewString(), "-", ""),
		Email:            email,
		PasswordHash:     string(hash),
		DisplayName:      strings.TrimSpace(params.DisplayName),
		TokensValidAfter: p.now().Add(-time.Second),
	}
	if err := p.DB.WithContext(ctx).Create(acc).Error; err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	u := toUser(acc)
	return &u, nil
}

// GetUser returns the identity with uid.
func (p *Provider) GetUser(ctx context.Context, uid string) (*User, error) {
	acc, err := p.account(ctx, uid)
	if err != nil {
		return nil, err
	}
	u := toUser(acc)
	return &u, nil
}

// GetUserByEmail returns the identity with email.
func (p *Provider) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var acc domain.Account
	err := p.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u := toUser(&acc)
	return &u, nil
}

func (p *Provider) account(ctx context.Context, uid string) (*domain.Account, error) {
	var acc domain.Account
	err := p.DB.WithContext(ctx).Where("uid = ?", uid).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// DeleteUser removes the identity and its refresh tokens.
func (p *Provider) DeleteUser(ctx context.Context, uid string) error {
	res := p.DB.WithContext(ctx).Where("uid = ?", uid).Delete(&domain.Account{})
	if res.Error != nil {
		return fmt.Errorf("delete account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	p.dropRefreshTokens(ctx, uid)
	return nil
}

// SignIn checks the password and issues tokens.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	var acc domain.Account
	err := p.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if acc.Disabled {
		return nil, ErrUserDisabled
	}
	return p.issue(ctx, &acc)
}

// Refresh exchanges a refresh token for a new id token. The refresh token is rotated.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	key := refreshKeyPrefix + hashToken(refreshToken)
	uid, err := p.Rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	acc, err := p.account(ctx, uid)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if acc.Disabled {
		return nil, ErrUserDisabled
	}
	p.Rdb.SRem(ctx, userRefreshPrefix+uid, hashToken(refreshToken))
	return p.issue(ctx, acc)
}

func (p *Provider) issue(ctx context.Context, acc *domain.Account) (*Tokens, error) {
	idToken, exp, err := p.MintIDToken(acc.UID, acc.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := randomToken()
	if err != nil {
		return nil, err
	}
	h := hashToken(refresh)
	pipe := p.Rdb.TxPipeline()
	pipe.Set(ctx, refreshKeyPrefix+h, acc.UID, refreshTokenTTL)
	pipe.SAdd(ctx, userRefreshPrefix+acc.UID, h)
	pipe.Expire(ctx, userRefreshPrefix+acc.UID, refreshTokenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Tokens{IDToken: idToken, RefreshToken: refresh, ExpiresAt: exp, User: toUser(acc)}, nil
}

// MintIDToken signs an id token for uid.
func (p *Provider) MintIDToken(uid, email string) (string, time.Time, error) {
	now := p.now().UTC()
	exp := now.Add(p.ttl)
	claims := idClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = activeSigningKeyID
	signed, err := token.SignedString(p.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign id token: %w", err)
	}
	return signed, exp, nil
}

// VerifyIDToken checks signature, issuer, audience and expiry, then that the identity still
// exists and the token was issued after its last revocation.
func (p *Provider) VerifyIDToken(ctx context.Context, raw string) (*Token, error) {
	claims := &idClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return &p.key.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithLeeway(p.leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	acc, err := p.account(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if acc.Disabled {
		return nil, ErrUserDisabled
	}
	issued := claims.IssuedAt.Time
	if issued.Before(acc.TokensValidAfter) {
		return nil, ErrTokenRevoked
	}
	return &Token{UID: claims.Subject, Email: claims.Email, IssuedAt: issued, Expires: claims.ExpiresAt.Time}, nil
}

// RevokeRefreshTokens invalidates every session of uid. Refresh tokens are deleted and id tokens
// issued before the current second stop verifying.
func (p *Provider) RevokeRefreshTokens(ctx context.Context, uid string) error {
	res := p.DB.WithContext(ctx).Model(&domain.Account{}).Where("uid = ?", uid).
		UpdateColumn("tokensValidAfter", p.now().UTC().Truncate(time.Second))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	p.dropRefreshTokens(ctx, uid)
	return nil
}

func (p *Provider) dropRefreshTokens(ctx context.Context, uid string) {
	key := userRefreshPrefix + uid
	hashes, err := p.Rdb.SMembers(ctx, key).Result()
	if err == nil {
		for _, h := range hashes {
			p.Rdb.Del(ctx, refreshKeyPrefix+h)
		}
	}
	p.Rdb.Del(ctx, key)
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(t string) string {
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}
