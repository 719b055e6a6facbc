// Package identity issues and validates shopper sessions and resolves the
// profile behind them.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
	"github.com/Jis87-63/moz-digital-store/internal/repository"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/validator"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Config configures session issuance.
type Config struct {
	Secret     []byte
	Issuer     string
	TTL        time.Duration
	BcryptCost int
}

// Claims are the signed contents of a session token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID is the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// Session is an issued access token with the profile it belongs to.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// SignUpInput holds the account creation form.
type SignUpInput struct {
	Username string `json:"username" validate:"required,max=60"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Provider creates accounts and issues, validates and revokes sessions.
type Provider struct {
	cfg     Config
	users   repository.UserRepository
	revoked repository.RevocationRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewProvider(cfg Config, users repository.UserRepository, revoked repository.RevocationRepository, logger *slog.Logger) *Provider {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Provider{cfg: cfg, users: users, revoked: revoked, logger: logger, now: time.Now}
}

// CreateAccount registers a user, writes its profile with the admin flag off
// and signs it in.
func (p *Provider) CreateAccount(ctx context.Context, in SignUpInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.Phone = strings.ReplaceAll(strings.TrimSpace(in.Phone), " ", "")
	if err := validateSignUp(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), p.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:        uuid.NewString(),
		Username:  in.Username,
		Email:     in.Email,
		Phone:     in.Phone,
		IsAdmin:   false,
		CreatedAt: p.now().UTC(),
	}
	if err := p.users.Create(ctx, user, hash); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	p.logger.InfoContext(ctx, "account created", slog.String("user_id", user.ID))
	return p.issue(user)
}

// SignIn checks the credentials and issues a session. Unknown emails and wrong
// passwords fail identically.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if validator.Validate(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}) != nil {
		return nil, ErrInvalidEmail
	}

	creds, err := p.users.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword(creds.PasswordHash, []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := p.users.GetByID(ctx, creds.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return p.issue(user)
}

// SignOut revokes token for the rest of its lifetime.
func (p *Provider) SignOut(ctx context.Context, token string) (*Claims, error) {
	claims, err := p.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	ttl := claims.ExpiresAt.Time.Sub(p.now())
	if ttl <= 0 {
		return claims, nil
	}
	if err := p.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return nil, fmt.Errorf("revoke session: %w", err)
	}
	return claims, nil
}

// Validate checks the token signature, expiry and revocation.
func (p *Provider) Validate(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	revoked, err := p.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("session store unavailable")
	}
	if revoked {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func (p *Provider) issue(user *domain.User) (*Session, error) {
	now := p.now().UTC()
	expires := now.Add(p.cfg.TTL)
	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    p.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Session{Token: signed, ExpiresAt: expires, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateSignUp maps structural failures onto the localized errors shoppers
// see. The first failing field wins, in form order.
func validateSignUp(in SignUpInput) error {
	err := validator.Validate(in)
	if err == nil {
		return nil
	}
	var verr *validator.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	fields := verr.Fields()
	switch {
	case has(fields, "username"):
		return ErrUsernameRequired
	case has(fields, "email"):
		return ErrInvalidEmail
	case has(fields, "phone"):
		return ErrInvalidPhone
	default:
		return ErrWeakPassword
	}
}

func has(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}
