package auth

import (
	"context"
	"errors"
	"time"

	"domain-auction/pkg/apperrors"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

type Config struct {
	Secret   string
	Issuer   string
	Audience string
	Skew     time.Duration
}

// JWTAuthenticator verifies HS256 bearer tokens. The subject claim is the
// caller identity.
type JWTAuthenticator struct {
	secret   []byte
	issuer   string
	audience string
	skew     time.Duration
}

func NewJWTAuthenticator(cfg Config) (*JWTAuthenticator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	return &JWTAuthenticator{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		skew:     cfg.Skew,
	}, nil
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", apperrors.Auth("missing bearer token")
	}

	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256(), a.secret),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(a.skew),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindAuth, err, "invalid or expired token")
	}

	sub, ok := parsed.Subject()
	if !ok || sub == "" {
		return "", apperrors.Auth("token has no subject")
	}
	return sub, nil
}

// Sign issues a token for userID. Used by tooling and tests.
func (a *JWTAuthenticator) Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.New()
	if err := token.Set(jwt.SubjectKey, userID); err != nil {
		return "", err
	}
	if err := token.Set(jwt.IssuedAtKey, now); err != nil {
		return "", err
	}
	if err := token.Set(jwt.ExpirationKey, now.Add(ttl)); err != nil {
		return "", err
	}
	if a.issuer != "" {
		if err := token.Set(jwt.IssuerKey, a.issuer); err != nil {
			return "", err
		}
	}
	if a.audience != "" {
		if err := token.Set(jwt.AudienceKey, []string{a.audience}); err != nil {
			return "", err
		}
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), a.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}
