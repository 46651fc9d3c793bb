package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	audienceCustom  = "custom"
	audienceSession = "session"
)

// DefaultSessionTTL applies when TokenConfig.SessionTTL is unset.
const DefaultSessionTTL = 24 * time.Hour

// TokenConfig defines how custom and session tokens are signed and verified.
type TokenConfig struct {
	Issuer     string
	Key        []byte
	SessionTTL time.Duration
	Now        func() time.Time
}

func (c TokenConfig) validate() error {
	if strings.TrimSpace(c.Issuer) == "" {
		return errors.New("token issuer is required")
	}
	if len(c.Key) == 0 {
		return errors.New("token signing key is required")
	}
	return nil
}

func (c TokenConfig) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c TokenConfig) sessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return c.SessionTTL
}

// sign issues an HS256 token for the given audience.
func (c TokenConfig) sign(audience, subject, id string, ttl time.Duration) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.Issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        id,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// verify parses a token and checks issuer, audience, expiry and subject.
func (c TokenConfig) verify(token, audience string) (*jwt.RegisteredClaims, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("token is required")
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.Key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.Issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token subject is required")
	}
	return &claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("token expired: %w", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("token signature invalid: %w", err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("token not issued for this portal: %w", err)
	default:
		return fmt.Errorf("token invalid: %w", err)
	}
}
