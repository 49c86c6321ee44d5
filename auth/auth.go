package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"

	"github.com/andrewpaige1/stakemap/models"
)

// CookieName is the cookie a browser client may carry the token in.
const CookieName = "auth_token"

// TokenConfig describes how tokens are signed and what they must claim.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// CustomClaims are the application claims carried next to the registered ones.
type CustomClaims struct {
	Nickname string `json:"nickname,omitempty"`
	Role     string `json:"role,omitempty"`
}

func (c *CustomClaims) Validate(ctx context.Context) error {
	switch models.Role(c.Role) {
	case "", models.RoleUser, models.RoleAdmin:
		return nil
	}
	return fmt.Errorf("unknown role %q", c.Role)
}

type tokenClaims struct {
	CustomClaims
	jwt.RegisteredClaims
}

// CreateToken signs an HS256 token for subject.
func CreateToken(cfg TokenConfig, subject, nickname string, role models.Role, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("auth: JWT secret key not set")
	}
	if subject == "" {
		return "", errors.New("auth: subject is required")
	}
	issued := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		CustomClaims: CustomClaims{Nickname: nickname, Role: string(role)},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	})

	tokenString, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// NewValidator builds the validator used by the JWT middleware.
func NewValidator(cfg TokenConfig) (*validator.Validator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: JWT secret key not set")
	}
	secret := []byte(cfg.Secret)
	return validator.New(
		func(ctx context.Context) (interface{}, error) {
			return secret, nil
		},
		validator.HS256,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(30*time.Second),
	)
}
