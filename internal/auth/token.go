// Package auth provides JWT token issuance and request authentication.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xiaot623/trainchat/internal/domain"
)

// Authentication failure reasons. ErrUnauthenticated covers a missing or
// malformed credential; ErrInvalidCredential covers a bad signature, an
// expired token, or a token whose user no longer exists.
var (
	ErrUnauthenticated   = errors.New("missing or malformed credential")
	ErrInvalidCredential = errors.New("invalid or expired credential")
)

// Claims are the JWT claims carried by trainchat access tokens.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// TokenService signs and validates access tokens.
type TokenService struct {
	secretKey []byte
	ttl       time.Duration
}

// NewTokenService creates a token service. ttl <= 0 falls back to 7 days.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenService{secretKey: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// CreateToken issues a signed token for a user.
func (ts *TokenService) CreateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.UserID,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "trainchat",
			Subject:   user.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a token string, returning its claims.
func (ts *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// ExtractBearer pulls the token out of an Authorization header value.
// Returns ErrUnauthenticated when the header is absent or not Bearer-shaped.
func ExtractBearer(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrUnauthenticated
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrUnauthenticated
	}
	return parts[1], nil
}
