// Package auth issues and validates the signed viewer tokens that identify a
// pseudonymous user to the API. No credentials or profile data travel in the
// token, only the user id and the public username.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type values for the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Expiries and the default clock-skew allowance.
const (
	AccessTokenExpiry  = 15 * time.Minute
	RefreshTokenExpiry = 7 * 24 * time.Hour
	DefaultLeeway      = 30 * time.Second
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrEmptyUserID  = errors.New("userID cannot be empty")
)

// Claims are the application claims. Username rides along on access tokens so
// handlers can log and render the viewer's handle without a user lookup.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Type     string `json:"typ"`
}

// JWTService signs with the current secret and validates against current then
// previous, so secrets rotate without invalidating outstanding tokens.
type JWTService struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
}

// NewJWTService creates a service with a single secret and the default leeway.
func NewJWTService(secret string) *JWTService {
	return NewJWTServiceWithRotationAndLeeway(secret, "", DefaultLeeway)
}

// NewJWTServiceWithLeeway creates a single-secret service with custom leeway.
func NewJWTServiceWithLeeway(secret string, leeway time.Duration) *JWTService {
	return NewJWTServiceWithRotationAndLeeway(secret, "", leeway)
}

// NewJWTServiceWithRotation creates a dual-secret service. previousSecret may
// be empty when no rotation is in progress.
func NewJWTServiceWithRotation(currentSecret, previousSecret string) *JWTService {
	return NewJWTServiceWithRotationAndLeeway(currentSecret, previousSecret, DefaultLeeway)
}

// NewJWTServiceWithRotationAndLeeway creates a dual-secret service with custom
// leeway.
func NewJWTServiceWithRotationAndLeeway(currentSecret, previousSecret string, leeway time.Duration) *JWTService {
	var previous []byte
	if previousSecret != "" {
		previous = []byte(previousSecret)
	}
	return &JWTService{
		currentSecret:  []byte(currentSecret),
		previousSecret: previous,
		leeway:         leeway,
	}
}

func (s *JWTService) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.currentSecret)
}

// GenerateAccessToken issues a 15-minute access token carrying the user id in
// the subject and the username as a custom claim.
func (s *JWTService) GenerateAccessToken(userID, username string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}
	now := time.Now()
	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenExpiry)),
		},
		Username: username,
		Type:     TokenTypeAccess,
	})
}

// GenerateRefreshToken issues a 7-day refresh token with the user id only.
func (s *JWTService) GenerateRefreshToken(userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}
	now := time.Now()
	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenExpiry)),
		},
		Type: TokenTypeRefresh,
	})
}

// parseWith validates the token against one secret, enforcing HS256.
func (s *JWTService) parseWith(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithLeeway(s.leeway))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken parses and validates a token, trying the current secret and
// then the previous one. Expiry is reported distinctly so callers can tell a
// stale session from a forged token.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := s.parseWith(tokenString, s.currentSecret)
	if err == nil {
		return claims, nil
	}

	if s.previousSecret != nil {
		claims, prevErr := s.parseWith(tokenString, s.previousSecret)
		if prevErr == nil {
			return claims, nil
		}
		if errors.Is(prevErr, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}
