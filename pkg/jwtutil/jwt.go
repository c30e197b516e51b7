package jwtutil

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Token validation errors. Callers branch on these with errors.Is.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
)

var (
	secret []byte
	expiry time.Duration
)

// Config holds the signing parameters loaded once at startup.
type Config struct {
	SigningKey    string
	ExpirySeconds int
}

// Initialize sets the process-wide signing key and token lifetime.
func Initialize(cfg *Config) {
	secret = []byte(cfg.SigningKey)
	expiry = time.Duration(cfg.ExpirySeconds) * time.Second
	if expiry <= 0 {
		expiry = 600 * time.Second
	}
}

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed HS256 token carrying the user id
func GenerateToken(userID uint) (string, error) {
	claims := UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates and parses the JWT token. It returns
// ErrTokenExpired for a structurally valid but expired token and
// ErrMalformedToken for anything else the parser rejects.
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrMalformedToken
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrMalformedToken
}
