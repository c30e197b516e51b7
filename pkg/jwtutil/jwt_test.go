package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-signing-key"

func initTestConfig() {
	Initialize(&Config{SigningKey: testKey, ExpirySeconds: 600})
}

func TestGenerateAndValidateToken(t *testing.T) {
	initTestConfig()

	token, err := GenerateToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestValidateTokenExpired(t *testing.T) {
	initTestConfig()

	claims := UserClaims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testKey))
	require.NoError(t, err)

	_, err = ValidateToken(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateTokenMalformed(t *testing.T) {
	initTestConfig()

	_, err := ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestValidateTokenWrongKey(t *testing.T) {
	initTestConfig()

	claims := UserClaims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("some-other-key"))
	require.NoError(t, err)

	_, err = ValidateToken(signed)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestValidateTokenWrongAlgorithm(t *testing.T) {
	initTestConfig()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, UserClaims{UserID: 7})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(signed)
	assert.ErrorIs(t, err, ErrMalformedToken)
}
