// Package auth is the authentication core: credential verification, token
// issuance and revocation, and request-scoped identity resolution.
package auth

import (
	"errors"

	"collab-service/internal/model"
	"collab-service/pkg/jwtutil"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so the two cases cannot be told apart from the outside.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// Register stores a new user with a bcrypt hash of the raw password.
func Register(db *gorm.DB, username, email, password string) (*model.User, error) {
	var existing model.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return nil, ErrDuplicateUsername
	}
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrDuplicateEmail
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		Active:   true,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyCredentials returns the user when the username exists and the
// password matches its stored hash.
func VerifyCredentials(db *gorm.DB, username, password string) (*model.User, error) {
	var user model.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Issue produces a signed session token for the user. Invitation mails
// reuse the same issuer.
func Issue(userID uint) (string, error) {
	return jwtutil.GenerateToken(userID)
}

// Validate checks signature, expiry and the revocation list, in that
// order, and returns the embedded claims.
func Validate(db *gorm.DB, token string) (*jwtutil.UserClaims, error) {
	claims, err := jwtutil.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&model.BlacklistedToken{}).Where("token = ?", token).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke inserts the token into the blacklist. Revoking an already
// revoked token is a no-op.
func Revoke(db *gorm.DB, token string) error {
	var count int64
	if err := db.Model(&model.BlacklistedToken{}).Where("token = ?", token).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(&model.BlacklistedToken{Token: token}).Error
}

// ResolveUser is the gate every protected operation depends on: it
// validates the bearer token and loads the user it names. All failures
// collapse into ErrUnauthenticated.
func ResolveUser(db *gorm.DB, token string) (*model.User, error) {
	claims, err := Validate(db, token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	var user model.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return nil, ErrUnauthenticated
	}
	return &user, nil
}
