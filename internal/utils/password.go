package utils

import (
	"errors" // Sentinel errors

	"golang.org/x/crypto/bcrypt" // Password hashing
)

// Password length bounds; bcrypt ignores input past 72 bytes
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// ErrPasswordLength is returned for passwords outside the allowed length
var ErrPasswordLength = errors.New("password must be 8-72 characters")

// ValidPassword checks if the password length is between 8 and 72 characters
func ValidPassword(password string) bool {
	return len(password) >= MinPasswordLen && len(password) <= MaxPasswordLen
}

// HashPassword validates and bcrypt-hashes a password
func HashPassword(password string) (string, error) {
	if !ValidPassword(password) {
		return "", ErrPasswordLength
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
