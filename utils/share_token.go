package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// GenerateShareToken returns a random token for read-only report links. The
// plaintext is shown once; only the bcrypt hash is stored on the dataset.
func GenerateShareToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateShareSlug returns a short URL-safe slug for the share link path.
func GenerateShareSlug() (string, error) {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func HashShareToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty token")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	return string(hash), err
}

func VerifyShareToken(hashed, token string) bool {
	if hashed == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(token)) == nil
}
