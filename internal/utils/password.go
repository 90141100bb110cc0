package utils

import (
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are cut on a
// UTF-8 boundary to keep hashing and verification consistent.
const bcryptMaxBytes = 72

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword(truncatePassword(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(plain)) == nil
}

func truncatePassword(plain string) []byte {
	b := []byte(plain)
	if len(b) <= bcryptMaxBytes {
		return b
	}
	b = b[:bcryptMaxBytes]
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return b
}
