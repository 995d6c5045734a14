package otp

import (
	"crypto/rand"

	"golang.org/x/crypto/bcrypt"
)

const cost = 10 // bcrypt cost; codes are short-lived so a moderate factor is enough

// GenerateNumericCode generates a numeric one-time code of the given length
// from a cryptographically strong source.
func GenerateNumericCode(length int) string {
	const digits = "0123456789"
	b := make([]byte, length)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = digits[int(b[i])%len(digits)]
	}
	return string(b)
}

// Hash hashes a one-time code for storage. Codes are never stored in plain text.
func Hash(code string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	return string(bytes), err
}

// Verify compares a submitted code with the stored hash
func Verify(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
