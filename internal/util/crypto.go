package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	tokenBytes = 32
	slugBytes  = 12
)

func randomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateToken returns 32 random bytes, hex encoded. Used for session
// cookies and OAuth state.
func GenerateToken() (string, error) {
	return randomHex(tokenBytes)
}

// GenerateSlug returns a 24 character opaque vault slug.
func GenerateSlug() (string, error) {
	return randomHex(slugBytes)
}

// GenerateNonce returns n random bytes, hex encoded.
func GenerateNonce(n int) (string, error) {
	return randomHex(n)
}

// NumericCode returns n uniformly distributed random decimal digits.
func NumericCode(n int) (string, error) {
	digits := make([]byte, n)
	ten := big.NewInt(10)
	for i := range digits {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}

func HmacSHA256(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// HashWithSecret is the one-way hash stored in place of session tokens and
// login codes.
func HashWithSecret(secret, value string) string {
	return HmacSHA256(secret, value)
}

// HmacSHA256Raw returns the raw MAC bytes.
func HmacSHA256Raw(secret, data string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return h.Sum(nil)
}

// ConstantTimeEqual reports whether a and b are equal. A length mismatch
// returns false immediately; equal-length inputs are compared in constant time.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
