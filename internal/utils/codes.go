// internal/utils/codes.go
package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	alphanumericCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	base36UpperCharset  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

func randomFromCharset(charset string, length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(charset)))

	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

func GenerateRandomString(length int) (string, error) {
	return randomFromCharset(alphanumericCharset, length)
}

// GenerateCode returns an uppercase base36 code, used as the random suffix of
// order and quote numbers.
func GenerateCode(length int) (string, error) {
	return randomFromCharset(base36UpperCharset, length)
}

// GenerateCartSessionID returns an opaque identifier for anonymous carts.
func GenerateCartSessionID() (string, error) {
	return GenerateRandomString(40)
}
