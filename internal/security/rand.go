package security

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

const padIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(rand.Reader, b)
	return b, err
}

// RandomStringURLSafe returns n random bytes as unpadded base64url.
func RandomStringURLSafe(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewPadID returns n characters drawn uniformly from [a-z0-9].
func NewPadID(n int) (string, error) {
	out := make([]byte, 0, n)
	// 252 is the largest multiple of 36 below 256; higher bytes are rejected
	// so every character is equally likely.
	const limit = 252
	for len(out) < n {
		buf, err := RandomBytes(n)
		if err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, padIDAlphabet[int(b)%len(padIDAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// NewAccessKey returns a fresh pad access key.
func NewAccessKey() (string, error) {
	return RandomStringURLSafe(24)
}
