package id

import (
	"crypto/rand"
	"io"

	"github.com/google/uuid"
)

const tokenChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// New returns a random UUID used for users, attempts, results and bank entries.
func New() string {
	return uuid.NewString()
}

// ShareToken creates a short, URL-safe 10-character token for shared exams.
func ShareToken() string {
	tok, err := shareToken(rand.Reader)
	if err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return tok
}

// shareToken draws from src with rejection sampling: bytes at or above the
// largest multiple of len(tokenChars) are redrawn so every character is equally likely.
func shareToken(src io.Reader) (string, error) {
	const (
		size  = 10
		limit = 256 - 256%len(tokenChars)
	)
	out := make([]byte, 0, size)
	buf := make([]byte, 2*size)
	for len(out) < size {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, tokenChars[int(b)%len(tokenChars)])
			if len(out) == size {
				break
			}
		}
	}
	return string(out), nil
}
