package id

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUUID(t *testing.T) {
	_, err := uuid.Parse(New())
	require.NoError(t, err)
	assert.NotEqual(t, New(), New())
}

func TestShareTokenShape(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z0-9]{10}$`)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		tok := ShareToken()
		assert.Regexp(t, pattern, tok)
		assert.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}

func TestShareTokenRedrawsBiasedBytes(t *testing.T) {
	// 252..255 would wrap onto "abcd" under a plain modulo.
	src := append([]byte{252, 253, 254, 255}, bytes.Repeat([]byte{1, 35, 36, 251}, 10)...)
	tok, err := shareToken(bytes.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "b9a9b9a9b9", tok)

	_, err = shareToken(bytes.NewReader([]byte{255, 255}))
	assert.Error(t, err)
}
