package net

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s, err := NewSigner()
	require.NoError(t, err)

	value := s.Sign(42, "wren")
	id, username, ok := s.Verify(value)
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "wren", username)
}

func TestVerifyRejectsTamperedValue(t *testing.T) {
	s, err := NewSigner()
	require.NoError(t, err)

	value := s.Sign(42, "wren")
	raw, err := base64.StdEncoding.DecodeString(value)
	require.NoError(t, err)
	forged := base64.StdEncoding.EncodeToString(
		[]byte(strings.Replace(string(raw), "42|wren|", "43|wren|", 1)))

	_, _, ok := s.Verify(forged)
	assert.False(t, ok)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	a, err := NewSigner()
	require.NoError(t, err)
	b, err := NewSigner()
	require.NoError(t, err)

	_, _, ok := b.Verify(a.Sign(42, "wren"))
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedValues(t *testing.T) {
	s, err := NewSigner()
	require.NoError(t, err)

	for _, value := range []string{
		"",
		"not base64!",
		base64.StdEncoding.EncodeToString([]byte("no separators")),
		base64.StdEncoding.EncodeToString([]byte("x|wren|AAAA")),
		base64.StdEncoding.EncodeToString([]byte("42|wren|not base64!")),
	} {
		_, _, ok := s.Verify(value)
		assert.False(t, ok, "value %q", value)
	}
}
