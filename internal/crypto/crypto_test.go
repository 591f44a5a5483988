package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	s, err := NewSealer("app-secret")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("Your message has been sent successfully!"))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "message")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "Your message has been sent successfully!", string(opened))
}

func TestSealIsRandomized(t *testing.T) {
	s, err := NewSealer("app-secret")
	require.NoError(t, err)

	a, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenRejectsTampering(t *testing.T) {
	s, err := NewSealer("app-secret")
	require.NoError(t, err)
	other, err := NewSealer("other-secret")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidSeal)

	_, err = s.Open("not base64 !!")
	assert.ErrorIs(t, err, ErrInvalidSeal)

	_, err = s.Open("")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = s.Seal(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestRandomSecretSealer(t *testing.T) {
	s, err := NewSealer("")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("x"))
	require.NoError(t, err)
	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "x", string(opened))
}

func TestCSRF(t *testing.T) {
	s, err := NewSealer("app-secret")
	require.NoError(t, err)
	csrf := NewCSRF(s, time.Hour)

	token, cookie, err := csrf.Issue()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, csrf.Verify(token, cookie))
	assert.ErrorIs(t, csrf.Verify("wrong", cookie), ErrInvalidSeal)
	assert.ErrorIs(t, csrf.Verify("", cookie), ErrEmptyInput)
	assert.ErrorIs(t, csrf.Verify(token, ""), ErrEmptyInput)
}

func TestCSRFExpiry(t *testing.T) {
	s, err := NewSealer("app-secret")
	require.NoError(t, err)
	csrf := NewCSRF(s, time.Minute)

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	csrf.now = func() time.Time { return start }
	token, cookie, err := csrf.Issue()
	require.NoError(t, err)

	csrf.now = func() time.Time { return start.Add(2 * time.Minute) }
	assert.ErrorIs(t, csrf.Verify(token, cookie), ErrExpired)
}
