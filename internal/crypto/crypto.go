// Package crypto seals small payloads such as CSRF tokens into
// tamper-proof cookie values.
package crypto

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrEmptyInput is returned when there is nothing to seal or open
	ErrEmptyInput = errors.New("input data is empty")
	// ErrInvalidSeal is returned when a sealed value fails authentication
	ErrInvalidSeal = errors.New("sealed value is invalid")
	// ErrExpired is returned when a sealed token is older than its lifetime
	ErrExpired = errors.New("sealed value has expired")
)

// Sealer compresses, encrypts and encodes payloads with a key derived
// from the application secret
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a sealer from secret. An empty secret gets a random
// per-process key, so sealed values do not survive a restart.
func NewSealer(secret string) (*Sealer, error) {
	var key [32]byte
	if secret == "" {
		if _, err := rand.Read(key[:]); err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
	} else {
		key = sha256.Sum256([]byte(secret))
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Seal compresses and encrypts data and returns it URL-safe base64 encoded
func (s *Sealer) Seal(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyInput
	}

	// 1. Compress
	var compressed bytes.Buffer
	zw, err := zlib.NewWriterLevel(&compressed, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("failed to create zlib writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("failed to compress data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to close zlib writer: %w", err)
	}

	// 2. Encrypt with a random nonce prepended
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, compressed.Bytes(), nil)

	// 3. Encode
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal
func (s *Sealer) Open(value string) ([]byte, error) {
	if value == "" {
		return nil, ErrEmptyInput
	}

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeal, err)
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, ErrInvalidSeal
	}

	compressed, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, ErrInvalidSeal
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress data: %w", err)
	}

	return data, nil
}

// RandomToken returns n random bytes encoded as URL-safe base64
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CSRF issues and verifies anti-forgery tokens. The browser keeps the sealed
// token in a cookie; the form carries the plain token.
type CSRF struct {
	sealer   *Sealer
	lifetime time.Duration
	now      func() time.Time
}

// NewCSRF creates a CSRF helper whose tokens live for lifetime
func NewCSRF(sealer *Sealer, lifetime time.Duration) *CSRF {
	return &CSRF{sealer: sealer, lifetime: lifetime, now: time.Now}
}

// Issue returns a plain token for the form and its sealed cookie value
func (c *CSRF) Issue() (token, cookie string, err error) {
	token, err = RandomToken(32)
	if err != nil {
		return "", "", err
	}

	payload := fmt.Sprintf("%d|%s", c.now().Unix(), token)
	cookie, err = c.sealer.Seal([]byte(payload))
	if err != nil {
		return "", "", err
	}
	return token, cookie, nil
}

// Verify checks that token matches the sealed cookie and has not expired
func (c *CSRF) Verify(token, cookie string) error {
	if token == "" || cookie == "" {
		return ErrEmptyInput
	}

	payload, err := c.sealer.Open(cookie)
	if err != nil {
		return err
	}

	var issued int64
	var sealedToken string
	sep := bytes.IndexByte(payload, '|')
	if sep < 0 {
		return ErrInvalidSeal
	}
	if _, err := fmt.Sscanf(string(payload[:sep]), "%d", &issued); err != nil {
		return ErrInvalidSeal
	}
	sealedToken = string(payload[sep+1:])

	if c.lifetime > 0 && c.now().Sub(time.Unix(issued, 0)) > c.lifetime {
		return ErrExpired
	}

	if subtle.ConstantTimeCompare([]byte(sealedToken), []byte(token)) != 1 {
		return ErrInvalidSeal
	}
	return nil
}
