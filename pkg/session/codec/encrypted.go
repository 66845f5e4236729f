package codec

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dmitrymomot/kvsession/pkg/session"
)

type encrypted struct {
	inner session.Codec
	aead  cipher.AEAD
}

// Encrypted wraps inner so payloads are sealed with XChaCha20-Poly1305.
// key must be chacha20poly1305.KeySize (32) bytes. Each payload carries its
// own random nonce.
func Encrypted(inner session.Codec, key []byte) (session.Codec, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.Join(ErrInvalidKey, fmt.Errorf("got %d bytes, want %d", len(key), chacha20poly1305.KeySize))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}
	return encrypted{inner: inner, aead: aead}, nil
}

func (c encrypted) Encode(s *session.Session) ([]byte, error) {
	plain, err := c.inner.Encode(s)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plain, nil), nil
}

func (c encrypted) Decode(data []byte, f session.Factory) (*session.Session, error) {
	ns := c.aead.NonceSize()
	if len(data) < ns+c.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	plain, err := c.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return nil, errors.Join(ErrDecrypt, err)
	}
	return c.inner.Decode(plain, f)
}
