package codec

import "errors"

var (
	// ErrInvalidKey indicates an encryption key of the wrong size
	ErrInvalidKey = errors.New("codec.invalid_key")

	// ErrCiphertextTooShort indicates a payload shorter than the nonce
	ErrCiphertextTooShort = errors.New("codec.ciphertext_too_short")

	// ErrDecrypt indicates authentication of an encrypted payload failed
	ErrDecrypt = errors.New("codec.decrypt_failed")
)
