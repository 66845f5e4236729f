package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

// Identifier formats accepted by Config.IDFormat.
const (
	IDFormatRandom = "random"
	IDFormatUUID   = "uuid"
)

// IDGenerator produces session and manager identifiers.
type IDGenerator func() (string, error)

// RandomID returns 256 bits from crypto/rand, base64url encoded.
func RandomID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// UUIDID returns a random (version 4) UUID.
func UUIDID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return id.String(), nil
}

func generatorFor(format string) IDGenerator {
	if format == IDFormatUUID {
		return UUIDID
	}
	return RandomID
}
