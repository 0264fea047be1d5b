package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters match the stored "<hex key>.<hex salt>" format.
const (
	saltBytes = 16
	keyLen    = 64
	scryptN   = 16384
	scryptR   = 8
	scryptP   = 1
)

var ErrMalformedHash = errors.New("malformed password hash")

func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	saltHex := hex.EncodeToString(salt)

	key, err := derive(password, saltHex)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(key) + "." + saltHex, nil
}

func CheckPassword(stored, password string) bool {
	want, saltHex, err := split(stored)
	if err != nil {
		return false
	}

	got, err := derive(password, saltHex)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(want, got) == 1
}

func derive(password, saltHex string) ([]byte, error) {
	return scrypt.Key([]byte(password), []byte(saltHex), scryptN, scryptR, scryptP, keyLen)
}

func split(stored string) ([]byte, string, error) {
	keyHex, saltHex, ok := strings.Cut(stored, ".")
	if !ok || keyHex == "" || saltHex == "" {
		return nil, "", ErrMalformedHash
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != keyLen {
		return nil, "", ErrMalformedHash
	}
	return key, saltHex, nil
}
