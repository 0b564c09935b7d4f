package tracker

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Sealed exports carry this prefix so an encrypted payload is
// distinguishable from plain JSON before any decryption attempt.
const sealedPrefix = "BCSEALED1:"

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
)

// IsSealed reports whether payload is a password-protected export.
func IsSealed(payload string) bool {
	return strings.HasPrefix(payload, sealedPrefix)
}

func deriveKey(password string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(password), salt, 1<<15, 8, 1, keySize)
}

// seal encrypts plaintext with AES-256-GCM under a key derived from the
// password. Output layout: prefix + base64(salt || nonce || ciphertext).
func seal(plaintext []byte, password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key, err := deriveKey(password, salt)
	if err != nil {
		return "", fmt.Errorf("deriving key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	buf := make([]byte, 0, saltSize+nonceSize+len(sealed))
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = append(buf, sealed...)

	return sealedPrefix + base64.StdEncoding.EncodeToString(buf), nil
}

// open decrypts a sealed payload. An authentication failure means the
// password was wrong; that case is reported as ErrWrongPassword so callers
// can distinguish it from a corrupt file.
func open(payload, password string) ([]byte, error) {
	if !IsSealed(payload) {
		return nil, ErrNotEncrypted
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, sealedPrefix))
	if err != nil {
		return nil, ErrMalformedCiphertext
	}
	if len(raw) < saltSize+nonceSize {
		return nil, ErrMalformedCiphertext
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	ciphertext := raw[saltSize+nonceSize:]

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}
