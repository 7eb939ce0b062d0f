// Package cryptox implements the symmetric encryption applied to file
// contents before they ever leave the sender. AES-256-GCM, one fresh key
// per upload operation, one fresh nonce per file.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes. The nonce is prepended
	// to every ciphertext.
	NonceSize = 12
	// Overhead is the total ciphertext expansion: nonce plus GCM tag.
	Overhead = NonceSize + 16

	// SaltSize is the salt length used for passphrase-derived keys.
	SaltSize = 16
)

// GenerateKey returns a fresh random 256-bit key.
//
// A key must never outlive its upload operation: nonces are only 96 bits,
// so a new operation always draws a new key rather than reusing an old one
// with new nonces.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("key generation: %w", err)
	}
	return key, nil
}

// GenerateSalt returns a fresh random salt for DeriveKey.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt generation: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 256-bit key from a passphrase and salt using argon2id.
// Used for passphrase-protected share links, where the link carries the salt
// instead of the key itself.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// Encrypt seals plaintext with AES-256-GCM under key and returns the blob
// nonce ‖ ciphertext ‖ tag. A new random 12-byte nonce is generated for
// every call.
func Encrypt(key []byte, plaintext []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	// Seal appends to the nonce so the blob is self-contained.
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. It fails closed: a truncated
// blob, a flipped bit anywhere in ciphertext or tag, or a wrong key all
// return an error wrapping common.ErrorAuthentication, never garbled
// plaintext.
func Decrypt(key []byte, blob []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < Overhead {
		return nil, fmt.Errorf("blob too short (%d bytes): %w", len(blob), common.ErrorAuthentication)
	}

	nonce, ciphertext := blob[:NonceSize], blob[NonceSize:]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, common.ErrorAuthentication)
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length %d, want %d", len(key), KeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
