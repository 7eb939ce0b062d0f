// Package keycodec serializes encryption keys into URL-safe tokens for
// embedding in share links, and back. The token is the only copy of the key
// outside the sender's machine, so decoding must either recover the exact
// key or fail loudly.
package keycodec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/cryptox"
)

const (
	keyType   = "oct"
	algorithm = "A256GCM"
)

// envelope is a minimal JWK-style wrapper, so a token is self-describing
// and an old token with a different algorithm is rejected instead of being
// fed to the wrong cipher.
type envelope struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	K   string `json:"k"`
}

// Encode serializes a 256-bit key into a URL-safe token.
func Encode(key []byte) (string, error) {
	if len(key) != cryptox.KeySize {
		return "", fmt.Errorf("invalid key length %d, want %d", len(key), cryptox.KeySize)
	}

	env := envelope{
		Kty: keyType,
		Alg: algorithm,
		K:   base64.RawURLEncoding.EncodeToString(key),
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode is the exact inverse of Encode. Malformed base64, malformed JSON,
// an unexpected algorithm, or a wrong key length each fail with an error
// wrapping common.ErrorInvalidKeyToken. A default key is never substituted.
func Decode(token string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("token is not valid base64url: %w", common.ErrorInvalidKeyToken)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("token envelope is not valid JSON: %w", common.ErrorInvalidKeyToken)
	}

	if env.Kty != keyType || env.Alg != algorithm {
		return nil, fmt.Errorf("unexpected key type %q/%q: %w", env.Kty, env.Alg, common.ErrorInvalidKeyToken)
	}

	key, err := base64.RawURLEncoding.DecodeString(env.K)
	if err != nil {
		return nil, fmt.Errorf("key material is not valid base64url: %w", common.ErrorInvalidKeyToken)
	}
	if len(key) != cryptox.KeySize {
		return nil, fmt.Errorf("invalid key length %d: %w", len(key), common.ErrorInvalidKeyToken)
	}

	return key, nil
}

// EncodeSalt serializes an argon2 salt for passphrase-protected links.
// The salt is public, the token format just has to survive a URL.
func EncodeSalt(salt []byte) string {
	return base64.RawURLEncoding.EncodeToString(salt)
}

// DecodeSalt is the inverse of EncodeSalt.
func DecodeSalt(token string) ([]byte, error) {
	salt, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("salt is not valid base64url: %w", common.ErrorInvalidKeyToken)
	}
	if len(salt) != cryptox.SaltSize {
		return nil, fmt.Errorf("invalid salt length %d: %w", len(salt), common.ErrorInvalidKeyToken)
	}
	return salt, nil
}
