package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ed25519Flag prefixes the public key before hashing, as Sui does.
const ed25519Flag = 0x00

var ErrBadPublicKey = errors.New("public key must be 32 hex-encoded bytes")

// Address derives the 0x-prefixed wallet address of an ed25519 key.
func Address(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, 1+len(pub))
	buf = append(buf, ed25519Flag)
	buf = append(buf, pub...)
	sum := blake2b.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:])
}

// ParsePublicKey decodes a hex public key, with or without 0x.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil, ErrBadPublicKey
	}
	return ed25519.PublicKey(b), nil
}
