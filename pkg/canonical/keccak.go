package canonical

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Keccak256 returns the legacy (pre-NIST) Keccak-256 digest used by EVM ledgers.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Keccak256Hex returns the digest as 0x-prefixed lower-case hex.
func Keccak256Hex(data []byte) string {
	return "0x" + hex.EncodeToString(Keccak256(data))
}

// Hash canonically encodes v and returns its 0x-prefixed keccak256 digest.
func Hash(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return Keccak256Hex(b), nil
}

// ParseHash validates a 0x-prefixed 32-byte hex digest and normalizes it to
// lower case.
func ParseHash(s string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(trimmed) != 64 {
		return "", fmt.Errorf("hash must be 32 bytes, got %d hex characters", len(trimmed))
	}
	if _, err := hex.DecodeString(trimmed); err != nil {
		return "", fmt.Errorf("invalid hash hex: %w", err)
	}
	return "0x" + strings.ToLower(trimmed), nil
}
