package txbuilder

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// HashBytes returns the 0x-prefixed upper-case SHA3-256 of a transaction.
func HashBytes(final []byte) string {
	return FormatHash(sha3.Sum256(final))
}

// FormatHash renders a hash in the 0x-prefixed upper-case form.
func FormatHash(h [HashSize]byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(h[:]))
}

// ParseHash decodes a 0x-prefixed 32-byte hash in either case.
func ParseHash(s string) ([HashSize]byte, bool) {
	var out [HashSize]byte
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != HashSize {
		return out, false
	}
	copy(out[:], raw)
	return out, true
}
