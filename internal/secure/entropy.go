package secure

import (
	"crypto/rand"
	"io"
)

// Reader is the randomness source for salts, nonces and entropy.
// Tests may swap it for a deterministic reader.
//
//nolint:gochecknoglobals // Package-level RNG is required for testability
var Reader io.Reader = rand.Reader

// RandomBytes returns n bytes from Reader.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// RandomSecret returns n random bytes held in a secret buffer.
func RandomSecret(n int) (*Bytes, error) {
	sb := New(n)
	if _, err := io.ReadFull(Reader, sb.Bytes()); err != nil {
		sb.Destroy()
		return nil, err
	}
	return sb, nil
}
