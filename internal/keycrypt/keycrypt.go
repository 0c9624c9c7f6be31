// Package keycrypt encrypts private key material at rest.
//
// File format (65-byte header, then ciphertext):
//
//	"DNAK" | version 0x01 | salt[32] | nonce[12] | tag[16] | ciphertext
//
// The key is PBKDF2-HMAC-SHA256 over the password and salt, the cipher is
// ChaCha20-Poly1305. The ciphertext is exactly as long as the plaintext.
// A file without the magic is a legacy plaintext key.
package keycrypt

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"github.com/mrz1836/dnawallet/internal/secure"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Format constants.
const (
	Magic      = "DNAK"
	Version    = 0x01
	SaltSize   = 32
	NonceSize  = chacha20poly1305.NonceSize
	TagSize    = chacha20poly1305.Overhead
	HeaderSize = len(Magic) + 1 + SaltSize + NonceSize + TagSize

	// Iterations is the PBKDF2 round count. It is not stored in the file,
	// so changing it makes existing files unreadable.
	Iterations = 210_000
)

const (
	versionOffset = len(Magic)
	saltOffset    = versionOffset + 1
	nonceOffset   = saltOffset + SaltSize
	tagOffset     = nonceOffset + NonceSize
)

// ErrPasswordRequired is returned when an encrypted key is opened without a password.
var ErrPasswordRequired = &walleterr.WalletError{
	Code:       "PASSWORD_REQUIRED",
	Message:    "key file is password protected",
	Suggestion: "supply the wallet password",
	ExitCode:   walleterr.ExitAuth,
	Category:   walleterr.CategoryInput,
}

// IsEncrypted reports whether data starts with the DNAK magic.
func IsEncrypted(data []byte) bool {
	return len(data) >= len(Magic) && bytes.Equal(data[:len(Magic)], []byte(Magic))
}

func deriveKey(password, salt []byte) *secure.Bytes {
	return secure.Take(pbkdf2.Key(password, salt, Iterations, chacha20poly1305.KeySize, sha256.New))
}

// Encrypt seals plain under password with a fresh salt and nonce.
func Encrypt(plain, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: empty password", walleterr.ErrInvalidInput)
	}

	out := make([]byte, HeaderSize+len(plain))
	copy(out, Magic)
	out[versionOffset] = Version

	salt := out[saltOffset:nonceOffset]
	nonce := out[nonceOffset:tagOffset]
	random, err := secure.RandomBytes(SaltSize + NonceSize)
	if err != nil {
		return nil, fmt.Errorf("reading salt and nonce: %w", err)
	}
	copy(salt, random[:SaltSize])
	copy(nonce, random[SaltSize:])

	key := deriveKey(password, salt)
	defer key.Destroy()

	aead, err := chacha20poly1305.New(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	// Seal appends the tag after the ciphertext; the file stores it first.
	sealed := aead.Seal(nil, nonce, plain, nil)
	copy(out[tagOffset:HeaderSize], sealed[len(plain):])
	copy(out[HeaderSize:], sealed[:len(plain)])
	secure.Zero(sealed)

	return out, nil
}

// Decrypt verifies and opens a DNAK blob. On any failure no plaintext is
// returned and ErrDecryptionFailed (or ErrWalletCorrupt for a malformed
// header) is reported.
func Decrypt(blob, password []byte) (*secure.Bytes, error) {
	if !IsEncrypted(blob) {
		return nil, fmt.Errorf("%w: missing DNAK header", walleterr.ErrWalletCorrupt)
	}
	if len(blob) < HeaderSize {
		return nil, fmt.Errorf("%w: encrypted key truncated (%d bytes)", walleterr.ErrWalletCorrupt, len(blob))
	}
	if blob[versionOffset] != Version {
		return nil, fmt.Errorf("%w: unsupported key file version %d", walleterr.ErrWalletCorrupt, blob[versionOffset])
	}
	if len(password) == 0 {
		return nil, ErrPasswordRequired
	}

	key := deriveKey(password, blob[saltOffset:nonceOffset])
	defer key.Destroy()

	aead, err := chacha20poly1305.New(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	ct := blob[HeaderSize:]
	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, blob[tagOffset:HeaderSize]...)

	plain, err := aead.Open(nil, blob[nonceOffset:tagOffset], sealed, nil)
	if err != nil {
		secure.Zero(plain)
		return nil, walleterr.ErrDecryptionFailed
	}
	return secure.Take(plain), nil
}
