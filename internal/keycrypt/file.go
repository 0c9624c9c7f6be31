package keycrypt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/mrz1836/dnawallet/internal/fileutil"
	"github.com/mrz1836/dnawallet/internal/secure"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// SaveKey writes key to path, encrypted when password is non-empty.
func SaveKey(path string, key, password []byte) error {
	data := key
	if len(password) > 0 {
		blob, err := Encrypt(key, password)
		if err != nil {
			return err
		}
		data = blob
	}
	return fileutil.WriteAtomic(path, data, fileutil.SecretFilePerm)
}

// LoadKey reads a key file, decrypting it when it carries the DNAK header.
// A plaintext key is still returned but logged at warn level.
func LoadKey(path string, password []byte, logger zerolog.Logger) (*secure.Bytes, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	defer secure.Zero(data)

	if IsEncrypted(data) {
		return Decrypt(data, password)
	}

	logger.Warn().
		Str("path", path).
		Msg("loaded UNENCRYPTED private key; protect it with 'dnawallet key encrypt'")
	return secure.FromSlice(data), nil
}

// ChangePassword decrypts the key at path fully and re-encrypts it with a
// fresh salt and nonce. An empty oldPassword accepts a plaintext file; an
// empty newPassword writes the key back in plaintext.
func ChangePassword(path string, oldPassword, newPassword []byte) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	defer secure.Zero(data)

	var key *secure.Bytes
	switch {
	case IsEncrypted(data):
		key, err = Decrypt(data, oldPassword)
		if err != nil {
			return err
		}
	case len(oldPassword) > 0:
		return fmt.Errorf("%w: key file is not encrypted", walleterr.ErrInvalidInput)
	default:
		key = secure.FromSlice(data)
	}
	defer key.Destroy()

	return SaveKey(path, key.Bytes(), newPassword)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the wallet store
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, walleterr.WithDetails(walleterr.ErrWalletNotFound, map[string]string{"path": path})
		}
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return data, nil
}
