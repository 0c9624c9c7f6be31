// Package fileutil provides the crash-safe file writes used for wallet and key files.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Permissions for secret material.
const (
	SecretFilePerm os.FileMode = 0o600
	SecretDirPerm  os.FileMode = 0o700
)

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// WriteAtomic replaces path with data: temp file in the same directory,
// fsync, rename, then a best effort directory sync. A crash at any point
// leaves either the old file or the new one, never a mix. Concurrent
// writers are not serialized; the last rename wins.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	return writeTemp(path, data, perm, func(tmp string) error {
		return os.Rename(tmp, path) //nolint:gosec // G703: path is built by the caller
	})
}

// WriteNew is WriteAtomic that refuses to replace an existing file.
// The temp file is hard-linked into place so the existence check and the
// publish are one step.
func WriteNew(path string, data []byte, perm os.FileMode) error {
	return writeTemp(path, data, perm, func(tmp string) error {
		if err := os.Link(tmp, path); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return walleterr.WithDetails(walleterr.ErrWalletExists, map[string]string{"path": path})
			}
			return err
		}
		return nil
	})
}

func writeTemp(path string, data []byte, perm os.FileMode, publish func(tmp string) error) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmpFile.Close()
		}
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("setting temp file permissions: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	closed = true

	if err := publish(tmpPath); err != nil {
		return fmt.Errorf("publishing %s: %w", filepath.Base(path), err)
	}

	// Best effort directory sync for rename durability.
	if dirFile, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from path
		_ = dirFile.Sync()
		_ = dirFile.Close()
	}

	return nil
}

// EnsureDir creates dir and its parents with owner-only permissions.
func EnsureDir(dir string) error {
	if dir == "" {
		return ErrEmptyPath
	}
	if err := os.MkdirAll(dir, SecretDirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
