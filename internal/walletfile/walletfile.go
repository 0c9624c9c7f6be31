// Package walletfile encodes and decodes the cell chain's .walletext wallet
// files and derives addresses from their public keys.
//
// The byte layout is shared with an external wallet application; every
// offset comes from the tables in layout.go.
package walletfile

import (
	"bytes"
	"fmt"

	"github.com/mrz1836/dnawallet/internal/pqsig"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Extension is the file suffix for cell wallets.
const Extension = ".walletext"

// Magic opens every wallet file.
const Magic = "DWALLET\x00"

// Format versions.
const (
	Version     uint32 = 1
	CertVersion uint32 = 1
)

// MaxNameLen bounds the wallet name.
const MaxNameLen = 64

// Type tells whether the private key record is password protected.
type Type uint8

// Wallet types.
const (
	TypePlain     Type = 0
	TypeProtected Type = 1
)

// File is a decoded wallet file. For TypeProtected files the raw bytes of
// the private key record are a DNAK blob rather than the key itself.
type File struct {
	Version    uint32
	Type       Type
	Name       string
	SigType    pqsig.SigType
	PublicKey  []byte // serialized key record
	PrivateKey []byte // serialized key record
}

// Encode writes f in the on-disk layout.
func Encode(f *File) ([]byte, error) {
	if f.Name == "" || len(f.Name) > MaxNameLen {
		return nil, fmt.Errorf("%w: wallet name must be 1-%d bytes", walleterr.ErrInvalidInput, MaxNameLen)
	}
	if f.Type != TypePlain && f.Type != TypeProtected {
		return nil, fmt.Errorf("%w: unknown wallet type %d", walleterr.ErrInvalidInput, f.Type)
	}
	if _, _, err := ParseKey(f.PublicKey); err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	if _, _, err := ParseKey(f.PrivateKey); err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}

	version := f.Version
	if version == 0 {
		version = Version
	}

	size := header.size + len(f.Name) + cert.size + cert.padding + len(f.PublicKey) + len(f.PrivateKey)
	out := make([]byte, size)

	copy(header.magic.slice(out), Magic)
	header.version.putUint32(out, version)
	out[header.typ.offset] = byte(f.Type)
	header.nameLen.putUint16(out, uint16(len(f.Name))) //nolint:gosec // bounded by MaxNameLen

	pos := header.size
	pos += copy(out[pos:], f.Name)

	certBuf := out[pos : pos+cert.size]
	cert.version.putUint32(certBuf, CertVersion)
	cert.sigType.putUint32(certBuf, uint32(f.SigType))
	pos += cert.size + cert.padding

	pos += copy(out[pos:], f.PublicKey)
	copy(out[pos:], f.PrivateKey)

	return out, nil
}

// Decode parses a wallet file. Any structural problem returns ErrWalletCorrupt.
// The returned key slices are copies.
func Decode(data []byte) (*File, error) {
	if len(data) < header.size {
		return nil, corrupt("file shorter than header (%d bytes)", len(data))
	}
	if !bytes.Equal(header.magic.slice(data), []byte(Magic)) {
		return nil, corrupt("bad magic")
	}

	f := &File{
		Version: header.version.getUint32(data),
		Type:    Type(data[header.typ.offset]),
	}
	if f.Type != TypePlain && f.Type != TypeProtected {
		return nil, corrupt("unknown wallet type %d", f.Type)
	}

	pos := header.size
	nameLen := int(header.nameLen.getUint16(data))
	if nameLen == 0 || pos+nameLen > len(data) {
		return nil, corrupt("name length %d out of range", nameLen)
	}
	f.Name = string(data[pos : pos+nameLen])
	pos += nameLen

	if pos+cert.size+cert.padding > len(data) {
		return nil, corrupt("certificate header truncated")
	}
	certBuf := data[pos : pos+cert.size]
	f.SigType = pqsig.SigType(cert.sigType.getUint32(certBuf))
	pos += cert.size + cert.padding

	pubLen, err := recordLen(data[pos:])
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	f.PublicKey = bytes.Clone(data[pos : pos+pubLen])
	pos += pubLen

	privLen, err := recordLen(data[pos:])
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	if pos+privLen != len(data) {
		return nil, corrupt("%d trailing bytes after private key", len(data)-pos-privLen)
	}
	f.PrivateKey = bytes.Clone(data[pos:])

	return f, nil
}

// Protected reports whether the private key record holds an encrypted blob.
func (f *File) Protected() bool { return f.Type == TypeProtected }

// RawPublicKey returns the public key without its record framing.
func (f *File) RawPublicKey() []byte {
	_, raw, _ := ParseKey(f.PublicKey)
	return raw
}

// RawPrivateKey returns the private key (or DNAK blob) without its record framing.
// The slice aliases f.PrivateKey.
func (f *File) RawPrivateKey() []byte {
	_, raw, _ := ParseKey(f.PrivateKey)
	return raw
}

// Wipe zeroes the private key record.
func (f *File) Wipe() {
	clear(f.PrivateKey)
}
