package walletfile

import "encoding/binary"

// field is one fixed-width slot of the on-disk header. Writer and reader
// both go through the same table, so an offset lives in exactly one place.
type field struct {
	offset int
	size   int
}

func (f field) end() int { return f.offset + f.size }

func (f field) slice(b []byte) []byte { return b[f.offset:f.end()] }

func (f field) putUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(f.slice(b), v) }
func (f field) putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(f.slice(b), v) }
func (f field) getUint16(b []byte) uint16    { return binary.LittleEndian.Uint16(f.slice(b)) }
func (f field) getUint32(b []byte) uint32    { return binary.LittleEndian.Uint32(f.slice(b)) }

// Wallet file header, 23 bytes:
//
//	0  magic    [8]  "DWALLET\x00"
//	8  version  u32
//	12 type     u8
//	13 padding  [8]
//	21 nameLen  u16
//
//nolint:gochecknoglobals // layout table
var header = struct {
	magic, version, typ, padding, nameLen field
	size                                  int
}{
	magic:   field{0, 8},
	version: field{8, 4},
	typ:     field{12, 1},
	padding: field{13, 8},
	nameLen: field{21, 2},
	size:    23,
}

// Certificate header that follows the name, then fixed zero padding.
//
//nolint:gochecknoglobals // layout table
var cert = struct {
	version, sigType field
	size             int
	padding          int
}{
	version: field{0, 4},
	sigType: field{4, 4},
	size:    8,
	padding: 89,
}

// Serialized key record: u64 total record length, u32 kind, raw key.
//
//nolint:gochecknoglobals // layout table
var keyRecord = struct {
	length, kind field
	size         int
}{
	length: field{0, 8},
	kind:   field{8, 4},
	size:   12,
}
