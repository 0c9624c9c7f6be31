package walletfile

import (
	"encoding/binary"
	"fmt"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// SerializeKey frames raw key bytes as a key record.
func SerializeKey(kind uint32, raw []byte) []byte {
	out := make([]byte, keyRecord.size+len(raw))
	binary.LittleEndian.PutUint64(keyRecord.length.slice(out), uint64(len(out)))
	keyRecord.kind.putUint32(out, kind)
	copy(out[keyRecord.size:], raw)
	return out
}

// ParseKey splits a key record into its kind and raw bytes. The raw slice
// aliases record.
func ParseKey(record []byte) (kind uint32, raw []byte, err error) {
	n, err := recordLen(record)
	if err != nil {
		return 0, nil, err
	}
	if n != len(record) {
		return 0, nil, corrupt("key record has %d trailing bytes", len(record)-n)
	}
	return keyRecord.kind.getUint32(record), record[keyRecord.size:], nil
}

// recordLen reads and bounds-checks the length prefix of the record at the start of b.
func recordLen(b []byte) (int, error) {
	if len(b) < keyRecord.size {
		return 0, corrupt("key record truncated: %d bytes", len(b))
	}
	n := binary.LittleEndian.Uint64(keyRecord.length.slice(b))
	if n < uint64(keyRecord.size) || n > uint64(len(b)) {
		return 0, corrupt("key record length %d out of range (have %d)", n, len(b))
	}
	return int(n), nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", walleterr.ErrWalletCorrupt, fmt.Sprintf(format, args...))
}
