package hdkey

import (
	"fmt"
	"strconv"
	"strings"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// ETHPath is the conventional first Ethereum account (coin type 60).
const ETHPath = "m/44'/60'/0'/0/0"

// ParsePath parses a path such as "m/44'/60'/0'/0/0" into child indices.
// A trailing ', h or H marks a hardened component. Components must be decimal
// and no larger than 0x7FFFFFFF before the hardened bit is applied.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if parts[0] != "m" {
		return nil, pathError(path, "must start with 'm'")
	}

	indices := make([]uint32, 0, len(parts)-1)
	for pos, part := range parts[1:] {
		hardened := false
		if n := len(part); n > 0 {
			switch part[n-1] {
			case '\'', 'h', 'H':
				hardened = true
				part = part[:n-1]
			}
		}

		if part == "" || !isDigits(part) {
			return nil, pathError(path, fmt.Sprintf("component %d is not a number", pos+1))
		}

		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil || n >= uint64(HardenedKeyStart) {
			return nil, pathError(path, fmt.Sprintf("component %d out of range", pos+1))
		}

		idx := uint32(n)
		if hardened {
			idx |= HardenedKeyStart
		}
		indices = append(indices, idx)
	}

	if len(indices) > MaxDepth {
		return nil, pathError(path, "too many components")
	}

	return indices, nil
}

// FormatPath renders indices back into path notation using ' for hardened.
func FormatPath(indices []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range indices {
		b.WriteByte('/')
		if idx >= HardenedKeyStart {
			b.WriteString(strconv.FormatUint(uint64(idx-HardenedKeyStart), 10))
			b.WriteByte('\'')
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(idx), 10))
	}
	return b.String()
}

// DerivePath derives the key at path from seed. The path is validated before
// any key material is computed. Intermediate nodes are wiped as soon as their
// child exists.
func DerivePath(seed []byte, path string) (*ExtendedKey, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	master, err := NewMaster(seed)
	if err != nil {
		return nil, err
	}

	return master.DeriveIndices(indices)
}

// DeriveIndices walks indices from k. The receiver is consumed: it is wiped
// once the first child is derived, and also on error.
func (k *ExtendedKey) DeriveIndices(indices []uint32) (*ExtendedKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.Child(idx)
		current.Zero()
		if err != nil {
			return nil, fmt.Errorf("deriving %s: %w", FormatPath(indices), err)
		}
		current = child
	}
	return current, nil
}

// DeriveETH derives the key at m/44'/60'/0'/0/0.
func DeriveETH(seed []byte) (*ExtendedKey, error) {
	return DerivePath(seed, ETHPath)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func pathError(path, reason string) error {
	return walleterr.WithDetails(walleterr.ErrInvalidPath, map[string]string{
		"path":   path,
		"reason": reason,
	})
}
