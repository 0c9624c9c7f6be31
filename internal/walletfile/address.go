package walletfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/sha3"

	"github.com/mrz1836/dnawallet/internal/pqsig"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// AddressVersion is the only address version produced.
const AddressVersion = 1

// Decoded address: ver(1) ‖ netID u64 ‖ sigType u32 ‖ pubHash[32] ‖ checksum[32].
const (
	addrNetOffset  = 1
	addrSigOffset  = 9
	addrHashOffset = 13
	addrSumOffset  = 45
	addrLen        = 77
)

// Address is a parsed cell address.
type Address struct {
	Version uint8
	NetID   uint64
	SigType pqsig.SigType
	PubHash [32]byte
}

// DeriveAddress hashes a serialized public key record into an address string.
// It needs nothing but the public key, so an address can be shown without
// writing any wallet file.
func DeriveAddress(netID uint64, sigType pqsig.SigType, serializedPub []byte) string {
	a := Address{
		Version: AddressVersion,
		NetID:   netID,
		SigType: sigType,
		PubHash: sha3.Sum256(serializedPub),
	}
	return a.String()
}

// String encodes the address with its checksum in base58.
func (a Address) String() string {
	raw := make([]byte, addrLen)
	raw[0] = a.Version
	binary.LittleEndian.PutUint64(raw[addrNetOffset:], a.NetID)
	binary.LittleEndian.PutUint32(raw[addrSigOffset:], uint32(a.SigType))
	copy(raw[addrHashOffset:addrSumOffset], a.PubHash[:])
	sum := sha3.Sum256(raw[:addrSumOffset])
	copy(raw[addrSumOffset:], sum[:])
	return base58.Encode(raw)
}

// ParseAddress decodes addr and verifies its length, version and checksum.
func ParseAddress(addr string) (Address, error) {
	raw := base58.Decode(addr)
	if len(raw) != addrLen {
		return Address{}, invalidAddress(addr, fmt.Sprintf("decoded length %d, want %d", len(raw), addrLen))
	}
	if raw[0] != AddressVersion {
		return Address{}, invalidAddress(addr, fmt.Sprintf("unknown version %d", raw[0]))
	}
	sum := sha3.Sum256(raw[:addrSumOffset])
	if !bytes.Equal(sum[:], raw[addrSumOffset:]) {
		return Address{}, invalidAddress(addr, "checksum mismatch")
	}

	a := Address{
		Version: raw[0],
		NetID:   binary.LittleEndian.Uint64(raw[addrNetOffset:]),
		SigType: pqsig.SigType(binary.LittleEndian.Uint32(raw[addrSigOffset:])),
	}
	copy(a.PubHash[:], raw[addrHashOffset:addrSumOffset])
	return a, nil
}

// ValidateAddress checks addr and that it belongs to network netID.
func ValidateAddress(addr string, netID uint64) error {
	a, err := ParseAddress(addr)
	if err != nil {
		return err
	}
	if a.NetID != netID {
		return invalidAddress(addr, fmt.Sprintf("network 0x%x, want 0x%x", a.NetID, netID))
	}
	return nil
}

func invalidAddress(addr, reason string) error {
	return walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
		"address": addr,
		"reason":  reason,
	})
}
