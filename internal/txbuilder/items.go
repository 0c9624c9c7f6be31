package txbuilder

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/mrz1836/dnawallet/internal/pqsig"
)

// ItemType is the leading tag byte of every item.
type ItemType uint8

// Item tags.
const (
	TypeIn      ItemType = 0x00
	TypeOutExt  ItemType = 0x11
	TypeOut     ItemType = 0x12
	TypeSig     ItemType = 0x30
	TypeOutCond ItemType = 0x61
	TypeTSD     ItemType = 0x80
)

// String returns the item name used in the JSON form.
func (t ItemType) String() string {
	switch t {
	case TypeIn:
		return "in"
	case TypeOut:
		return "out"
	case TypeOutExt:
		return "out_ext"
	case TypeOutCond:
		return "out_cond"
	case TypeTSD:
		return "tsd"
	case TypeSig:
		return "sig"
	default:
		return fmt.Sprintf("unknown_0x%02x", uint8(t))
	}
}

// CondSubtypeFee marks a conditional output that pays the validator fee.
const CondSubtypeFee uint8 = 0x04

// Field widths.
const (
	HashSize   = 32
	ValueSize  = 32
	TickerSize = 10
)

// Item is one typed element of a transaction.
type Item interface {
	Type() ItemType
	// appendTo writes the item, tag byte first.
	appendTo(b []byte) []byte
}

// In spends a previous output.
type In struct {
	PrevHash [HashSize]byte
	OutIndex uint32
}

// Out pays a native-asset value to an address.
type Out struct {
	Value   *uint256.Int
	Address string
}

// OutExt pays a non-native asset identified by ticker.
type OutExt struct {
	Value   *uint256.Int
	Ticker  string
	Address string
}

// OutCond is a conditional output. Only the validator fee uses it.
type OutCond struct {
	Subtype uint8
	Value   *uint256.Int
	Expires uint64
}

// TSD carries typed custom data. Data is stored with its exact length.
type TSD struct {
	DataType uint16
	Data     []byte
}

// Sig wraps a signature and the signer's public key.
type Sig struct {
	SigType   pqsig.SigType
	PublicKey []byte
	Signature []byte
}

// Type implements Item.
func (In) Type() ItemType { return TypeIn }

// Type implements Item.
func (Out) Type() ItemType { return TypeOut }

// Type implements Item.
func (OutExt) Type() ItemType { return TypeOutExt }

// Type implements Item.
func (OutCond) Type() ItemType { return TypeOutCond }

// Type implements Item.
func (TSD) Type() ItemType { return TypeTSD }

// Type implements Item.
func (Sig) Type() ItemType { return TypeSig }

func (i In) appendTo(b []byte) []byte {
	b = append(b, byte(TypeIn))
	b = append(b, i.PrevHash[:]...)
	return binary.LittleEndian.AppendUint32(b, i.OutIndex)
}

func (o Out) appendTo(b []byte) []byte {
	b = append(b, byte(TypeOut))
	b = appendValue(b, o.Value)
	return appendAddress(b, o.Address)
}

func (o OutExt) appendTo(b []byte) []byte {
	b = append(b, byte(TypeOutExt))
	b = appendValue(b, o.Value)
	var ticker [TickerSize]byte
	copy(ticker[:], o.Ticker)
	b = append(b, ticker[:]...)
	return appendAddress(b, o.Address)
}

func (o OutCond) appendTo(b []byte) []byte {
	b = append(b, byte(TypeOutCond), o.Subtype)
	b = appendValue(b, o.Value)
	return binary.LittleEndian.AppendUint64(b, o.Expires)
}

func (d TSD) appendTo(b []byte) []byte {
	b = append(b, byte(TypeTSD))
	b = binary.LittleEndian.AppendUint16(b, d.DataType)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(d.Data))) //nolint:gosec // checked in AddCustomData
	return append(b, d.Data...)
}

func (s Sig) appendTo(b []byte) []byte {
	b = append(b, byte(TypeSig))
	b = binary.LittleEndian.AppendUint32(b, uint32(s.SigType))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s.PublicKey))) //nolint:gosec // key sizes are small
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s.Signature))) //nolint:gosec // signature sizes are small
	b = append(b, s.PublicKey...)
	return append(b, s.Signature...)
}

// appendValue writes v as 32 bytes little-endian.
func appendValue(b []byte, v *uint256.Int) []byte {
	for i := range 4 {
		b = binary.LittleEndian.AppendUint64(b, v[i])
	}
	return b
}

func readValue(b []byte) *uint256.Int {
	var v uint256.Int
	for i := range v {
		v[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return &v
}

func appendAddress(b []byte, addr string) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(len(addr))) //nolint:gosec // checked by the builder
	return append(b, addr...)
}

// tickerString trims the NUL padding of a ticker field.
func tickerString(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}
