package txbuilder

import (
	"encoding/binary"
	"fmt"

	"github.com/mrz1836/dnawallet/internal/pqsig"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Tx is a decoded transaction.
type Tx struct {
	Timestamp uint64
	Count     uint32
	Items     []Item
}

// Decode parses final transaction bytes. The item count in the header must
// match the items present.
func Decode(data []byte) (*Tx, error) {
	if len(data) < HeaderSize {
		return nil, malformed("transaction shorter than header")
	}
	tx := &Tx{
		Timestamp: binary.LittleEndian.Uint64(data[tsOffset:]),
		Count:     binary.LittleEndian.Uint32(data[countOffset:]),
	}

	r := reader{buf: data, pos: HeaderSize}
	for r.remaining() > 0 {
		it, err := r.item()
		if err != nil {
			return nil, err
		}
		tx.Items = append(tx.Items, it)
	}

	if int(tx.Count) != len(tx.Items) {
		return nil, malformed(fmt.Sprintf("header counts %d items, found %d", tx.Count, len(tx.Items)))
	}
	return tx, nil
}

type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.err = malformed(fmt.Sprintf("item truncated at offset %d", r.pos))
		return nil
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) bytes(n int) []byte {
	return append([]byte(nil), r.take(n)...)
}

func (r *reader) value() []byte { return r.take(ValueSize) }

func (r *reader) address() string {
	n := int(r.u16())
	return string(r.take(n))
}

func (r *reader) item() (Item, error) {
	typ := ItemType(r.u8())
	var it Item

	switch typ {
	case TypeIn:
		var in In
		copy(in.PrevHash[:], r.take(HashSize))
		in.OutIndex = r.u32()
		it = in
	case TypeOut:
		v := r.value()
		addr := r.address()
		if r.err == nil {
			it = Out{Value: readValue(v), Address: addr}
		}
	case TypeOutExt:
		v := r.value()
		ticker := r.take(TickerSize)
		addr := r.address()
		if r.err == nil {
			it = OutExt{Value: readValue(v), Ticker: tickerString(ticker), Address: addr}
		}
	case TypeOutCond:
		sub := r.u8()
		v := r.value()
		exp := r.u64()
		if r.err == nil {
			it = OutCond{Subtype: sub, Value: readValue(v), Expires: exp}
		}
	case TypeTSD:
		dt := r.u16()
		n := r.u32()
		it = TSD{DataType: dt, Data: r.bytes(int(n))}
	case TypeSig:
		st := r.u32()
		pubLen := r.u32()
		sigLen := r.u32()
		it = Sig{SigType: pqsig.SigType(st), PublicKey: r.bytes(int(pubLen)), Signature: r.bytes(int(sigLen))}
	default:
		return nil, malformed(fmt.Sprintf("unknown item type 0x%02x at offset %d", uint8(typ), r.pos-1))
	}

	if r.err != nil {
		return nil, r.err
	}
	return it, nil
}

func malformed(reason string) error {
	return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"transaction": reason})
}
