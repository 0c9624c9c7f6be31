package txbuilder

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// DatumType is the datum tag of a transaction.
const DatumType = "tx"

// JSONTx is the RPC form of a signed transaction.
type JSONTx struct {
	Hash      string     `json:"hash"`
	TSCreated uint64     `json:"ts_created"`
	DatumType string     `json:"datum_type"`
	Items     []JSONItem `json:"items"`
}

// JSONItem is one item of JSONTx. Only the fields of its type are set.
type JSONItem struct {
	Type string `json:"type"`

	PrevHash string  `json:"prev_hash,omitempty"`
	OutIdx   *uint32 `json:"out_prev_idx,omitempty"`

	Value   string  `json:"value,omitempty"`
	Addr    string  `json:"addr,omitempty"`
	Token   string  `json:"token,omitempty"`
	Subtype string  `json:"subtype,omitempty"`
	Expires *uint64 `json:"ts_expires,omitempty"`

	TSDType *uint16 `json:"type_tsd,omitempty"`
	Data    string  `json:"data,omitempty"`

	SigType string `json:"sig_type,omitempty"`
	PubKey  string `json:"pub_key,omitempty"`
	Sig     string `json:"sig,omitempty"`
}

// JSON returns the RPC form of a signed builder. It is built from the final
// bytes, never from the signing view.
func (b *Builder) JSON() (*JSONTx, error) {
	final, err := b.FinalBytes()
	if err != nil {
		return nil, err
	}
	return ToJSON(final)
}

// ToJSON decodes final transaction bytes into their RPC form.
func ToJSON(final []byte) (*JSONTx, error) {
	tx, err := Decode(final)
	if err != nil {
		return nil, err
	}

	out := &JSONTx{
		Hash:      HashBytes(final),
		TSCreated: tx.Timestamp,
		DatumType: DatumType,
		Items:     make([]JSONItem, 0, len(tx.Items)),
	}
	for _, it := range tx.Items {
		out.Items = append(out.Items, jsonItem(it))
	}
	return out, nil
}

// MarshalSigned returns the JSON encoding of a signed builder.
func (b *Builder) MarshalSigned() ([]byte, error) {
	tx, err := b.JSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(tx)
}

func jsonItem(it Item) JSONItem {
	j := JSONItem{Type: it.Type().String()}

	switch v := it.(type) {
	case In:
		idx := v.OutIndex
		j.PrevHash = FormatHash(v.PrevHash)
		j.OutIdx = &idx
	case Out:
		j.Value = v.Value.Dec()
		j.Addr = v.Address
	case OutExt:
		j.Value = v.Value.Dec()
		j.Addr = v.Address
		j.Token = v.Ticker
	case OutCond:
		exp := v.Expires
		j.Value = v.Value.Dec()
		j.Subtype = condSubtypeName(v.Subtype)
		j.Expires = &exp
	case TSD:
		dt := v.DataType
		j.TSDType = &dt
		j.Data = base64.StdEncoding.EncodeToString(v.Data)
	case Sig:
		j.SigType = v.SigType.String()
		j.PubKey = base64.StdEncoding.EncodeToString(v.PublicKey)
		j.Sig = base64.StdEncoding.EncodeToString(v.Signature)
	}
	return j
}

func condSubtypeName(sub uint8) string {
	if sub == CondSubtypeFee {
		return "fee"
	}
	return fmt.Sprintf("0x%02x", sub)
}
