// Package pqsig exposes the post-quantum signature schemes used by the cell chain.
//
// The primitives come from cloudflare/circl. This package only fixes the
// wire tags, key sizes and the deterministic seed-to-keypair contract.
package pqsig

import (
	"fmt"

	"github.com/mrz1836/dnawallet/internal/secure"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// SigType is the 32-bit signature tag carried in wallet certificates,
// addresses and signature items.
type SigType uint32

// Known signature tags.
const (
	SigTypeNull      SigType = 0x0000
	SigTypeDilithium SigType = 0x0102
)

// String returns the scheme name for a tag.
func (t SigType) String() string {
	switch t {
	case SigTypeDilithium:
		return "sig_dil"
	case SigTypeNull:
		return "null"
	default:
		return fmt.Sprintf("sig_0x%04x", uint32(t))
	}
}

// Scheme is a signature algorithm with deterministic key generation.
type Scheme interface {
	Type() SigType
	// KeypairFromSeed returns the same keypair for the same seed, always.
	KeypairFromSeed(seed []byte) (pub []byte, priv *secure.Bytes, err error)
	Sign(priv, msg []byte) ([]byte, error)
	Verify(pub, msg, sig []byte) bool
	PublicKeySize() int
	PrivateKeySize() int
	SignatureSize() int
}

// ErrUnknownSigType is returned for a tag with no registered scheme.
var ErrUnknownSigType = &walleterr.WalletError{
	Code:     "UNKNOWN_SIG_TYPE",
	Message:  "unsupported signature type",
	ExitCode: walleterr.ExitInput,
	Category: walleterr.CategoryInput,
}

// ForType returns the scheme registered for t.
func ForType(t SigType) (Scheme, error) {
	switch t {
	case SigTypeDilithium:
		return Dilithium{}, nil
	default:
		return nil, walleterr.WithDetails(ErrUnknownSigType, map[string]string{"type": t.String()})
	}
}
