package pqsig

import (
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"github.com/mrz1836/dnawallet/internal/secure"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Dilithium is CRYSTALS-Dilithium at security level 3.
type Dilithium struct{}

// Type implements Scheme.
func (Dilithium) Type() SigType { return SigTypeDilithium }

// PublicKeySize implements Scheme.
func (Dilithium) PublicKeySize() int { return mode3.PublicKeySize }

// PrivateKeySize implements Scheme.
func (Dilithium) PrivateKeySize() int { return mode3.PrivateKeySize }

// SignatureSize implements Scheme.
func (Dilithium) SignatureSize() int { return mode3.SignatureSize }

// KeypairFromSeed expands a 32-byte seed into a keypair.
func (Dilithium) KeypairFromSeed(seed []byte) ([]byte, *secure.Bytes, error) {
	if len(seed) != mode3.SeedSize {
		return nil, nil, fmt.Errorf("%w: dilithium seed must be %d bytes, got %d",
			walleterr.ErrInvalidInput, mode3.SeedSize, len(seed))
	}

	var s [mode3.SeedSize]byte
	copy(s[:], seed)
	defer secure.ZeroArray32(&s)

	pk, sk := mode3.NewKeyFromSeed(&s)

	var packed [mode3.PrivateKeySize]byte
	sk.Pack(&packed)
	return pk.Bytes(), secure.Take(packed[:]), nil
}

// Sign signs msg with a packed private key.
func (Dilithium) Sign(priv, msg []byte) ([]byte, error) {
	if len(priv) != mode3.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes, want %d",
			walleterr.ErrSigningFailed, len(priv), mode3.PrivateKeySize)
	}

	var packed [mode3.PrivateKeySize]byte
	copy(packed[:], priv)
	defer secure.Zero(packed[:])

	var sk mode3.PrivateKey
	sk.Unpack(&packed)

	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(&sk, msg, sig)
	return sig, nil
}

// Verify reports whether sig is a valid signature of msg under pub.
func (Dilithium) Verify(pub, msg, sig []byte) bool {
	if len(pub) != mode3.PublicKeySize || len(sig) != mode3.SignatureSize {
		return false
	}

	var packed [mode3.PublicKeySize]byte
	copy(packed[:], pub)

	var pk mode3.PublicKey
	pk.Unpack(&packed)
	return mode3.Verify(&pk, msg, sig)
}
