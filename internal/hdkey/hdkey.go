// Package hdkey implements BIP32 hierarchical deterministic derivation over secp256k1.
//
// The package handles spending keys directly, so every intermediate buffer
// (HMAC output, derivation input, temporary scalars and public keys) is wiped
// before the function that created it returns, on success and error paths alike.
package hdkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD160 is mandated by the BIP32 fingerprint format

	"github.com/mrz1836/dnawallet/internal/secure"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

const (
	// HardenedKeyStart is the first hardened child index (2^31).
	HardenedKeyStart uint32 = 0x80000000

	// MaxDepth is the deepest node a path may reach.
	MaxDepth = 255

	keyLen       = 32
	hmacLen      = 64
	normalDataSz = 33 + 4
)

// masterHMACKey is the fixed BIP32 key for master derivation.
//
//nolint:gochecknoglobals // BIP32 constant
var masterHMACKey = []byte("Bitcoin seed")

// ErrHardenedIndex is returned when normal derivation receives an index with the hardened bit set.
var ErrHardenedIndex = &walleterr.WalletError{
	Code:       "HARDENED_INDEX",
	Message:    "normal derivation does not accept a hardened index",
	Suggestion: "use an index below 2^31 or derive a hardened child",
	ExitCode:   walleterr.ExitInput,
	Category:   walleterr.CategoryInput,
}

// hmacSHA512 computes the 64-byte BIP32 HMAC. Replaceable in tests to
// exercise the invalid-scalar path, which is unreachable with real inputs.
//
//nolint:gochecknoglobals // test seam
var hmacSHA512 = func(key, data []byte) []byte {
	mac := hmac.New(sha512.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil)
}

// ExtendedKey is a private node in a derivation tree. It is never serialized;
// callers extract the raw public or private bytes they need and call Zero.
type ExtendedKey struct {
	key        [keyLen]byte
	chainCode  [keyLen]byte
	depth      uint8
	parentFP   [4]byte
	childIndex uint32
}

// NewMaster derives the root key from a seed of arbitrary non-zero length.
// A seed whose HMAC yields an invalid scalar returns ErrInvalidKey; the caller
// must pick a different seed.
func NewMaster(seed []byte) (*ExtendedKey, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("%w: empty seed", walleterr.ErrInvalidInput)
	}

	sum := hmacSHA512(masterHMACKey, seed)
	defer secure.Zero(sum)
	if len(sum) != hmacLen {
		return nil, fmt.Errorf("%w: unexpected hmac length %d", walleterr.ErrInvalidKey, len(sum))
	}

	if !isValidScalar(sum[:keyLen]) {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidKey, map[string]string{"node": "master"})
	}

	k := &ExtendedKey{}
	copy(k.key[:], sum[:keyLen])
	copy(k.chainCode[:], sum[keyLen:])
	return k, nil
}

// Child derives the child at index, hardened when index >= HardenedKeyStart.
func (k *ExtendedKey) Child(index uint32) (*ExtendedKey, error) {
	if index >= HardenedKeyStart {
		return k.ChildHardened(index)
	}
	return k.ChildNormal(index)
}

// ChildHardened derives a hardened child. The hardened bit is added if absent.
// HMAC input: 0x00 || parent private key || ser32(index | 2^31).
func (k *ExtendedKey) ChildHardened(index uint32) (*ExtendedKey, error) {
	index |= HardenedKeyStart

	data := make([]byte, normalDataSz)
	data[0] = 0x00
	copy(data[1:33], k.key[:])
	binary.BigEndian.PutUint32(data[33:], index)

	return k.derive(data, index)
}

// ChildNormal derives a non-hardened child.
// HMAC input: compressed parent public key || ser32(index).
func (k *ExtendedKey) ChildNormal(index uint32) (*ExtendedKey, error) {
	if index >= HardenedKeyStart {
		return nil, walleterr.WithDetails(ErrHardenedIndex, map[string]string{
			"index": fmt.Sprintf("0x%08x", index),
		})
	}

	pub := k.PublicKey()
	data := make([]byte, normalDataSz)
	copy(data[:33], pub)
	secure.Zero(pub)
	binary.BigEndian.PutUint32(data[33:], index)

	return k.derive(data, index)
}

// derive runs the shared child computation and consumes (wipes) data.
func (k *ExtendedKey) derive(data []byte, index uint32) (*ExtendedKey, error) {
	defer secure.Zero(data)

	if k.depth == MaxDepth {
		return nil, fmt.Errorf("%w: maximum depth %d reached", walleterr.ErrInvalidPath, MaxDepth)
	}

	sum := hmacSHA512(k.chainCode[:], data)
	defer secure.Zero(sum)
	if len(sum) != hmacLen {
		return nil, fmt.Errorf("%w: unexpected hmac length %d", walleterr.ErrInvalidKey, len(sum))
	}

	var il, parent secp256k1.ModNScalar
	defer il.Zero()
	defer parent.Zero()

	// IL >= n or a zero child scalar makes this index unusable; the caller
	// is expected to move on to index+1.
	if overflow := il.SetByteSlice(sum[:keyLen]); overflow {
		return nil, invalidChild(index)
	}
	parent.SetBytes(&k.key)
	il.Add(&parent)
	if il.IsZero() {
		return nil, invalidChild(index)
	}

	child := &ExtendedKey{
		depth:      k.depth + 1,
		childIndex: index,
		parentFP:   k.Fingerprint(),
	}
	il.PutBytes(&child.key)
	copy(child.chainCode[:], sum[keyLen:])

	return child, nil
}

func invalidChild(index uint32) error {
	return walleterr.WithDetails(walleterr.ErrInvalidKey, map[string]string{
		"index": fmt.Sprintf("0x%08x", index),
		"retry": "derive the next index",
	})
}

// isValidScalar reports whether 0 < b < n.
func isValidScalar(b []byte) bool {
	var s secp256k1.ModNScalar
	defer s.Zero()
	overflow := s.SetByteSlice(b)
	return !overflow && !s.IsZero()
}

// PrivateKey returns the 32-byte private scalar in a secret buffer.
func (k *ExtendedKey) PrivateKey() *secure.Bytes {
	return secure.FromSlice(k.key[:])
}

// PublicKey returns the 33-byte compressed public key.
func (k *ExtendedKey) PublicKey() []byte {
	priv := secp256k1.PrivKeyFromBytes(k.key[:])
	defer priv.Zero()
	return priv.PubKey().SerializeCompressed()
}

// PublicKeyUncompressed returns the 65-byte public key with the 0x04 prefix.
func (k *ExtendedKey) PublicKeyUncompressed() []byte {
	priv := secp256k1.PrivKeyFromBytes(k.key[:])
	defer priv.Zero()
	return priv.PubKey().SerializeUncompressed()
}

// Fingerprint returns the first four bytes of HASH160(compressed public key).
func (k *ExtendedKey) Fingerprint() [4]byte {
	pub := k.PublicKey()
	defer secure.Zero(pub)

	h := Hash160(pub)
	var fp [4]byte
	copy(fp[:], h[:4])
	return fp
}

// ParentFingerprint returns the fingerprint of the parent node (zero for the master).
func (k *ExtendedKey) ParentFingerprint() [4]byte { return k.parentFP }

// ChainCode returns a copy of the chain code.
func (k *ExtendedKey) ChainCode() [32]byte { return k.chainCode }

// Depth returns the derivation depth (0 for master).
func (k *ExtendedKey) Depth() uint8 { return k.depth }

// ChildIndex returns the index this node was derived with.
func (k *ExtendedKey) ChildIndex() uint32 { return k.childIndex }

// IsHardened reports whether the node was derived with a hardened index.
func (k *ExtendedKey) IsHardened() bool { return k.childIndex >= HardenedKeyStart }

// Zero wipes the private scalar and chain code. Safe on nil.
func (k *ExtendedKey) Zero() {
	if k == nil {
		return
	}
	secure.ZeroArray32(&k.key)
	secure.ZeroArray32(&k.chainCode)
}

// String prints public metadata only.
func (k *ExtendedKey) String() string {
	return fmt.Sprintf("hdkey(depth=%d index=0x%08x parent=%s)",
		k.depth, k.childIndex, hex.EncodeToString(k.parentFP[:]))
}

// Hash160 computes RIPEMD160(SHA256(data)).
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	_, _ = h.Write(sha[:])
	return h.Sum(nil)
}
