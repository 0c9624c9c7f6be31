package eth

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// ErrInvalidChecksum is returned for a mixed-case address whose EIP-55 checksum is wrong.
var ErrInvalidChecksum = &walleterr.WalletError{
	Code:       "INVALID_CHECKSUM",
	Message:    "address checksum mismatch",
	Suggestion: "re-copy the address or enter it in all lower case",
	ExitCode:   walleterr.ExitInput,
	Category:   walleterr.CategoryInput,
}

// IsValidAddress reports whether address is 0x followed by 40 hex characters.
// It does not check the checksum.
func IsValidAddress(address string) bool {
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// ValidateChecksumAddress accepts all-lower and all-upper addresses and
// mixed-case addresses with a correct EIP-55 checksum.
func ValidateChecksumAddress(address string) error {
	if !IsValidAddress(address) {
		return walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"address": address})
	}

	hexPart := address[2:]
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return nil
	}
	if expected := common.HexToAddress(address).Hex(); expected != address {
		return walleterr.WithDetails(ErrInvalidChecksum, map[string]string{
			"expected": expected,
			"actual":   address,
		})
	}
	return nil
}

// NormalizeAddress validates address and returns its EIP-55 form.
func NormalizeAddress(address string) (string, error) {
	if !IsValidAddress(address) {
		return "", walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"address": address})
	}
	return common.HexToAddress(address).Hex(), nil
}

// AddressFromKey returns the checksummed address of a 32-byte private key.
func AddressFromKey(privateKey []byte) (string, error) {
	key, err := toECDSA(privateKey)
	if err != nil {
		return "", err
	}
	defer zeroKey(key)
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

// PublicKeyFromKey returns the 65-byte uncompressed public key of a private key.
func PublicKeyFromKey(privateKey []byte) ([]byte, error) {
	key, err := toECDSA(privateKey)
	if err != nil {
		return nil, err
	}
	defer zeroKey(key)
	return crypto.FromECDSAPub(&key.PublicKey), nil
}

func toECDSA(privateKey []byte) (*ecdsa.PrivateKey, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidKey, map[string]string{"reason": err.Error()})
	}
	return key, nil
}

// zeroKey clears the scalar of an ecdsa key.
func zeroKey(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	b := key.D.Bits()
	for i := range b {
		b[i] = 0
	}
}
