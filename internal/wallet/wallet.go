// Package wallet creates, restores and loads per-chain wallets kept under a
// per-identity directory.
//
// Layout:
//
//	<root>/<fingerprint>/wallets/<name>.walletext      cell wallets
//	<root>/<fingerprint>/wallets/eth/<name>.eth.json   eth wallets
package wallet

import (
	"regexp"
	"strings"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/keycrypt"
	"github.com/mrz1836/dnawallet/internal/pqsig"
	"github.com/mrz1836/dnawallet/internal/secure"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

var (
	// ErrInvalidWalletName indicates the wallet name is invalid.
	ErrInvalidWalletName = walleterr.WithSuggestion(walleterr.ErrInvalidInput,
		"wallet name must be 1-64 alphanumeric characters, underscores, or hyphens")

	// ErrInvalidFingerprint indicates the identity fingerprint is invalid.
	ErrInvalidFingerprint = walleterr.WithSuggestion(walleterr.ErrInvalidInput,
		"identity fingerprint must be 1-128 alphanumeric characters")

	// ErrWalletLocked is returned when a protected wallet is used without its password.
	ErrWalletLocked = walleterr.WithSuggestion(keycrypt.ErrPasswordRequired,
		"unlock the wallet with its password")

	walletNameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	fingerprintRegex = regexp.MustCompile(`^[a-zA-Z0-9]{1,128}$`)
	unsafeNameChars  = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
)

// ChainWallet is one keypair of one chain.
type ChainWallet struct {
	Name      string
	Chain     chain.Type
	Protected bool
	SigType   pqsig.SigType // cell only
	// PublicKey is the serialized key record for cell and the 65-byte
	// uncompressed key for eth. It is nil for a locked eth wallet.
	PublicKey []byte
	// PrivateKey is nil while a protected wallet is locked.
	PrivateKey *secure.Bytes
	Address    string
}

// Locked reports whether the private key is unavailable.
func (w *ChainWallet) Locked() bool {
	return w.PrivateKey == nil || w.PrivateKey.Len() == 0
}

// Destroy wipes the private key. Safe on nil and on repeated calls.
func (w *ChainWallet) Destroy() {
	if w == nil || w.PrivateKey == nil {
		return
	}
	w.PrivateKey.Destroy()
	w.PrivateKey = nil
}

// Summary is a wallet as shown by a listing, without key material.
type Summary struct {
	Name      string     `json:"name"`
	Chain     chain.Type `json:"chain"`
	Address   string     `json:"address"`
	Protected bool       `json:"protected"`
}

// ValidateWalletName checks if a wallet name is valid.
func ValidateWalletName(name string) error {
	if !walletNameRegex.MatchString(name) {
		return walleterr.WithDetails(ErrInvalidWalletName, map[string]string{"name": name})
	}
	return nil
}

// SuggestWalletName returns a valid name close to name, or "" if nothing usable remains.
func SuggestWalletName(name string) string {
	suggested := strings.Trim(unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "-"), "-")
	if len(suggested) > 64 {
		suggested = suggested[:64]
	}
	return suggested
}

// ValidateFingerprint checks an identity fingerprint used as a directory name.
func ValidateFingerprint(fp string) error {
	if !fingerprintRegex.MatchString(fp) {
		return walleterr.WithDetails(ErrInvalidFingerprint, map[string]string{"fingerprint": fp})
	}
	return nil
}
