package wallet

import (
	"fmt"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/chain/eth"
	"github.com/mrz1836/dnawallet/internal/hdkey"
	"github.com/mrz1836/dnawallet/internal/mnemonic"
	"github.com/mrz1836/dnawallet/internal/pqsig"
	"github.com/mrz1836/dnawallet/internal/secure"
	"github.com/mrz1836/dnawallet/internal/walletfile"
)

// DeriveCell derives the cell keypair of phrase. The seed is the direct
// SHA3-256 of the normalized words, not the BIP39 seed, for compatibility
// with the external wallet application. Nothing is written to disk.
func DeriveCell(name, phrase string, netID uint64) (*ChainWallet, error) {
	phrase = mnemonic.Normalize(phrase)
	if err := mnemonic.Validate(phrase); err != nil {
		return nil, err
	}

	seed, err := mnemonic.CellSeed(mnemonic.Words(phrase))
	if err != nil {
		return nil, err
	}
	defer secure.ZeroArray32(&seed)

	scheme := pqsig.Dilithium{}
	pub, priv, err := scheme.KeypairFromSeed(seed[:])
	if err != nil {
		return nil, fmt.Errorf("deriving cell keypair: %w", err)
	}

	record := walletfile.SerializeKey(uint32(scheme.Type()), pub)
	return &ChainWallet{
		Name:       name,
		Chain:      chain.TypeCell,
		SigType:    scheme.Type(),
		PublicKey:  record,
		PrivateKey: priv,
		Address:    walletfile.DeriveAddress(netID, scheme.Type(), record),
	}, nil
}

// DeriveETH derives the key at m/44'/60'/0'/0/0 of phrase and passphrase.
func DeriveETH(name, phrase, passphrase string) (*ChainWallet, error) {
	phrase = mnemonic.Normalize(phrase)
	seed, err := mnemonic.ToSeed(phrase, passphrase)
	if err != nil {
		return nil, err
	}
	defer secure.Zero(seed)

	key, err := hdkey.DeriveETH(seed)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	return ethWallet(name, key.PrivateKey())
}

// ethWallet completes a wallet around a raw eth private key. It takes ownership of priv.
func ethWallet(name string, priv *secure.Bytes) (*ChainWallet, error) {
	pub, err := eth.PublicKeyFromKey(priv.Bytes())
	if err != nil {
		priv.Destroy()
		return nil, err
	}
	addr, err := eth.AddressFromKey(priv.Bytes())
	if err != nil {
		priv.Destroy()
		return nil, err
	}
	return &ChainWallet{
		Name:       name,
		Chain:      chain.TypeETH,
		PublicKey:  pub,
		PrivateKey: priv,
		Address:    addr,
	}, nil
}
