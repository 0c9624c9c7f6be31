package wallet

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/fileutil"
	"github.com/mrz1836/dnawallet/internal/keycrypt"
	"github.com/mrz1836/dnawallet/internal/pqsig"
	"github.com/mrz1836/dnawallet/internal/secure"
	"github.com/mrz1836/dnawallet/internal/walletfile"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

const (
	walletsDir   = "wallets"
	ethDir       = "eth"
	ethExtension = ".eth.json"

	ethFileVersion = 1
)

// ethFile is the on-disk form of an eth wallet. PrivateKey is the hex of
// either the raw key or, when Protected, a DNAK blob. It is spliced in by
// encodeETH so the key never passes through a string.
type ethFile struct {
	Version    int    `json:"version"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Protected  bool   `json:"protected"`
	PrivateKey hexKey `json:"private_key,omitempty"`
}

// hexKey decodes a hex JSON string straight into bytes.
type hexKey []byte

func (k *hexKey) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("private key is not a string")
	}
	src := data[1 : len(data)-1]
	out := make([]byte, hex.DecodedLen(len(src)))
	if _, err := hex.Decode(out, src); err != nil {
		secure.Zero(out)
		return errors.New("private key is not hex")
	}
	*k = out
	return nil
}

// Store reads and writes the wallets of one identity.
type Store struct {
	dir     string
	netID   uint64
	logger  zerolog.Logger
	encrypt func(plain, password []byte) ([]byte, error)
}

// NewStore opens the wallet directory of fingerprint under root. Cell
// addresses are derived for network netID.
func NewStore(root, fingerprint string, netID uint64, logger zerolog.Logger) (*Store, error) {
	if root == "" {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"field": "wallet root"})
	}
	if err := ValidateFingerprint(fingerprint); err != nil {
		return nil, err
	}
	return &Store{
		dir:     filepath.Join(root, fingerprint, walletsDir),
		netID:   netID,
		logger:  logger.With().Str("component", "wallet").Logger(),
		encrypt: keycrypt.Encrypt,
	}, nil
}

// Dir returns the wallets directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path of a wallet.
func (s *Store) Path(t chain.Type, name string) string {
	if t == chain.TypeETH {
		return filepath.Join(s.dir, ethDir, name+ethExtension)
	}
	return filepath.Join(s.dir, name+walletfile.Extension)
}

// Exists reports whether a wallet file is present.
func (s *Store) Exists(t chain.Type, name string) (bool, error) {
	if err := ValidateWalletName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Path(t, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Create derives a wallet of type t from phrase and writes it. A non-empty
// password protects the private key. It fails with ErrWalletExists rather
// than overwrite a wallet.
func (s *Store) Create(t chain.Type, name, phrase, passphrase string, password []byte) (*ChainWallet, error) {
	if err := ValidateWalletName(name); err != nil {
		return nil, err
	}

	var (
		w   *ChainWallet
		err error
	)
	switch t {
	case chain.TypeCell:
		w, err = DeriveCell(name, phrase, s.netID)
	case chain.TypeETH:
		w, err = DeriveETH(name, phrase, passphrase)
	default:
		return nil, walleterr.WithDetails(walleterr.ErrChainNotFound, map[string]string{"chain": string(t)})
	}
	if err != nil {
		return nil, err
	}

	if err = s.write(w, password); err != nil {
		w.Destroy()
		return nil, err
	}
	w.Protected = len(password) > 0
	s.logger.Info().Str("chain", t.String()).Str("name", name).Bool("protected", w.Protected).Msg("wallet created")
	return w, nil
}

// write creates the wallet file and never replaces an existing one.
func (s *Store) write(w *ChainWallet, password []byte) error {
	data, err := s.encode(w, password)
	if err != nil {
		return err
	}
	defer secure.Zero(data)
	return fileutil.WriteNew(s.Path(w.Chain, w.Name), data, fileutil.SecretFilePerm)
}

// encode renders w in its on-disk form and makes sure its directory exists.
// The caller wipes the result.
func (s *Store) encode(w *ChainWallet, password []byte) ([]byte, error) {
	priv := w.PrivateKey.Bytes()
	if len(password) > 0 {
		blob, err := s.encrypt(priv, password)
		if err != nil {
			return nil, err
		}
		defer secure.Zero(blob)
		priv = blob
	}

	switch w.Chain {
	case chain.TypeCell:
		f := &walletfile.File{
			Type:       walletfile.TypePlain,
			Name:       w.Name,
			SigType:    w.SigType,
			PublicKey:  w.PublicKey,
			PrivateKey: walletfile.SerializeKey(uint32(w.SigType), priv),
		}
		if len(password) > 0 {
			f.Type = walletfile.TypeProtected
		}
		data, err := walletfile.Encode(f)
		f.Wipe()
		if err != nil {
			return nil, err
		}
		if err := fileutil.EnsureDir(s.dir); err != nil {
			secure.Zero(data)
			return nil, err
		}
		return data, nil
	case chain.TypeETH:
		data, err := encodeETH(ethFile{
			Version:   ethFileVersion,
			Name:      w.Name,
			Address:   w.Address,
			Protected: len(password) > 0,
		}, priv)
		if err != nil {
			return nil, err
		}
		if err := fileutil.EnsureDir(filepath.Join(s.dir, ethDir)); err != nil {
			secure.Zero(data)
			return nil, err
		}
		return data, nil
	default:
		return nil, walleterr.WithDetails(walleterr.ErrChainNotFound, map[string]string{"chain": string(w.Chain)})
	}
}

// encodeETH marshals the public fields of f and appends the hex private key
// as the last member, building it in a buffer the caller can wipe.
func encodeETH(f ethFile, priv []byte) ([]byte, error) {
	f.PrivateKey = nil
	head, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding eth wallet: %w", err)
	}
	head = head[:len(head)-len("\n}")]

	const keyField = ",\n  \"private_key\": \""
	out := make([]byte, 0, len(head)+len(keyField)+hex.EncodedLen(len(priv))+len("\"\n}"))
	out = append(out, head...)
	out = append(out, keyField...)
	n := len(out)
	out = out[:n+hex.EncodedLen(len(priv))]
	hex.Encode(out[n:], priv)
	out = append(out, "\"\n}"...)
	return out, nil
}

// Open loads a wallet. A protected wallet opened with an empty password is
// returned locked: address and public data only.
func (s *Store) Open(t chain.Type, name string, password []byte) (*ChainWallet, error) {
	if err := ValidateWalletName(name); err != nil {
		return nil, err
	}
	data, err := s.read(t, name)
	if err != nil {
		return nil, err
	}
	defer secure.Zero(data)

	switch t {
	case chain.TypeCell:
		return s.openCell(name, data, password)
	case chain.TypeETH:
		return s.openETH(name, data, password)
	default:
		return nil, walleterr.WithDetails(walleterr.ErrChainNotFound, map[string]string{"chain": string(t)})
	}
}

func (s *Store) read(t chain.Type, name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(t, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, walleterr.WithDetails(walleterr.ErrWalletNotFound, map[string]string{
			"chain": t.String(),
			"name":  name,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("reading wallet %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) openCell(name string, data, password []byte) (*ChainWallet, error) {
	f, err := walletfile.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", name, err)
	}
	defer f.Wipe()

	if _, err := pqsig.ForType(f.SigType); err != nil {
		return nil, err
	}

	w := &ChainWallet{
		Name:      f.Name,
		Chain:     chain.TypeCell,
		Protected: f.Protected(),
		SigType:   f.SigType,
		PublicKey: f.PublicKey,
		Address:   walletfile.DeriveAddress(s.netID, f.SigType, f.PublicKey),
	}

	w.PrivateKey, err = s.unlock(name, f.RawPrivateKey(), f.Protected(), password)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Store) openETH(name string, data, password []byte) (*ChainWallet, error) {
	var f ethFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: wallet %s: %w", walleterr.ErrWalletCorrupt, name, err)
	}
	raw := []byte(f.PrivateKey)
	defer secure.Zero(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: wallet %s: missing private key", walleterr.ErrWalletCorrupt, name)
	}

	priv, err := s.unlock(name, raw, f.Protected, password)
	if err != nil {
		return nil, err
	}
	if priv == nil {
		return &ChainWallet{Name: f.Name, Chain: chain.TypeETH, Protected: true, Address: f.Address}, nil
	}

	w, err := ethWallet(f.Name, priv)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(w.Address, f.Address) {
		w.Destroy()
		return nil, walleterr.WithDetails(walleterr.ErrWalletCorrupt, map[string]string{
			"name":   name,
			"reason": "stored address does not match key",
		})
	}
	w.Protected = f.Protected
	return w, nil
}

// unlock returns the private key, or nil for a protected key without a password.
func (s *Store) unlock(name string, raw []byte, protected bool, password []byte) (*secure.Bytes, error) {
	if !protected {
		if keycrypt.IsEncrypted(raw) {
			return nil, walleterr.WithDetails(walleterr.ErrWalletCorrupt, map[string]string{
				"name":   name,
				"reason": "plain wallet holds an encrypted key",
			})
		}
		return secure.FromSlice(raw), nil
	}
	if len(password) == 0 {
		return nil, nil //nolint:nilnil // locked wallet
	}
	priv, err := keycrypt.Decrypt(raw, password)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", name, err)
	}
	return priv, nil
}

// Unlock opens a protected wallet and fails with ErrWalletLocked when no password is given.
func (s *Store) Unlock(t chain.Type, name string, password []byte) (*ChainWallet, error) {
	w, err := s.Open(t, name, password)
	if err != nil {
		return nil, err
	}
	if w.Locked() {
		return nil, walleterr.WithDetails(ErrWalletLocked, map[string]string{"name": name})
	}
	return w, nil
}

// ChangePassword re-encrypts the private key of a wallet. An empty old
// password is used for plain wallets; an empty new password removes protection.
func (s *Store) ChangePassword(t chain.Type, name string, oldPassword, newPassword []byte) error {
	w, err := s.Unlock(t, name, oldPassword)
	if err != nil {
		return err
	}
	defer w.Destroy()

	data, err := s.encode(w, newPassword)
	if err != nil {
		return err
	}
	defer secure.Zero(data)

	if err := fileutil.WriteAtomic(s.Path(t, name), data, fileutil.SecretFilePerm); err != nil {
		return err
	}
	s.logger.Info().Str("chain", t.String()).Str("name", name).Bool("protected", len(newPassword) > 0).Msg("wallet password changed")
	return nil
}

// List returns the wallets of all chains, sorted by chain then name.
func (s *Store) List() ([]Summary, error) {
	var out []Summary
	for _, t := range []chain.Type{chain.TypeCell, chain.TypeETH} {
		names, err := s.names(t)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			w, err := s.Open(t, name, nil)
			if err != nil {
				s.logger.Warn().Err(err).Str("chain", t.String()).Str("name", name).Msg("skipping unreadable wallet")
				continue
			}
			out = append(out, Summary{Name: name, Chain: t, Address: w.Address, Protected: w.Protected})
			w.Destroy()
		}
	}
	return out, nil
}

func (s *Store) names(t chain.Type) ([]string, error) {
	dir, ext := s.dir, walletfile.Extension
	if t == chain.TypeETH {
		dir, ext = filepath.Join(s.dir, ethDir), ethExtension
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading wallet directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if ValidateWalletName(name) == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
