package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/mnemonic"
	"github.com/mrz1836/dnawallet/internal/output"
	"github.com/mrz1836/dnawallet/internal/secure"
	"github.com/mrz1836/dnawallet/internal/wallet"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// createChains selects the chains create and restore write wallets for.
	createChains []string
	// selectChains selects the chains address and passwd act on.
	selectChains []string
	// createWords is the number of words for mnemonic generation.
	createWords int
	// usePassphrase prompts for a BIP39 passphrase (eth derivation only).
	usePassphrase bool
	// mnemonicFile reads the restore mnemonic from a file instead of stdin.
	mnemonicFile string
)

// walletCmd is the parent command for wallet operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
	Long:  `Create, restore, list and inspect cell and eth wallets.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a wallet from a new mnemonic",
	Long: `Create a wallet from a freshly generated BIP39 mnemonic.

The cell key is derived from the SHA3-256 of the mnemonic words; the eth key
from the BIP39 seed at m/44'/60'/0'/0/0. Write the mnemonic down: it is shown
once and is the only way to restore the wallet.`,
	Example: `  dnawallet wallet create main
  dnawallet wallet create main --chain all --words 12`,
	Args: cobra.ExactArgs(1),
	RunE: runWalletCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Restore a wallet from an existing mnemonic",
	Example: `  dnawallet wallet restore main
  dnawallet wallet restore main --chain eth --mnemonic-file words.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runWalletRestore,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletAddressCmd = &cobra.Command{
	Use:   "address <name>",
	Short: "Show wallet addresses",
	Args:  cobra.ExactArgs(1),
	RunE:  runWalletAddress,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets",
	Args:  cobra.NoArgs,
	RunE:  runWalletList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletPasswdCmd = &cobra.Command{
	Use:   "passwd <name>",
	Short: "Change, add or remove a wallet password",
	Args:  cobra.ExactArgs(1),
	RunE:  runWalletPasswd,
}

// walletCreated is the result of create and restore.
type walletCreated struct {
	Name      string           `json:"name"`
	Mnemonic  string           `json:"mnemonic,omitempty"`
	Wallets   []wallet.Summary `json:"wallets"`
	Protected bool             `json:"protected"`
}

func runWalletCreate(cmd *cobra.Command, args []string) error {
	if createWords != 12 && createWords != 24 {
		return walleterr.WithSuggestion(walleterr.ErrInvalidInput, "word count must be 12 or 24")
	}

	phrase, err := mnemonic.Generate(createWords)
	if err != nil {
		return err
	}
	return saveWallets(cmd, args[0], phrase, true)
}

func runWalletRestore(cmd *cobra.Command, args []string) error {
	phrase, err := readRestoreMnemonic(cmd)
	if err != nil {
		return err
	}
	return saveWallets(cmd, args[0], phrase, false)
}

func readRestoreMnemonic(cmd *cobra.Command) (string, error) {
	if mnemonicFile == "" {
		return promptMnemonicFn(cmd)
	}
	// #nosec G304 -- path is supplied by the user on purpose
	data, err := os.ReadFile(mnemonicFile)
	if err != nil {
		return "", fmt.Errorf("reading mnemonic file: %w", err)
	}
	defer secure.Zero(data)

	phrase := mnemonic.Normalize(string(data))
	if err := mnemonic.Validate(phrase); err != nil {
		return "", err
	}
	return phrase, nil
}

// saveWallets derives and writes one wallet per selected chain, all under name.
func saveWallets(cmd *cobra.Command, name, phrase string, showMnemonic bool) error {
	cc := GetCmdContext(cmd)

	if err := wallet.ValidateWalletName(name); err != nil {
		if s := wallet.SuggestWalletName(name); s != "" {
			return walleterr.WithSuggestion(err, fmt.Sprintf("try %q", s))
		}
		return err
	}

	types, err := parseChains(createChains)
	if err != nil {
		return err
	}
	store, err := cc.Wallets()
	if err != nil {
		return err
	}

	for _, t := range types {
		exists, existsErr := store.Exists(t, name)
		if existsErr != nil {
			return existsErr
		}
		if exists {
			return walleterr.WithSuggestion(
				walleterr.WithDetails(walleterr.ErrWalletExists, map[string]string{"chain": t.String(), "name": name}),
				"choose a different name")
		}
	}

	var passphrase string
	if usePassphrase {
		pp, ppErr := promptPasswordFn(cmd, "BIP39 passphrase (eth only, empty for none): ")
		if ppErr != nil {
			return ppErr
		}
		passphrase = string(pp)
		secure.Zero(pp)
	}

	password, err := readNewPassword(cmd)
	if err != nil {
		return err
	}
	defer secure.Zero(password)

	result := walletCreated{Name: name, Protected: len(password) > 0}
	if showMnemonic {
		result.Mnemonic = phrase
	}
	for _, t := range types {
		w, createErr := store.Create(t, name, phrase, passphrase, password)
		cc.Metrics.RecordWalletOp("wallet_create", createErr)
		if createErr != nil {
			return createErr
		}
		result.Wallets = append(result.Wallets, wallet.Summary{
			Name: name, Chain: t, Address: w.Address, Protected: w.Protected,
		})
		w.Destroy()
	}

	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(result)
	}

	w := cc.Fmt.Writer()
	if showMnemonic {
		outln(w, "Mnemonic (write it down, it will not be shown again):")
		outln(w)
		outln(w, "  "+phrase)
		outln(w)
	}
	for _, s := range result.Wallets {
		out(w, "%-5s %s\n", s.Chain, s.Address)
	}
	if !result.Protected {
		output.Warn("wallet keys are stored unencrypted; protect them with 'dnawallet wallet passwd'")
	}
	return nil
}

func runWalletAddress(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	store, err := cc.Wallets()
	if err != nil {
		return err
	}
	types, err := parseChains(selectChains)
	if err != nil {
		return err
	}

	var found []wallet.Summary
	for _, t := range types {
		exists, existsErr := store.Exists(t, args[0])
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			continue
		}
		w, openErr := store.Open(t, args[0], nil)
		if openErr != nil {
			return openErr
		}
		found = append(found, wallet.Summary{Name: w.Name, Chain: t, Address: w.Address, Protected: w.Protected})
		w.Destroy()
	}
	if len(found) == 0 {
		return walleterr.WithDetails(walleterr.ErrWalletNotFound, map[string]string{"name": args[0]})
	}

	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(found)
	}
	for _, s := range found {
		out(cc.Fmt.Writer(), "%-5s %s\n", s.Chain, s.Address)
	}
	return nil
}

func runWalletList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	store, err := cc.Wallets()
	if err != nil {
		return err
	}
	list, err := store.List()
	if err != nil {
		return err
	}

	if cc.Fmt.IsJSON() {
		if list == nil {
			list = []wallet.Summary{}
		}
		return cc.Fmt.Print(list)
	}
	if len(list) == 0 {
		outln(cc.Fmt.Writer(), "No wallets found. Create one with 'dnawallet wallet create <name>'.")
		return nil
	}

	tbl := output.NewTable("NAME", "CHAIN", "PROTECTED", "ADDRESS")
	for _, s := range list {
		tbl.AddRow(s.Name, s.Chain.String(), yesNo(s.Protected), s.Address)
	}
	return tbl.Render(cc.Fmt.Writer())
}

func runWalletPasswd(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	store, err := cc.Wallets()
	if err != nil {
		return err
	}
	types, err := parseChains(selectChains)
	if err != nil {
		return err
	}

	oldPassword, err := readPassword(cmd, "Current password (empty if none): ")
	if err != nil {
		return err
	}
	defer secure.Zero(oldPassword)

	newPassword, err := promptNewPasswordFor(cmd)
	if err != nil {
		return err
	}
	defer secure.Zero(newPassword)

	changed := 0
	for _, t := range types {
		exists, err := store.Exists(t, args[0])
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		err = store.ChangePassword(t, args[0], oldPassword, newPassword)
		cc.Metrics.RecordWalletOp("wallet_passwd", err)
		if err != nil {
			return err
		}
		changed++
	}
	if changed == 0 {
		return walleterr.WithDetails(walleterr.ErrWalletNotFound, map[string]string{"name": args[0]})
	}
	return output.FormatSuccess(cc.Fmt.Writer(), fmt.Sprintf("password updated for wallet %s", args[0]), cc.Fmt.Format())
}

// promptNewPasswordFor reads the replacement password. With EnvPassword set,
// DNAWALLET_NEW_PASSWORD carries the new one.
func promptNewPasswordFor(cmd *cobra.Command) ([]byte, error) {
	if v, ok := os.LookupEnv(EnvNewPassword); ok {
		if v != "" && len(v) < minPasswordLen {
			return nil, shortPassword()
		}
		return []byte(v), nil
	}
	if _, ok := os.LookupEnv(EnvPassword); ok {
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput,
			"set "+EnvNewPassword+" when "+EnvPassword+" is set")
	}
	return readNewPassword(cmd)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// chainFlagUsage is shared by the commands taking --chain.
func chainFlagUsage() string {
	return "chains: " + strings.Join([]string{chain.TypeCell.String(), chain.TypeETH.String(), "all"}, ", ")
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	walletCreateCmd.Flags().IntVar(&createWords, "words", 24, "mnemonic word count (12 or 24)")
	walletCreateCmd.Flags().BoolVar(&usePassphrase, "passphrase", false, "prompt for a BIP39 passphrase")
	walletRestoreCmd.Flags().BoolVar(&usePassphrase, "passphrase", false, "prompt for a BIP39 passphrase")
	walletRestoreCmd.Flags().StringVar(&mnemonicFile, "mnemonic-file", "", "read the mnemonic from a file")

	for _, c := range []*cobra.Command{walletCreateCmd, walletRestoreCmd} {
		c.Flags().StringSliceVar(&createChains, "chain", []string{"cell"}, chainFlagUsage())
	}
	for _, c := range []*cobra.Command{walletAddressCmd, walletPasswdCmd} {
		c.Flags().StringSliceVar(&selectChains, "chain", []string{"all"}, chainFlagUsage())
	}

	walletCmd.AddCommand(walletCreateCmd, walletRestoreCmd, walletAddressCmd, walletListCmd, walletPasswdCmd)
	rootCmd.AddCommand(walletCmd)
}
