package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/dnawallet/internal/fileutil"
	"github.com/mrz1836/dnawallet/internal/keycrypt"
	"github.com/mrz1836/dnawallet/internal/output"
	"github.com/mrz1836/dnawallet/internal/secure"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var keyOut string

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Encrypt and decrypt raw key files",
	Long: `Manage standalone private key files in the DNAK format
(PBKDF2-SHA256 key derivation, ChaCha20-Poly1305 encryption).`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyEncryptCmd = &cobra.Command{
	Use:   "encrypt <file>",
	Short: "Encrypt a plaintext key file",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeyEncrypt,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyDecryptCmd = &cobra.Command{
	Use:   "decrypt <file>",
	Short: "Write the plaintext of an encrypted key file",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeyDecrypt,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyPasswdCmd = &cobra.Command{
	Use:   "passwd <file>",
	Short: "Change the password of an encrypted key file",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeyPasswd,
}

func runKeyEncrypt(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	src := args[0]
	dst := keyOut
	if dst == "" {
		dst = src
	}

	key, err := keycrypt.LoadKey(src, nil, cc.Log.Logger)
	if err != nil {
		return err
	}
	defer key.Destroy()

	password, err := readNewPassword(cmd)
	if err != nil {
		return err
	}
	defer secure.Zero(password)
	if len(password) == 0 {
		return walleterr.WithSuggestion(walleterr.ErrInvalidInput, "a password is required to encrypt")
	}

	if err := keycrypt.SaveKey(dst, key.Bytes(), password); err != nil {
		return err
	}
	cc.Log.Info().Str("path", dst).Msg("key file encrypted")
	return output.FormatSuccess(cc.Fmt.Writer(), "encrypted key written to "+dst, cc.Fmt.Format())
}

func runKeyDecrypt(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	if keyOut == "" {
		return walleterr.WithSuggestion(walleterr.ErrInvalidInput, "choose the plaintext destination with --out")
	}

	password, err := readPassword(cmd, "Password: ")
	if err != nil {
		return err
	}
	defer secure.Zero(password)

	key, err := keycrypt.LoadKey(args[0], password, cc.Log.Logger)
	if err != nil {
		return err
	}
	defer key.Destroy()

	if err := fileutil.WriteNew(keyOut, key.Bytes(), fileutil.SecretFilePerm); err != nil {
		return fmt.Errorf("writing %s: %w", keyOut, err)
	}
	output.Warn("the key in " + keyOut + " is not encrypted")
	return output.FormatSuccess(cc.Fmt.Writer(), "plaintext key written to "+keyOut, cc.Fmt.Format())
}

func runKeyPasswd(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)

	oldPassword, err := readPassword(cmd, "Current password: ")
	if err != nil {
		return err
	}
	defer secure.Zero(oldPassword)

	newPassword, err := promptNewPasswordFor(cmd)
	if err != nil {
		return err
	}
	defer secure.Zero(newPassword)

	if err := keycrypt.ChangePassword(args[0], oldPassword, newPassword); err != nil {
		return err
	}
	return output.FormatSuccess(cc.Fmt.Writer(), "password changed for "+args[0], cc.Fmt.Format())
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	keyEncryptCmd.Flags().StringVar(&keyOut, "out", "", "destination (default: overwrite the source)")
	keyDecryptCmd.Flags().StringVar(&keyOut, "out", "", "plaintext destination, must not exist")
	keyCmd.AddCommand(keyEncryptCmd, keyDecryptCmd, keyPasswdCmd)
	rootCmd.AddCommand(keyCmd)
}
