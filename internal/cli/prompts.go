package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrz1836/dnawallet/internal/mnemonic"
	"github.com/mrz1836/dnawallet/internal/secure"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// EnvPassword supplies the wallet password non-interactively. An empty
// value means "no password".
const EnvPassword = "DNAWALLET_PASSWORD" // #nosec G101 -- variable name, not a credential

// EnvNewPassword supplies the replacement password for "wallet passwd"
// and "key passwd" when EnvPassword is set.
const EnvNewPassword = "DNAWALLET_NEW_PASSWORD" // #nosec G101 -- variable name, not a credential

// minPasswordLen applies to new passwords only.
const minPasswordLen = 8

// Prompt seams, replaced in tests.
//
//nolint:gochecknoglobals // test seams
var (
	promptPasswordFn = promptPassword
	promptConfirmFn  = promptConfirm
	promptMnemonicFn = promptMnemonic
)

// readPassword returns the password from EnvPassword or a hidden prompt.
// The caller must zero the result.
func readPassword(cmd *cobra.Command, prompt string) ([]byte, error) {
	if v, ok := os.LookupEnv(EnvPassword); ok {
		return []byte(v), nil
	}
	return promptPasswordFn(cmd, prompt)
}

// readNewPassword asks for a password twice. An empty answer leaves the
// key unprotected.
func readNewPassword(cmd *cobra.Command) ([]byte, error) {
	if v, ok := os.LookupEnv(EnvPassword); ok {
		if v != "" && len(v) < minPasswordLen {
			return nil, shortPassword()
		}
		return []byte(v), nil
	}

	password, err := promptPasswordFn(cmd, "Enter encryption password (empty for none): ")
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, nil
	}
	if len(password) < minPasswordLen {
		secure.Zero(password)
		return nil, shortPassword()
	}

	confirm, err := promptPasswordFn(cmd, "Confirm password: ")
	if err != nil {
		secure.Zero(password)
		return nil, err
	}
	defer secure.Zero(confirm)

	if string(password) != string(confirm) {
		secure.Zero(password)
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "passwords do not match")
	}
	return password, nil
}

func shortPassword() error {
	return walleterr.WithSuggestion(walleterr.ErrInvalidInput,
		fmt.Sprintf("password must be at least %d characters", minPasswordLen))
}

// promptPassword reads a hidden line from a terminal, or a plain line from
// the command's stdin when it is not a terminal.
func promptPassword(cmd *cobra.Command, prompt string) ([]byte, error) {
	out(cmd.ErrOrStderr(), "%s", prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: Fd fits in int
		password, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // G115: Fd fits in int
		outln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return password, nil
	}

	line, err := readLine(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return []byte(line), nil
}

// promptConfirm asks a yes/no question; anything but y or yes is no.
func promptConfirm(cmd *cobra.Command, question string) bool {
	out(cmd.ErrOrStderr(), "%s [y/N]: ", question)
	line, err := readLine(cmd.InOrStdin())
	if err != nil {
		return false
	}
	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes"
}

// promptMnemonic reads a mnemonic from one line of input and validates it,
// printing word suggestions for typos.
func promptMnemonic(cmd *cobra.Command) (string, error) {
	out(cmd.ErrOrStderr(), "Enter mnemonic (all words on one line): ")
	line, err := readLine(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading mnemonic: %w", err)
	}
	phrase := mnemonic.Normalize(line)
	if err := mnemonic.Validate(phrase); err != nil {
		return "", err
	}
	return phrase, nil
}

// readLine reads up to a newline one byte at a time, so nothing past the
// line is consumed from r.
func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			if sb.Len() == 0 {
				return "", io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimRight(sb.String(), "\r"), nil
}
