package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// Describe flattens err into an ErrorDetail.
func Describe(err error) ErrorDetail {
	var we *walleterr.WalletError
	if !errors.As(err, &we) {
		return ErrorDetail{
			Code:     "GENERAL_ERROR",
			Message:  err.Error(),
			ExitCode: walleterr.ExitGeneral,
		}
	}

	d := ErrorDetail{
		Code:       we.Code,
		Message:    we.Message,
		Category:   string(we.Category),
		Retryable:  we.Transient,
		Details:    we.Details,
		Suggestion: we.Suggestion,
		ExitCode:   we.ExitCode,
	}
	if we.Cause != nil {
		d.Cause = we.Cause.Error()
	}
	// Context added by fmt.Errorf wrappers above the WalletError.
	if outer := err.Error(); !strings.HasPrefix(outer, we.Error()) && d.Cause == "" {
		d.Cause = outer
	}
	return d
}

// FormatError formats an error for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	if format == FormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(ErrorOutput{Error: Describe(err)})
	}
	return formatErrorText(w, err)
}

// formatErrorText outputs error in text format. Details are sorted by key.
func formatErrorText(w io.Writer, err error) error {
	var sb strings.Builder

	var we *walleterr.WalletError
	if errors.As(err, &we) {
		sb.WriteString(fmt.Sprintf("Error: %s\n", we.Message))

		if len(we.Details) > 0 {
			keys := make([]string, 0, len(we.Details))
			for k := range we.Details {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			sb.WriteString("\nDetails:\n")
			for _, k := range keys {
				sb.WriteString(fmt.Sprintf("  %s: %s\n", k, we.Details[k]))
			}
		}

		if we.Cause != nil {
			sb.WriteString(fmt.Sprintf("\nCause: %s\n", we.Cause))
		}

		if we.Transient {
			sb.WriteString("\nThis failure is temporary; retrying may succeed.\n")
		}

		if we.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("\nSuggestion: %s\n", we.Suggestion))
		}
	} else {
		sb.WriteString(fmt.Sprintf("Error: %s\n", err.Error()))
	}

	_, writeErr := w.Write([]byte(sb.String()))
	return writeErr
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		out := map[string]string{"status": "success", "message": message}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
