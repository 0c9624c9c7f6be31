// Package output renders command results and errors as text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Format is an output format.
type Format string

// Output formats. Auto resolves to text on a terminal and JSON otherwise.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter writes command results in one format.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a formatter writing to w.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: format, writer: w}
}

// Format returns the resolved format.
func (f *Formatter) Format() Format { return f.format }

// Writer returns the destination.
func (f *Formatter) Writer() io.Writer { return f.writer }

// IsJSON reports whether results are written as JSON.
func (f *Formatter) IsJSON() bool { return f.format == FormatJSON }

// Print writes v as indented JSON, or as one line of text using its
// String method when it has one.
func (f *Formatter) Print(v any) error {
	if f.IsJSON() {
		enc := json.NewEncoder(f.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	var line string
	switch val := v.(type) {
	case string:
		line = val
	case fmt.Stringer:
		line = val.String()
	default:
		line = fmt.Sprint(val)
	}
	_, err := fmt.Fprintln(f.writer, line)
	return err
}

// ParseFormat parses an --output value. Empty means auto.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	case FormatAuto, "":
		return FormatAuto, nil
	default:
		return FormatAuto, walleterr.WithSuggestion(
			walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"output": s}),
			"use --output text, json or auto")
	}
}

// DetectFormat resolves auto: text when w is a terminal, JSON otherwise.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: Fd fits in int
		return FormatText
	}
	return FormatJSON
}
