package output

import (
	"fmt"
	"io"
	"os"
)

// Messages go to stderr so stdout stays parseable in JSON mode.
//
//nolint:gochecknoglobals // replaced in tests
var messageWriter io.Writer = os.Stderr

// SetMessageWriter redirects Info, Warn and Success.
func SetMessageWriter(w io.Writer) { messageWriter = w }

// Info prints an informational message.
func Info(msg string) {
	_, _ = fmt.Fprintln(messageWriter, "info: "+msg)
}

// Infof prints a formatted informational message.
func Infof(format string, args ...any) {
	Info(fmt.Sprintf(format, args...))
}

// Warn prints a warning message.
func Warn(msg string) {
	_, _ = fmt.Fprintln(messageWriter, "warning: "+msg)
}

// Warnf prints a formatted warning message.
func Warnf(format string, args ...any) {
	Warn(fmt.Sprintf(format, args...))
}

// Success prints a success message.
func Success(msg string) {
	_, _ = fmt.Fprintln(messageWriter, msg)
}

// Successf prints a formatted success message.
func Successf(format string, args ...any) {
	Success(fmt.Sprintf(format, args...))
}
