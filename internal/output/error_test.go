package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/dnawallet/internal/output"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, nil, output.FormatText))
	assert.Empty(t, buf.String())
}

func TestFormatError_GenericJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, errors.New("boom"), output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "GENERAL_ERROR", result.Error.Code)
	assert.Equal(t, "boom", result.Error.Message)
	assert.Equal(t, walleterr.ExitGeneral, result.Error.ExitCode)
}

func TestFormatError_WalletErrorJSON(t *testing.T) {
	t.Parallel()
	err := walleterr.WithDetails(walleterr.ErrInsufficientFunds, map[string]string{
		"required":  "115",
		"available": "20",
	})
	err = walleterr.WithSuggestion(err, "fund the wallet or lower the amount")

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "INSUFFICIENT_FUNDS", result.Error.Code)
	assert.Equal(t, "115", result.Error.Details["required"])
	assert.Equal(t, "fund the wallet or lower the amount", result.Error.Suggestion)
	assert.Equal(t, walleterr.ExitPermission, result.Error.ExitCode)
	assert.Equal(t, "resource", result.Error.Category)
	assert.False(t, result.Error.Retryable)
}

func TestFormatError_TransientText(t *testing.T) {
	t.Parallel()
	err := walleterr.WithDetails(walleterr.ErrNetworkError, map[string]string{
		"method":   "tx_create",
		"endpoint": "http://127.0.0.1:8079",
	})

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))

	text := buf.String()
	assert.Contains(t, text, "Error: "+walleterr.ErrNetworkError.Message)
	assert.Contains(t, text, "Details:\n  endpoint: http://127.0.0.1:8079\n  method: tx_create\n")
	assert.Contains(t, text, "retrying may succeed")
}

func TestDescribe_WrappedContext(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("to address: %w", walleterr.ErrInvalidAddress)

	d := output.Describe(err)
	assert.Equal(t, walleterr.ErrInvalidAddress.Code, d.Code)
	assert.Equal(t, "input", d.Category)
	assert.Contains(t, d.Cause, "to address")
}

func TestFormatSuccess(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	require.NoError(t, output.FormatSuccess(&text, "done", output.FormatText))
	assert.Equal(t, "done\n", text.String())

	var js bytes.Buffer
	require.NoError(t, output.FormatSuccess(&js, "done", output.FormatJSON))
	var result map[string]string
	require.NoError(t, json.Unmarshal(js.Bytes(), &result))
	assert.Equal(t, "success", result["status"])
}
