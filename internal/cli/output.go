package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

// Response is the single-line JSON envelope every subcommand emits to
// stdout: either a populated Result, or a populated Error, never both.
type Response struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody mirrors the coordinator's apperr.Error shape, flattened for
// a CLI caller that has no Go import of the internal package.
type ErrorBody struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// WriteResult marshals v as a successful Response and writes it to stdout.
func WriteResult(v interface{}) error {
	return WriteJSON(Response{OK: true, Result: v})
}

// WriteError marshals an ErrorBody as a failed Response and writes it to stdout.
func WriteError(kind, message string, detail map[string]any) error {
	return WriteJSON(Response{OK: false, Error: &ErrorBody{Kind: kind, Message: message, Detail: detail}})
}

// WriteJSON serializes v to a single line of JSON on stdout.
func WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintf(os.Stdout, "%s\n", data)
	return err
}

// WriteLog writes a human-readable line to stderr, used in dashboard
// mode where stdout is reserved for the single JSON Response.
func WriteLog(message string) {
	fmt.Fprintf(os.Stderr, "%s\n", message)
}
