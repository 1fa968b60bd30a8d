package toolkit

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes reported in error envelopes.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeToolExecutionFailed = "TOOL_EXECUTION_FAILED"
	CodeUnknown             = "UNKNOWN_ERROR"
	CodeUnknownTool         = "UNKNOWN_TOOL"
)

// Coded is implemented by errors that carry an envelope code.
type Coded interface {
	error
	ErrorCode() string
}

// CodedError attaches a code to an error.
type CodedError struct {
	Code string
	Err  error
}

func (e *CodedError) Error() string { return e.Err.Error() }
func (e *CodedError) Unwrap() error { return e.Err }
func (e *CodedError) ErrorCode() string { return e.Code }

// InvalidInput builds an INVALID_INPUT error.
func InvalidInput(format string, args ...any) error {
	return &CodedError{Code: CodeInvalidInput, Err: fmt.Errorf(format, args...)}
}

// CodeOf returns the first code found in err's chain, or fallback.
func CodeOf(err error, fallback string) string {
	var coded Coded
	if errors.As(err, &coded) && coded.ErrorCode() != "" {
		return coded.ErrorCode()
	}
	return fallback
}

// Status values of an envelope.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type errorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrorJSON renders err as an error envelope.
func ErrorJSON(err error, fallbackCode string) string {
	return mustJSON(errorEnvelope{
		Status:  StatusError,
		Message: err.Error(),
		Code:    CodeOf(err, fallbackCode),
	})
}

// successJSON renders v, falling back to an error envelope if it cannot be encoded.
func successJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ErrorJSON(err, CodeUnknown)
	}
	return string(b)
}

func mustJSON(v errorEnvelope) string {
	// errorEnvelope holds only strings so Marshal cannot fail.
	b, _ := json.Marshal(v)
	return string(b)
}

// Envelope is the decoded common part of any tool result.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	TxID    string `json:"txId,omitempty"`
}

// ParseEnvelope decodes the common fields of a tool result.
func ParseEnvelope(output string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(output), &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return &env, nil
}
