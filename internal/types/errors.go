package types

import "fmt"

// ValidationError is a missing or malformed required field. It is surfaced
// to the caller verbatim and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError
func Validation(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// UpstreamError wraps a failed embedding or LLM provider call
type UpstreamError struct {
	Provider string
	Op       string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ParseError means an LLM response did not have the expected shape
type ParseError struct {
	Raw string
	Err error
}

// rawPrefixLen bounds how much of a bad response is kept for diagnosis
const rawPrefixLen = 200

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RawPrefix returns the start of the offending response for logging
func (e *ParseError) RawPrefix() string {
	r := []rune(e.Raw)
	if len(r) <= rawPrefixLen {
		return e.Raw
	}
	return string(r[:rawPrefixLen]) + "..."
}

// PartialIngestionError reports an ingestion that stopped after some chunks
// were already persisted. The written chunks are left in place.
type PartialIngestionError struct {
	DocumentID    string
	ChunksCreated int
	Err           error
}

func (e *PartialIngestionError) Error() string {
	return fmt.Sprintf("ingestion of document %s stopped after %d chunks: %v", e.DocumentID, e.ChunksCreated, e.Err)
}

func (e *PartialIngestionError) Unwrap() error { return e.Err }
