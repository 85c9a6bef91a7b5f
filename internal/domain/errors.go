package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by read paths when a hotel has no stored data.
var ErrNotFound = errors.New("not found")

// SourceErrorKind classifies a per-source failure. Unreachable and
// RateLimited are transient and worth retrying inside the source's own
// task; AuthFailed and Malformed are permanent for the run.
type SourceErrorKind string

const (
	ErrKindUnreachable SourceErrorKind = "unreachable"
	ErrKindRateLimited SourceErrorKind = "rate_limited"
	ErrKindAuthFailed  SourceErrorKind = "auth_failed"
	ErrKindMalformed   SourceErrorKind = "malformed"
)

// SourceError scopes a failure to one OTA. It never crosses the
// aggregator boundary as an error return; downstream it travels as
// data inside FetchOutcome.
type SourceError struct {
	Source Source          `json:"source"`
	Kind   SourceErrorKind `json:"kind"`
	Err    error           `json:"-"`
}

func NewSourceError(src Source, kind SourceErrorKind, err error) *SourceError {
	return &SourceError{Source: src, Kind: kind, Err: err}
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient.
func (e *SourceError) Retryable() bool {
	return e.Kind == ErrKindUnreachable || e.Kind == ErrKindRateLimited
}

// MarshalText keeps the error readable when outcomes are serialized.
func (e *SourceError) MarshalText() ([]byte, error) {
	return []byte(e.Error()), nil
}

// UnmarshalText restores the source and kind from the serialized form;
// the wrapped error comes back as an opaque message.
func (e *SourceError) UnmarshalText(b []byte) error {
	parts := strings.SplitN(string(b), ": ", 3)
	if len(parts) >= 2 {
		e.Source = Source(parts[0])
		e.Kind = SourceErrorKind(parts[1])
	}
	if len(parts) == 3 {
		e.Err = errors.New(parts[2])
	}
	return nil
}

// TotalAggregationFailure is returned when every configured source
// failed and the run produced no usable reviews. It carries each
// source's error so the caller can render a per-source reason.
type TotalAggregationFailure struct {
	Errors []*SourceError
}

func (e *TotalAggregationFailure) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, se := range e.Errors {
		parts = append(parts, se.Error())
	}
	return fmt.Sprintf("all %d sources failed: %s", len(e.Errors), strings.Join(parts, "; "))
}

// PipelineError is the top-level wrapper surfaced to callers of the
// pipeline. Stage names the stage that failed.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
