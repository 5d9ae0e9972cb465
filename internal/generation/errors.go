// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package generation

import (
	"github.com/samber/oops"
)

// Error codes for generation failures.
const (
	// CodeTimeout marks an attempt that exceeded its request timeout. Retryable.
	CodeTimeout = "GENERATION_TIMEOUT"
	// CodeUnavailable marks a transport failure or 5xx response. Retryable.
	CodeUnavailable = "GENERATION_UNAVAILABLE"
	// CodeRejected marks a 4xx response. Not retryable.
	CodeRejected = "GENERATION_REJECTED"
	// CodeBackendError marks an explicit {error} in the response.
	CodeBackendError = "GENERATION_BACKEND_ERROR"
	// CodeMalformedResponse marks an envelope or inner payload that could not
	// be decoded or is missing required fields.
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	// CodeCanceled marks a call abandoned because its context ended.
	CodeCanceled = "GENERATION_CANCELED"
)

func errTimeout(tool string, attempt int, cause error) error {
	return oops.Code(CodeTimeout).
		With("tool", tool).
		With("attempt", attempt).
		Wrapf(cause, "generation request timed out")
}

func errUnavailable(tool string, attempt int, cause error) error {
	return oops.Code(CodeUnavailable).
		With("tool", tool).
		With("attempt", attempt).
		Wrapf(cause, "generation backend unavailable")
}

func errServerStatus(tool string, attempt, status int) error {
	return oops.Code(CodeUnavailable).
		With("tool", tool).
		With("attempt", attempt).
		With("status", status).
		Errorf("generation backend returned status %d", status)
}

func errRejected(tool string, status int, message string) error {
	return oops.Code(CodeRejected).
		With("tool", tool).
		With("status", status).
		With("backend_error", message).
		Errorf("generation backend rejected request with status %d", status)
}

func errBackend(message string) error {
	return oops.Code(CodeBackendError).
		With("backend_error", message).
		Errorf("generation backend reported an error: %s", message)
}

func errMalformed(reason string, cause error) error {
	builder := oops.Code(CodeMalformedResponse).With("reason", reason)
	if cause != nil {
		return builder.Wrapf(cause, "malformed generation response: %s", reason)
	}
	return builder.Errorf("malformed generation response: %s", reason)
}

func errCanceled(tool string, cause error) error {
	return oops.Code(CodeCanceled).
		With("tool", tool).
		Wrapf(cause, "generation request canceled")
}

// Code returns the generation error code carried by err, or "" if none.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	switch Code(err) {
	case CodeTimeout, CodeUnavailable:
		return true
	default:
		return false
	}
}

// IsCanceled reports whether err means the caller abandoned the request.
func IsCanceled(err error) bool {
	return Code(err) == CodeCanceled
}

// Attempts returns how many network attempts were made before err, or 0 if
// err did not come from Call.
func Attempts(err error) int {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0
	}
	if n, ok := oopsErr.Context()["attempts"].(int); ok {
		return n
	}
	return 0
}
