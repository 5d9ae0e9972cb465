// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestingT is the part of *testing.T the assertions need. GinkgoT()
// satisfies it too.
type TestingT interface {
	require.TestingT
	Helper()
}

// AssertErrorCode asserts that err is an oops error with the given code.
func AssertErrorCode(t TestingT, err error, code string, msgAndArgs ...any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	if !assert.True(t, ok, "expected oops error, got %T", err) {
		t.FailNow()
		return
	}
	assert.Equal(t, code, oopsErr.Code(), msgAndArgs...)
}

// AssertErrorContext asserts that err is an oops error carrying key=value.
func AssertErrorContext(t TestingT, err error, key string, value any) {
	t.Helper()
	AssertErrorFields(t, err, "", map[string]any{key: value})
}

// AssertErrorFields asserts err's code and every listed context field. An
// empty code skips the code check.
func AssertErrorFields(t TestingT, err error, code string, fields map[string]any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	if !assert.True(t, ok, "expected oops error, got %T", err) {
		t.FailNow()
		return
	}
	if code != "" {
		assert.Equal(t, code, oopsErr.Code())
	}
	ctx := oopsErr.Context()
	for key, want := range fields {
		if assert.Contains(t, ctx, key) {
			assert.Equal(t, want, ctx[key], "context %q", key)
		}
	}
}
