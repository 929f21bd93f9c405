package testutils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ErrorHere records a failure with testify's error trace pointing at the
// caller, and lets the test continue.
func ErrorHere(test testing.TB, format string, args ...interface{}) bool {
	test.Helper()
	return assert.Fail(test, fmt.Sprintf(format, args...))
}

// FatalHere is ErrorHere followed by FailNow.
func FatalHere(test testing.TB, format string, args ...interface{}) {
	test.Helper()
	require.FailNow(test, fmt.Sprintf(format, args...))
}
