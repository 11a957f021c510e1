package testutil

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertInstanceState checks the run summary within a HarnessResult for the
// line of instance id and its final state, e.g. "succeeded".
func AssertInstanceState(t *testing.T, result *HarnessResult, id, state string) {
	t.Helper()

	pattern := fmt.Sprintf(`(?m)^%s\s+%s\b`, regexp.QuoteMeta(id), regexp.QuoteMeta(state))
	require.Regexp(t, pattern, result.Output,
		"expected summary line for instance %q in state %q", id, state)
}

// AssertCacheHit checks that the run summary reports instance id as served
// from the cache.
func AssertCacheHit(t *testing.T, result *HarnessResult, id string) {
	t.Helper()

	pattern := fmt.Sprintf(`(?m)^%s\s+succeeded\s+yes\b`, regexp.QuoteMeta(id))
	require.Regexp(t, pattern, result.Output, "expected instance %q to be a cache hit", id)
}
