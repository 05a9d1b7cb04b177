package errorcapture

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertSuperset(t *testing.T, got []string, want []string) {
	t.Helper()
	set := map[string]bool{}
	for _, g := range got {
		set[g] = true
	}
	for _, w := range want {
		assert.Truef(t, set[w], "expected tag %q in %v", w, got)
	}
}

func TestTagsOf_GridtoolSyntaxError(t *testing.T) {
	tags := TagsOf(
		"gridtool: unknown command 'talley'. Usage: gridtool …. Exit code 127",
		nil,
		"run_gridtool --input fixture.csv",
		nil,
	)
	assertSuperset(t, tags, []string{"surface_cli", "syntax_error", "command_not_found", "nonzero_exit"})
}

func TestTagsOf_HTTPRateLimited(t *testing.T) {
	tags := TagsOf(
		"HTTP 429 Too Many Requests… Retry after 20 seconds",
		"connection reset",
		"",
		nil,
	)
	assertSuperset(t, tags, []string{"surface_http", "rate_limited", "timeout", "network", "retryable"})
}

func TestTagsOf_NoMatchIsUncategorized(t *testing.T) {
	tags := TagsOf("all good", nil, "", nil)
	assert.Equal(t, []string{"uncategorized"}, tags)
}

func TestTagsOf_SortedAndDeduped(t *testing.T) {
	tags := TagsOf("timeout timeout timed out", nil, "", []string{"timeout"})
	count := 0
	for _, tg := range tags {
		if tg == "timeout" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.True(t, sort.StringsAreSorted(tags))
}
