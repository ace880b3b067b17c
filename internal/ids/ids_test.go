package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePrefix(t *testing.T) {
	id := Generate(Hypothesis)
	require.True(t, strings.HasPrefix(id, "hyp-"))
	assert.Len(t, strings.TrimPrefix(id, "hyp-"), 26) // ULID is 26 chars
}

func TestGenerateMonotonic(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = Generate(Task)
	}
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i], "ids must sort lexicographically by creation order")
	}
}

func TestValidPrefixes(t *testing.T) {
	for _, p := range []Prefix{Session, Research, Finding, Hypothesis, Insight, Issue, Task, ImplLog, Compat, Study, Decision, Link, Audit} {
		assert.True(t, Valid(p))
	}
	assert.False(t, Valid(Prefix("zzz")))
}
