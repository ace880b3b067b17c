// Package ids mints prefix-tagged unique identifiers for every entity kind
// in the knowledge store. Tokens are monotonic and lexicographically
// sortable so that an id sorts by creation order without a secondary
// timestamp column — the same property the teacher's idgen package chased
// with base36-encoded content hashes, achieved here with ULIDs because
// entities need creation-time ordering, not human-typable short codes.
package ids

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefix is one of the fixed, closed set of identifier prefixes named in
// spec.md §6. The set is load-bearing: the replayer and the FTS/trail
// formats depend on these exact strings.
type Prefix string

const (
	Session    Prefix = "ses"
	Research   Prefix = "res"
	Finding    Prefix = "fnd"
	Hypothesis Prefix = "hyp"
	Insight    Prefix = "ins"
	Issue      Prefix = "iss"
	Task       Prefix = "tsk"
	ImplLog    Prefix = "imp"
	Compat     Prefix = "cmp"
	Study      Prefix = "stu"
	Decision   Prefix = "dec"
	Link       Prefix = "lnk"
	Audit      Prefix = "aud"
)

// validPrefixes is used to make the prefix set's closure checkable at
// runtime (e.g. by the trail replayer when dispatching on entity kind).
var validPrefixes = map[Prefix]bool{
	Session: true, Research: true, Finding: true, Hypothesis: true,
	Insight: true, Issue: true, Task: true, ImplLog: true,
	Compat: true, Study: true, Decision: true, Link: true, Audit: true,
}

// Valid reports whether p is one of the fixed prefixes in spec.md §6.
func Valid(p Prefix) bool {
	return validPrefixes[p]
}

// mint is a monotonic ULID source. A single entropy source shared across
// calls from the same process guarantees that ids generated in the same
// millisecond still sort correctly relative to each other, which matters
// for trail replay ordering (spec.md §3.3: "Trail ordering").
type mint struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var globalMint = &mint{
	entropy: ulid.Monotonic(rand.Reader, 0),
}

// Generate mints a new identifier of the form "<prefix>-<ulid>". Collisions
// are astronomically unlikely and, per spec.md §4.1, are treated as fatal
// at the call site (the caller should retry the whole logical operation
// with a fresh id rather than attempt to repair a partial write).
func Generate(prefix Prefix) string {
	globalMint.mu.Lock()
	defer globalMint.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), globalMint.entropy)
	return fmt.Sprintf("%s-%s", prefix, id.String())
}

// GenerateAt is Generate with an explicit timestamp: the id's time part is
// t, while its random part still comes from the shared monotonic entropy
// source, so two calls with the same t give different ids. The trail
// replayer does not call it (ids are always read from the envelope).
func GenerateAt(prefix Prefix, t time.Time) string {
	globalMint.mu.Lock()
	defer globalMint.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(t.UTC()), globalMint.entropy)
	return fmt.Sprintf("%s-%s", prefix, id.String())
}
