// Package trail implements the append-only, per-session JSONL operation
// log (spec.md §4.4): one file per session, one line per mutation, and a
// replayer that can deterministically rebuild the relational store from
// the files on disk. The line-scanning idiom (buffered scanner with an
// enlarged buffer for big payloads, one JSON object per line) is adapted
// from the teacher's internal/jsonl package.
package trail

import (
	"encoding/json"
	"time"

	"github.com/zenith-dev/zenith/internal/enum"
)

// CurrentVersion is the only trail envelope version this implementation
// understands. Replay rejects any other value with zerr.InvalidState.
const CurrentVersion = 1

// Envelope is one line of a trail file: {v, ts, ses, op, entity, id, data}.
type Envelope struct {
	V      int             `json:"v"`
	Ts     time.Time       `json:"ts"`
	Ses    string          `json:"ses"`
	Op     enum.TrailOp    `json:"op"`
	Entity string          `json:"entity"`
	ID     string          `json:"id"`
	Data   json.RawMessage `json:"data"`
}

// NewEnvelope builds an envelope with the current version and the given
// fields, marshaling data to its raw JSON form.
func NewEnvelope(ses string, op enum.TrailOp, entity, id string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		V:      CurrentVersion,
		Ts:     time.Now().UTC(),
		Ses:    ses,
		Op:     op,
		Entity: entity,
		ID:     id,
		Data:   raw,
	}, nil
}

// TransitionData is the payload shape for op=transition.
type TransitionData struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Reason *string `json:"reason,omitempty"`
}

// TagData is the payload shape for op=tag / op=untag.
type TagData struct {
	Tag string `json:"tag"`
}

// LinkData is the payload shape for op=link / op=unlink.
type LinkData struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Relation   string `json:"relation"`
	OrgID      string `json:"org_id"`
}
