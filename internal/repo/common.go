// Package repo implements the entity repositories (spec.md §4.5): create,
// get, update, delete, list, and (where applicable) FTS search and status
// transition, for each of the eleven entity kinds in spec.md §3.1. Every
// mutation emits exactly one audit row and one trail entry, grounded on the
// teacher's internal/storage/sqlite/issues.go prepared-statement and
// bulk-insert idiom, generalized across entity kinds.
package repo

import (
	"context"
	"time"

	"github.com/zenith-dev/zenith/internal/audit"
	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/store"
	"github.com/zenith-dev/zenith/internal/trail"
)

// Opt represents an optional update field: Absent means "don't touch",
// Present with a nil Value means "set null", Present with a non-nil Value
// means "set to this value" — the None / Some(None) / Some(v) shape spec.md
// §4.5 calls for.
type Opt[T any] struct {
	set   bool
	value *T
}

// None returns an absent Opt: the field is left untouched by an update.
func None[T any]() Opt[T] { return Opt[T]{} }

// SetNull returns an Opt that clears the field to NULL.
func SetNull[T any]() Opt[T] { return Opt[T]{set: true} }

// Set returns an Opt carrying a new value for the field.
func Set[T any](v T) Opt[T] { return Opt[T]{set: true, value: &v} }

// IsAbsent reports whether the field should be left untouched.
func (o Opt[T]) IsAbsent() bool { return !o.set }

// Value returns the pointer to apply (nil means "set null"). Callers must
// check IsAbsent first.
func (o Opt[T]) Value() *T { return o.value }

// deps bundles the shared collaborators every entity repository needs: the
// store, the audit sink, and the (optional) trail writer for the active
// session.
type deps struct {
	st    *store.Store
	audit *audit.Sink
	tr    *trail.Writer
}

// Deps is the public constructor argument shared by every New<Entity>Repo
// function.
type Deps struct {
	Store *store.Store
	Audit *audit.Sink
	Trail *trail.Writer // nil disables trail writes, e.g. during replay
}

func (d Deps) asInternal() deps {
	return deps{st: d.Store, audit: d.Audit, tr: d.Trail}
}

func (d deps) emitTrail(ctx context.Context, op enum.TrailOp, entity, id string, data any) error {
	if d.tr == nil {
		return nil
	}
	return d.tr.Append(ctx, op, entity, id, data)
}

func now() time.Time { return time.Now().UTC() }
