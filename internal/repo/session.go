package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/trail"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// Session is a unit of work (spec.md §3.1). Sessions transition forward
// only: active -> {wrapped_up, abandoned}.
type Session struct {
	ID        string
	OrgID     string
	Status    enum.SessionStatus
	StartedAt string
	EndedAt   *string
	Summary   *string
	CreatedAt string
	UpdatedAt string
}

// SessionRepo is the repository surface for sessions.
type SessionRepo struct{ d deps }

// NewSessionRepo constructs a SessionRepo.
func NewSessionRepo(deps Deps) *SessionRepo { return &SessionRepo{d: deps.asInternal()} }

// Start creates a new session in status "active" and emits a
// "session_start" audit row.
func (r *SessionRepo) Start(ctx context.Context, orgID string) (Session, error) {
	ts := now()
	s := Session{ID: ids.Generate(ids.Session), OrgID: orgID, Status: enum.SessionActive}
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO sessions (id, org_id, status, started_at, ended_at, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULL, NULL, ?, ?)`,
		s.ID, s.OrgID, string(s.Status), ts, ts, ts)
	if err != nil {
		return Session{}, zerr.Wrap("repo: start session", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, &s.ID, "session", s.ID, enum.ActionSessionStart, nil); err != nil {
		return Session{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "session", s.ID, map[string]any{"org_id": orgID, "status": string(s.Status), "started_at": ts}); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Get fetches a session by id.
func (r *SessionRepo) Get(ctx context.Context, id string) (Session, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, status, started_at, ended_at, summary, created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, zerr.NoResult
	}
	return s, err
}

// WrapUp transitions a session to "wrapped_up", storing summary, and emits
// "wrap_up" as the audit action (distinct from the generic status_changed
// action, per spec.md §3.1's audit action enum).
func (r *SessionRepo) WrapUp(ctx context.Context, orgID, id string, summary *string) (Session, error) {
	return r.end(ctx, orgID, id, enum.SessionWrappedUp, enum.ActionWrapUp, summary)
}

// Abandon transitions a session to "abandoned".
func (r *SessionRepo) Abandon(ctx context.Context, orgID, id string) (Session, error) {
	return r.end(ctx, orgID, id, enum.SessionAbandoned, enum.ActionSessionEnd, nil)
}

func (r *SessionRepo) end(ctx context.Context, orgID, id string, next enum.SessionStatus, action enum.AuditAction, summary *string) (Session, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !s.Status.CanTransitionTo(next) {
		return Session{}, zerr.Wrapf(zerr.InvalidState, "repo: session %s cannot transition %s -> %s", id, s.Status, next)
	}
	ts := now()
	if _, err := r.d.st.Execute(ctx, `UPDATE sessions SET status = ?, ended_at = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(next), ts, summary, ts, id); err != nil {
		return Session{}, zerr.Wrap("repo: end session", err)
	}
	data := trail.TransitionData{From: string(s.Status), To: string(next)}
	if _, err := r.d.audit.Append(ctx, orgID, &id, "session", id, action, data); err != nil {
		return Session{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpTransition, "session", id, data); err != nil {
		return Session{}, err
	}
	return r.Get(ctx, id)
}

func scanSession(s rowScanner) (Session, error) {
	var sess Session
	var endedAt, summary sql.NullString
	var status string
	if err := s.Scan(&sess.ID, &sess.OrgID, &status, &sess.StartedAt, &endedAt, &summary, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return Session{}, zerr.Wrap("repo: scan session", err)
	}
	sess.Status = enum.SessionStatus(status)
	if endedAt.Valid {
		sess.EndedAt = &endedAt.String
	}
	if summary.Valid {
		sess.Summary = &summary.String
	}
	return sess, nil
}
