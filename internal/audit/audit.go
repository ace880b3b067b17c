// Package audit implements the audit sink (spec.md §4.7): one row per
// mutation to any entity, queryable by entity, action, session, or time
// range. Every repository operation in internal/repo and internal/links
// calls Append exactly once per mutation, pairing it with exactly one
// internal/trail entry, per spec.md §3.3's audit/trail invariant.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/store"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// Entry is one audit row.
type Entry struct {
	ID         string
	OrgID      string
	SessionID  *string
	EntityType string
	EntityID   string
	Action     enum.AuditAction
	Detail     json.RawMessage
	CreatedAt  time.Time
}

// Filter selects a subset of audit rows; zero-value fields are unconstrained.
type Filter struct {
	EntityType string
	EntityID   string
	Action     string
	SessionID  string
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

// Sink wraps the embedded store's audit_entries table.
type Sink struct {
	st *store.Store
}

// New returns a Sink backed by st.
func New(st *store.Store) *Sink {
	return &Sink{st: st}
}

// Append persists one audit row with a freshly minted id and the current
// timestamp, returning the filled-in Entry.
func (s *Sink) Append(ctx context.Context, orgID string, sessionID *string, entityType, entityID string, action enum.AuditAction, detail any) (Entry, error) {
	raw, err := json.Marshal(detail)
	if err != nil {
		return Entry{}, zerr.Wrap("audit: marshal detail", err)
	}
	e := Entry{
		ID:         ids.Generate(ids.Audit),
		OrgID:      orgID,
		SessionID:  sessionID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Detail:     raw,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = s.st.Execute(ctx, `
		INSERT INTO audit_entries (id, org_id, session_id, entity_type, entity_id, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrgID, e.SessionID, e.EntityType, e.EntityID, string(e.Action), string(e.Detail), e.CreatedAt)
	if err != nil {
		return Entry{}, zerr.Wrap("audit: append", err)
	}
	return e, nil
}

// Query returns audit rows matching filter, newest first, bounded by
// filter.Limit (0 means unbounded).
func (s *Sink) Query(ctx context.Context, orgID string, filter Filter) ([]Entry, error) {
	q := `SELECT id, org_id, session_id, entity_type, entity_id, action, detail, created_at
	      FROM audit_entries WHERE org_id = ?`
	args := []any{orgID}

	if filter.EntityType != "" {
		q += " AND entity_type = ?"
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		q += " AND entity_id = ?"
		args = append(args, filter.EntityID)
	}
	if filter.Action != "" {
		q += " AND action = ?"
		args = append(args, filter.Action)
	}
	if filter.SessionID != "" {
		q += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.Since != nil {
		q += " AND created_at >= ?"
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		q += " AND created_at <= ?"
		args = append(args, *filter.Until)
	}
	q += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.st.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var sessionID sql.NullString
		var action, detail string
		if err := rows.Scan(&e.ID, &e.OrgID, &sessionID, &e.EntityType, &e.EntityID, &action, &detail, &e.CreatedAt); err != nil {
			return nil, zerr.Wrap("audit: scan", err)
		}
		if sessionID.Valid {
			e.SessionID = &sessionID.String
		}
		e.Action = enum.AuditAction(action)
		e.Detail = json.RawMessage(detail)
		out = append(out, e)
	}
	return out, zerr.Wrap("audit: rows", rows.Err())
}
