package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// Decision is a recorded choice (spec.md §3.1).
type Decision struct {
	ID        string
	OrgID     string
	SessionID *string
	Title     string
	Rationale *string
	CreatedAt string
	UpdatedAt string
}

// DecisionRepo is the repository surface for decisions.
type DecisionRepo struct{ d deps }

// NewDecisionRepo constructs a DecisionRepo.
func NewDecisionRepo(deps Deps) *DecisionRepo { return &DecisionRepo{d: deps.asInternal()} }

// Create inserts a new decision.
func (r *DecisionRepo) Create(ctx context.Context, orgID string, sessionID *string, title string, rationale *string) (Decision, error) {
	d := Decision{ID: ids.Generate(ids.Decision), OrgID: orgID, SessionID: sessionID, Title: title, Rationale: rationale}
	ts := now()
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO decisions (id, org_id, session_id, title, rationale, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OrgID, d.SessionID, d.Title, d.Rationale, ts, ts)
	if err != nil {
		return Decision{}, zerr.Wrap("repo: create decision", err)
	}
	payload := map[string]any{"org_id": orgID, "title": title}
	if _, err := r.d.audit.Append(ctx, orgID, sessionID, "decision", d.ID, enum.ActionCreated, payload); err != nil {
		return Decision{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "decision", d.ID, payload); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// Get fetches a decision by id.
func (r *DecisionRepo) Get(ctx context.Context, id string) (Decision, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, session_id, title, rationale, created_at, updated_at
		FROM decisions WHERE id = ?`, id)
	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Decision{}, zerr.NoResult
	}
	return d, err
}

// List returns up to limit decisions for orgID, most recent first.
func (r *DecisionRepo) List(ctx context.Context, orgID string, limit int) ([]Decision, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT id, org_id, session_id, title, rationale, created_at, updated_at
		FROM decisions WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, zerr.Wrap("repo: list decisions", rows.Err())
}

// Delete removes a decision by id.
func (r *DecisionRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM decisions WHERE id = ?`, id); err != nil {
		return zerr.Wrap("repo: delete decision", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "decision", id, enum.ActionUpdated, nil); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpDelete, "decision", id, map[string]any{})
}

func scanDecision(s rowScanner) (Decision, error) {
	var d Decision
	var sessionID, rationale sql.NullString
	if err := s.Scan(&d.ID, &d.OrgID, &sessionID, &d.Title, &rationale, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Decision{}, zerr.Wrap("repo: scan decision", err)
	}
	if sessionID.Valid {
		d.SessionID = &sessionID.String
	}
	if rationale.Valid {
		d.Rationale = &rationale.String
	}
	return d, nil
}
