package repo

import (
	"database/sql"
	"errors"

	"context"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/trail"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// Research is an investigation thread (spec.md §3.1).
type Research struct {
	ID          string
	OrgID       string
	SessionID   *string
	Title       string
	Description *string
	Status      enum.ResearchStatus
	CreatedAt   string
	UpdatedAt   string
}

// ResearchRepo is the repository surface for research threads.
type ResearchRepo struct{ d deps }

// NewResearchRepo constructs a ResearchRepo.
func NewResearchRepo(deps Deps) *ResearchRepo { return &ResearchRepo{d: deps.asInternal()} }

// Create inserts a new research thread in status "open".
func (r *ResearchRepo) Create(ctx context.Context, orgID string, sessionID *string, title string, description *string) (Research, error) {
	res := Research{ID: ids.Generate(ids.Research), OrgID: orgID, SessionID: sessionID, Title: title, Description: description, Status: enum.ResearchOpen}
	ts := now()
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO research (id, org_id, session_id, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.OrgID, res.SessionID, res.Title, res.Description, string(res.Status), ts, ts)
	if err != nil {
		return Research{}, zerr.Wrap("repo: create research", err)
	}
	payload := map[string]any{"org_id": orgID, "title": title, "status": string(res.Status)}
	if _, err := r.d.audit.Append(ctx, orgID, sessionID, "research", res.ID, enum.ActionCreated, payload); err != nil {
		return Research{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "research", res.ID, payload); err != nil {
		return Research{}, err
	}
	return res, nil
}

// Get fetches a research thread by id.
func (r *ResearchRepo) Get(ctx context.Context, id string) (Research, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, session_id, title, description, status, created_at, updated_at
		FROM research WHERE id = ?`, id)
	res, err := scanResearch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Research{}, zerr.NoResult
	}
	return res, err
}

// List returns up to limit research threads for orgID, most recent first.
func (r *ResearchRepo) List(ctx context.Context, orgID string, limit int) ([]Research, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT id, org_id, session_id, title, description, status, created_at, updated_at
		FROM research WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Research
	for rows.Next() {
		res, err := scanResearch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, zerr.Wrap("repo: list research", rows.Err())
}

// ResearchUpdate is the partial-update struct for research threads.
type ResearchUpdate struct {
	Title       Opt[string]
	Description Opt[string]
}

// Update applies a partial update to a research thread.
func (r *ResearchRepo) Update(ctx context.Context, orgID, id string, u ResearchUpdate) (Research, error) {
	sets, args, payload := []string{}, []any{}, map[string]any{}
	if !u.Title.IsAbsent() {
		sets = append(sets, "title = ?")
		args = append(args, u.Title.Value())
		payload["title"] = u.Title.Value()
	}
	if !u.Description.IsAbsent() {
		sets = append(sets, "description = ?")
		args = append(args, u.Description.Value())
		payload["description"] = u.Description.Value()
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	ts := now()
	sets = append(sets, "updated_at = ?")
	args = append(args, ts, id)
	if _, err := r.d.st.Execute(ctx, "UPDATE research SET "+joinComma(sets)+" WHERE id = ?", args...); err != nil {
		return Research{}, zerr.Wrap("repo: update research", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "research", id, enum.ActionUpdated, payload); err != nil {
		return Research{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpUpdate, "research", id, payload); err != nil {
		return Research{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes a research thread by id.
func (r *ResearchRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM research WHERE id = ?`, id); err != nil {
		return zerr.Wrap("repo: delete research", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "research", id, enum.ActionUpdated, nil); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpDelete, "research", id, map[string]any{})
}

// Transition moves a research thread to a new status.
func (r *ResearchRepo) Transition(ctx context.Context, orgID, id string, next enum.ResearchStatus) (Research, error) {
	res, err := r.Get(ctx, id)
	if err != nil {
		return Research{}, err
	}
	if !res.Status.CanTransitionTo(next) {
		return Research{}, zerr.Wrapf(zerr.InvalidState, "repo: research %s cannot transition %s -> %s", id, res.Status, next)
	}
	ts := now()
	if _, err := r.d.st.Execute(ctx, `UPDATE research SET status = ?, updated_at = ? WHERE id = ?`, string(next), ts, id); err != nil {
		return Research{}, zerr.Wrap("repo: transition research", err)
	}
	data := trail.TransitionData{From: string(res.Status), To: string(next)}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "research", id, enum.ActionStatusChanged, data); err != nil {
		return Research{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpTransition, "research", id, data); err != nil {
		return Research{}, err
	}
	return r.Get(ctx, id)
}

func scanResearch(s rowScanner) (Research, error) {
	var res Research
	var sessionID, description sql.NullString
	var status string
	if err := s.Scan(&res.ID, &res.OrgID, &sessionID, &res.Title, &description, &status, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return Research{}, zerr.Wrap("repo: scan research", err)
	}
	res.Status = enum.ResearchStatus(status)
	if sessionID.Valid {
		res.SessionID = &sessionID.String
	}
	if description.Valid {
		res.Description = &description.String
	}
	return res, nil
}
