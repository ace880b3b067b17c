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

// Hypothesis is a proposition under investigation (spec.md §3.1).
type Hypothesis struct {
	ID         string
	OrgID      string
	SessionID  *string
	ResearchID *string
	FindingID  *string
	Content    string
	Status     enum.HypothesisStatus
	Reason     *string
	CreatedAt  string
	UpdatedAt  string
}

// HypothesisRepo is the repository surface for hypotheses.
type HypothesisRepo struct{ d deps }

// NewHypothesisRepo constructs a HypothesisRepo.
func NewHypothesisRepo(deps Deps) *HypothesisRepo { return &HypothesisRepo{d: deps.asInternal()} }

// Create inserts a new hypothesis in status "unverified" and emits a
// "created" audit row plus a "create" trail entry.
func (r *HypothesisRepo) Create(ctx context.Context, orgID string, sessionID, researchID, findingID *string, content string) (Hypothesis, error) {
	h := Hypothesis{
		ID: ids.Generate(ids.Hypothesis), OrgID: orgID, SessionID: sessionID,
		ResearchID: researchID, FindingID: findingID, Content: content,
		Status: enum.HypothesisUnverified,
	}
	ts := now()
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO hypotheses (id, org_id, session_id, research_id, finding_id, content, status, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		h.ID, h.OrgID, h.SessionID, h.ResearchID, h.FindingID, h.Content, string(h.Status), ts, ts)
	if err != nil {
		return Hypothesis{}, zerr.Wrap("repo: create hypothesis", err)
	}
	h.CreatedAt, h.UpdatedAt = ts.Format(timeFormat), ts.Format(timeFormat)

	payload := map[string]any{"org_id": orgID, "content": content, "status": string(h.Status)}
	if _, err := r.d.audit.Append(ctx, orgID, sessionID, "hypothesis", h.ID, enum.ActionCreated, payload); err != nil {
		return Hypothesis{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "hypothesis", h.ID, payload); err != nil {
		return Hypothesis{}, err
	}
	return h, nil
}

// Get fetches a hypothesis by id.
func (r *HypothesisRepo) Get(ctx context.Context, id string) (Hypothesis, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, session_id, research_id, finding_id, content, status, reason, created_at, updated_at
		FROM hypotheses WHERE id = ?`, id)
	return scanHypothesis(row)
}

// List returns up to limit hypotheses for orgID, most recent first.
func (r *HypothesisRepo) List(ctx context.Context, orgID string, limit int) ([]Hypothesis, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT id, org_id, session_id, research_id, finding_id, content, status, reason, created_at, updated_at
		FROM hypotheses WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Hypothesis
	for rows.Next() {
		h, err := scanHypothesisRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, zerr.Wrap("repo: list hypotheses", rows.Err())
}

// Search runs an FTS MATCH query over hypothesis content, ordered by rank.
func (r *HypothesisRepo) Search(ctx context.Context, orgID, query string, limit int) ([]Hypothesis, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT h.id, h.org_id, h.session_id, h.research_id, h.finding_id, h.content, h.status, h.reason, h.created_at, h.updated_at
		FROM hypotheses h JOIN hypotheses_fts f ON f.rowid = h.rowid
		WHERE f.content MATCH ? AND h.org_id = ? ORDER BY rank LIMIT ?`, query, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Hypothesis
	for rows.Next() {
		h, err := scanHypothesisRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, zerr.Wrap("repo: search hypotheses", rows.Err())
}

// HypothesisUpdate is the partial-update struct: absent fields are untouched.
type HypothesisUpdate struct {
	Content Opt[string]
	Reason  Opt[string]
}

// Update applies a partial update, emits "updated" audit + "update" trail.
func (r *HypothesisRepo) Update(ctx context.Context, orgID, id string, u HypothesisUpdate) (Hypothesis, error) {
	sets, args, payload := []string{}, []any{}, map[string]any{}
	if !u.Content.IsAbsent() {
		sets = append(sets, "content = ?")
		args = append(args, u.Content.Value())
		payload["content"] = u.Content.Value()
	}
	if !u.Reason.IsAbsent() {
		sets = append(sets, "reason = ?")
		args = append(args, u.Reason.Value())
		payload["reason"] = u.Reason.Value()
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	ts := now()
	sets = append(sets, "updated_at = ?")
	args = append(args, ts, id)
	q := "UPDATE hypotheses SET " + joinComma(sets) + " WHERE id = ?"
	if _, err := r.d.st.Execute(ctx, q, args...); err != nil {
		return Hypothesis{}, zerr.Wrap("repo: update hypothesis", err)
	}

	if _, err := r.d.audit.Append(ctx, orgID, nil, "hypothesis", id, enum.ActionUpdated, payload); err != nil {
		return Hypothesis{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpUpdate, "hypothesis", id, payload); err != nil {
		return Hypothesis{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes a hypothesis by id.
func (r *HypothesisRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM hypotheses WHERE id = ?`, id); err != nil {
		return zerr.Wrap("repo: delete hypothesis", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "hypothesis", id, enum.ActionUpdated, nil); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpDelete, "hypothesis", id, map[string]any{})
}

// Transition moves a hypothesis to a new status, validated against the enum
// registry's transition table first. On rejection the store is left
// unchanged and zerr.InvalidState is returned.
func (r *HypothesisRepo) Transition(ctx context.Context, orgID, id string, next enum.HypothesisStatus, reason *string) (Hypothesis, error) {
	h, err := r.Get(ctx, id)
	if err != nil {
		return Hypothesis{}, err
	}
	if !h.Status.CanTransitionTo(next) {
		return Hypothesis{}, zerr.Wrapf(zerr.InvalidState, "repo: hypothesis %s cannot transition %s -> %s", id, h.Status, next)
	}

	ts := now()
	if _, err := r.d.st.Execute(ctx, `UPDATE hypotheses SET status = ?, reason = ?, updated_at = ? WHERE id = ?`,
		string(next), reason, ts, id); err != nil {
		return Hypothesis{}, zerr.Wrap("repo: transition hypothesis", err)
	}

	data := trail.TransitionData{From: string(h.Status), To: string(next), Reason: reason}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "hypothesis", id, enum.ActionStatusChanged, data); err != nil {
		return Hypothesis{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpTransition, "hypothesis", id, data); err != nil {
		return Hypothesis{}, err
	}
	return r.Get(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHypothesis(row *sql.Row) (Hypothesis, error) {
	h, err := scanHypothesisCommon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Hypothesis{}, zerr.NoResult
	}
	return h, err
}

func scanHypothesisRows(rows *sql.Rows) (Hypothesis, error) {
	return scanHypothesisCommon(rows)
}

func scanHypothesisCommon(s rowScanner) (Hypothesis, error) {
	var h Hypothesis
	var sessionID, researchID, findingID, reason sql.NullString
	var status string
	if err := s.Scan(&h.ID, &h.OrgID, &sessionID, &researchID, &findingID, &h.Content, &status, &reason, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return Hypothesis{}, zerr.Wrap("repo: scan hypothesis", err)
	}
	h.Status = enum.HypothesisStatus(status)
	if sessionID.Valid {
		h.SessionID = &sessionID.String
	}
	if researchID.Valid {
		h.ResearchID = &researchID.String
	}
	if findingID.Valid {
		h.FindingID = &findingID.String
	}
	if reason.Valid {
		h.Reason = &reason.String
	}
	return h, nil
}

const timeFormat = "2006-01-02T15:04:05.999999999Z07:00"

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
