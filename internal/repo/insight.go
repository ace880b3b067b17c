package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// Insight is a durable conclusion with a confidence rating (spec.md §3.1).
type Insight struct {
	ID         string
	OrgID      string
	SessionID  *string
	ResearchID *string
	Content    string
	Confidence enum.Confidence
	CreatedAt  string
	UpdatedAt  string
}

// InsightRepo is the repository surface for insights.
type InsightRepo struct{ d deps }

// NewInsightRepo constructs an InsightRepo.
func NewInsightRepo(deps Deps) *InsightRepo { return &InsightRepo{d: deps.asInternal()} }

// Create inserts a new insight.
func (r *InsightRepo) Create(ctx context.Context, orgID string, sessionID, researchID *string, content string, confidence enum.Confidence) (Insight, error) {
	i := Insight{ID: ids.Generate(ids.Insight), OrgID: orgID, SessionID: sessionID, ResearchID: researchID, Content: content, Confidence: confidence}
	ts := now()
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO insights (id, org_id, session_id, research_id, content, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.OrgID, i.SessionID, i.ResearchID, i.Content, string(i.Confidence), ts, ts)
	if err != nil {
		return Insight{}, zerr.Wrap("repo: create insight", err)
	}
	payload := map[string]any{"org_id": orgID, "content": content, "confidence": string(confidence)}
	if _, err := r.d.audit.Append(ctx, orgID, sessionID, "insight", i.ID, enum.ActionCreated, payload); err != nil {
		return Insight{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "insight", i.ID, payload); err != nil {
		return Insight{}, err
	}
	return i, nil
}

// Get fetches an insight by id.
func (r *InsightRepo) Get(ctx context.Context, id string) (Insight, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, session_id, research_id, content, confidence, created_at, updated_at
		FROM insights WHERE id = ?`, id)
	i, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Insight{}, zerr.NoResult
	}
	return i, err
}

// List returns up to limit insights for orgID, most recent first.
func (r *InsightRepo) List(ctx context.Context, orgID string, limit int) ([]Insight, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT id, org_id, session_id, research_id, content, confidence, created_at, updated_at
		FROM insights WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Insight
	for rows.Next() {
		i, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, zerr.Wrap("repo: list insights", rows.Err())
}

// Delete removes an insight by id.
func (r *InsightRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM insights WHERE id = ?`, id); err != nil {
		return zerr.Wrap("repo: delete insight", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "insight", id, enum.ActionUpdated, nil); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpDelete, "insight", id, map[string]any{})
}

func scanInsight(s rowScanner) (Insight, error) {
	var i Insight
	var sessionID, researchID sql.NullString
	var confidence string
	if err := s.Scan(&i.ID, &i.OrgID, &sessionID, &researchID, &i.Content, &confidence, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return Insight{}, zerr.Wrap("repo: scan insight", err)
	}
	i.Confidence = enum.Confidence(confidence)
	if sessionID.Valid {
		i.SessionID = &sessionID.String
	}
	if researchID.Valid {
		i.ResearchID = &researchID.String
	}
	return i, nil
}
