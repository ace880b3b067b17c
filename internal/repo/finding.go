package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// Finding is an evidence item (spec.md §3.1).
type Finding struct {
	ID         string
	OrgID      string
	SessionID  *string
	ResearchID *string
	Content    string
	Source     *string
	Confidence enum.Confidence
	CreatedAt  string
	UpdatedAt  string
}

// FindingRepo is the repository surface for findings, including tagging.
type FindingRepo struct{ d deps }

// NewFindingRepo constructs a FindingRepo.
func NewFindingRepo(deps Deps) *FindingRepo { return &FindingRepo{d: deps.asInternal()} }

// Create inserts a new finding.
func (r *FindingRepo) Create(ctx context.Context, orgID string, sessionID, researchID *string, content string, source *string, confidence enum.Confidence) (Finding, error) {
	f := Finding{ID: ids.Generate(ids.Finding), OrgID: orgID, SessionID: sessionID, ResearchID: researchID, Content: content, Source: source, Confidence: confidence}
	ts := now()
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO findings (id, org_id, session_id, research_id, content, source, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OrgID, f.SessionID, f.ResearchID, f.Content, f.Source, string(f.Confidence), ts, ts)
	if err != nil {
		return Finding{}, zerr.Wrap("repo: create finding", err)
	}
	payload := map[string]any{"org_id": orgID, "content": content, "confidence": string(confidence)}
	if _, err := r.d.audit.Append(ctx, orgID, sessionID, "finding", f.ID, enum.ActionCreated, payload); err != nil {
		return Finding{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "finding", f.ID, payload); err != nil {
		return Finding{}, err
	}
	return f, nil
}

// Get fetches a finding by id.
func (r *FindingRepo) Get(ctx context.Context, id string) (Finding, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, session_id, research_id, content, source, confidence, created_at, updated_at
		FROM findings WHERE id = ?`, id)
	f, err := scanFinding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Finding{}, zerr.NoResult
	}
	return f, err
}

// List returns up to limit findings for orgID, most recent first.
func (r *FindingRepo) List(ctx context.Context, orgID string, limit int) ([]Finding, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT id, org_id, session_id, research_id, content, source, confidence, created_at, updated_at
		FROM findings WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, zerr.Wrap("repo: list findings", rows.Err())
}

// Search runs an FTS MATCH query over finding content, ordered by rank.
func (r *FindingRepo) Search(ctx context.Context, orgID, query string, limit int) ([]Finding, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT f.id, f.org_id, f.session_id, f.research_id, f.content, f.source, f.confidence, f.created_at, f.updated_at
		FROM findings f JOIN findings_fts x ON x.rowid = f.rowid
		WHERE x.content MATCH ? AND f.org_id = ? ORDER BY rank LIMIT ?`, query, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, zerr.Wrap("repo: search findings", rows.Err())
}

// FindingUpdate is the partial-update struct for findings.
type FindingUpdate struct {
	Content    Opt[string]
	Source     Opt[string]
	Confidence Opt[string]
}

// Update applies a partial update to a finding.
func (r *FindingRepo) Update(ctx context.Context, orgID, id string, u FindingUpdate) (Finding, error) {
	sets, args, payload := []string{}, []any{}, map[string]any{}
	if !u.Content.IsAbsent() {
		sets = append(sets, "content = ?")
		args = append(args, u.Content.Value())
		payload["content"] = u.Content.Value()
	}
	if !u.Source.IsAbsent() {
		sets = append(sets, "source = ?")
		args = append(args, u.Source.Value())
		payload["source"] = u.Source.Value()
	}
	if !u.Confidence.IsAbsent() {
		sets = append(sets, "confidence = ?")
		args = append(args, u.Confidence.Value())
		payload["confidence"] = u.Confidence.Value()
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	ts := now()
	sets = append(sets, "updated_at = ?")
	args = append(args, ts, id)
	if _, err := r.d.st.Execute(ctx, "UPDATE findings SET "+joinComma(sets)+" WHERE id = ?", args...); err != nil {
		return Finding{}, zerr.Wrap("repo: update finding", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "finding", id, enum.ActionUpdated, payload); err != nil {
		return Finding{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpUpdate, "finding", id, payload); err != nil {
		return Finding{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes a finding and cascades its tags.
func (r *FindingRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM finding_tags WHERE finding_id = ?`, id); err != nil {
		return zerr.Wrap("repo: cascade delete finding tags", err)
	}
	if _, err := r.d.st.Execute(ctx, `DELETE FROM findings WHERE id = ?`, id); err != nil {
		return zerr.Wrap("repo: delete finding", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "finding", id, enum.ActionUpdated, nil); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpDelete, "finding", id, map[string]any{})
}

// Tag adds tag to a finding, idempotently (INSERT OR IGNORE).
func (r *FindingRepo) Tag(ctx context.Context, orgID, id, tag string) error {
	if _, err := r.d.st.Execute(ctx, `INSERT OR IGNORE INTO finding_tags (finding_id, tag) VALUES (?, ?)`, id, tag); err != nil {
		return zerr.Wrap("repo: tag finding", err)
	}
	payload := map[string]any{"tag": tag}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "finding", id, enum.ActionTagged, payload); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpTag, "finding", id, payload)
}

// Untag removes the exact (finding_id, tag) pair. An "untagged" audit row
// is always emitted, even when the tag was absent, giving a complete record
// of the untagging attempt.
func (r *FindingRepo) Untag(ctx context.Context, orgID, id, tag string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM finding_tags WHERE finding_id = ? AND tag = ?`, id, tag); err != nil {
		return zerr.Wrap("repo: untag finding", err)
	}
	payload := map[string]any{"tag": tag}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "finding", id, enum.ActionUntagged, payload); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpUntag, "finding", id, payload)
}

// Tags returns every tag currently attached to a finding.
func (r *FindingRepo) Tags(ctx context.Context, id string) ([]string, error) {
	rows, err := r.d.st.Query(ctx, `SELECT tag FROM finding_tags WHERE finding_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, zerr.Wrap("repo: scan tag", err)
		}
		out = append(out, t)
	}
	return out, zerr.Wrap("repo: tags rows", rows.Err())
}

func scanFinding(s rowScanner) (Finding, error) {
	var f Finding
	var sessionID, researchID, source sql.NullString
	var confidence string
	if err := s.Scan(&f.ID, &f.OrgID, &sessionID, &researchID, &f.Content, &source, &confidence, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return Finding{}, zerr.Wrap("repo: scan finding", err)
	}
	f.Confidence = enum.Confidence(confidence)
	if sessionID.Valid {
		f.SessionID = &sessionID.String
	}
	if researchID.Valid {
		f.ResearchID = &researchID.String
	}
	if source.Valid {
		f.Source = &source.String
	}
	return f, nil
}
