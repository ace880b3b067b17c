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

// Issue is trackable work (spec.md §3.1).
type Issue struct {
	ID          string
	OrgID       string
	SessionID   *string
	ParentID    *string
	Title       string
	Description *string
	Type        enum.IssueType
	Status      enum.IssueStatus
	Priority    int
	CreatedAt   string
	UpdatedAt   string
}

// IssueRepo is the repository surface for issues.
type IssueRepo struct{ d deps }

// NewIssueRepo constructs an IssueRepo.
func NewIssueRepo(deps Deps) *IssueRepo { return &IssueRepo{d: deps.asInternal()} }

// Create inserts a new issue in status "open".
func (r *IssueRepo) Create(ctx context.Context, orgID string, sessionID, parentID *string, title string, description *string, issueType enum.IssueType, priority int) (Issue, error) {
	i := Issue{
		ID: ids.Generate(ids.Issue), OrgID: orgID, SessionID: sessionID, ParentID: parentID,
		Title: title, Description: description, Type: issueType, Status: enum.IssueOpen, Priority: priority,
	}
	ts := now()
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO issues (id, org_id, session_id, parent_id, title, description, type, status, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.OrgID, i.SessionID, i.ParentID, i.Title, i.Description, string(i.Type), string(i.Status), i.Priority, ts, ts)
	if err != nil {
		return Issue{}, zerr.Wrap("repo: create issue", err)
	}
	payload := map[string]any{"org_id": orgID, "title": title, "issue_type": string(issueType), "status": string(i.Status), "priority": priority}
	if _, err := r.d.audit.Append(ctx, orgID, sessionID, "issue", i.ID, enum.ActionCreated, payload); err != nil {
		return Issue{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "issue", i.ID, payload); err != nil {
		return Issue{}, err
	}
	return i, nil
}

// Get fetches an issue by id.
func (r *IssueRepo) Get(ctx context.Context, id string) (Issue, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, session_id, parent_id, title, description, type, status, priority, created_at, updated_at
		FROM issues WHERE id = ?`, id)
	i, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Issue{}, zerr.NoResult
	}
	return i, err
}

// List returns up to limit issues for orgID, most recent first.
func (r *IssueRepo) List(ctx context.Context, orgID string, limit int) ([]Issue, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT id, org_id, session_id, parent_id, title, description, type, status, priority, created_at, updated_at
		FROM issues WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, zerr.Wrap("repo: list issues", rows.Err())
}

// Search runs an FTS MATCH query over issue title/description, ordered by rank.
func (r *IssueRepo) Search(ctx context.Context, orgID, query string, limit int) ([]Issue, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT i.id, i.org_id, i.session_id, i.parent_id, i.title, i.description, i.type, i.status, i.priority, i.created_at, i.updated_at
		FROM issues i JOIN issues_fts x ON x.rowid = i.rowid
		WHERE issues_fts MATCH ? AND i.org_id = ? ORDER BY rank LIMIT ?`, query, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, zerr.Wrap("repo: search issues", rows.Err())
}

// IssueUpdate is the partial-update struct for issues.
type IssueUpdate struct {
	Title       Opt[string]
	Description Opt[string]
	Priority    Opt[int]
}

// Update applies a partial update to an issue.
func (r *IssueRepo) Update(ctx context.Context, orgID, id string, u IssueUpdate) (Issue, error) {
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
	if !u.Priority.IsAbsent() {
		sets = append(sets, "priority = ?")
		args = append(args, u.Priority.Value())
		payload["priority"] = u.Priority.Value()
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	ts := now()
	sets = append(sets, "updated_at = ?")
	args = append(args, ts, id)
	if _, err := r.d.st.Execute(ctx, "UPDATE issues SET "+joinComma(sets)+" WHERE id = ?", args...); err != nil {
		return Issue{}, zerr.Wrap("repo: update issue", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "issue", id, enum.ActionUpdated, payload); err != nil {
		return Issue{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpUpdate, "issue", id, payload); err != nil {
		return Issue{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes an issue by id.
func (r *IssueRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM issues WHERE id = ?`, id); err != nil {
		return zerr.Wrap("repo: delete issue", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "issue", id, enum.ActionUpdated, nil); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpDelete, "issue", id, map[string]any{})
}

// Transition moves an issue to a new status.
func (r *IssueRepo) Transition(ctx context.Context, orgID, id string, next enum.IssueStatus) (Issue, error) {
	i, err := r.Get(ctx, id)
	if err != nil {
		return Issue{}, err
	}
	if !i.Status.CanTransitionTo(next) {
		return Issue{}, zerr.Wrapf(zerr.InvalidState, "repo: issue %s cannot transition %s -> %s", id, i.Status, next)
	}
	ts := now()
	if _, err := r.d.st.Execute(ctx, `UPDATE issues SET status = ?, updated_at = ? WHERE id = ?`, string(next), ts, id); err != nil {
		return Issue{}, zerr.Wrap("repo: transition issue", err)
	}
	data := trail.TransitionData{From: string(i.Status), To: string(next)}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "issue", id, enum.ActionStatusChanged, data); err != nil {
		return Issue{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpTransition, "issue", id, data); err != nil {
		return Issue{}, err
	}
	return r.Get(ctx, id)
}

func scanIssue(s rowScanner) (Issue, error) {
	var i Issue
	var sessionID, parentID, description sql.NullString
	var issueType, status string
	if err := s.Scan(&i.ID, &i.OrgID, &sessionID, &parentID, &i.Title, &description, &issueType, &status, &i.Priority, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return Issue{}, zerr.Wrap("repo: scan issue", err)
	}
	i.Type = enum.IssueType(issueType)
	i.Status = enum.IssueStatus(status)
	if sessionID.Valid {
		i.SessionID = &sessionID.String
	}
	if parentID.Valid {
		i.ParentID = &parentID.String
	}
	if description.Valid {
		i.Description = &description.String
	}
	return i, nil
}
