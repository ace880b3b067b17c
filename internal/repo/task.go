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

// Task is a unit of execution (spec.md §3.1).
type Task struct {
	ID          string
	OrgID       string
	SessionID   *string
	IssueID     *string
	ResearchID  *string
	Title       string
	Description *string
	Status      enum.TaskStatus
	CreatedAt   string
	UpdatedAt   string
}

// TaskRepo is the repository surface for tasks.
type TaskRepo struct{ d deps }

// NewTaskRepo constructs a TaskRepo.
func NewTaskRepo(deps Deps) *TaskRepo { return &TaskRepo{d: deps.asInternal()} }

// Create inserts a new task in status "open".
func (r *TaskRepo) Create(ctx context.Context, orgID string, sessionID, issueID, researchID *string, title string, description *string) (Task, error) {
	t := Task{ID: ids.Generate(ids.Task), OrgID: orgID, SessionID: sessionID, IssueID: issueID, ResearchID: researchID, Title: title, Description: description, Status: enum.TaskOpen}
	ts := now()
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO tasks (id, org_id, session_id, issue_id, research_id, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrgID, t.SessionID, t.IssueID, t.ResearchID, t.Title, t.Description, string(t.Status), ts, ts)
	if err != nil {
		return Task{}, zerr.Wrap("repo: create task", err)
	}
	payload := map[string]any{"org_id": orgID, "title": title, "status": string(t.Status)}
	if _, err := r.d.audit.Append(ctx, orgID, sessionID, "task", t.ID, enum.ActionCreated, payload); err != nil {
		return Task{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "task", t.ID, payload); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Get fetches a task by id.
func (r *TaskRepo) Get(ctx context.Context, id string) (Task, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, session_id, issue_id, research_id, title, description, status, created_at, updated_at
		FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, zerr.NoResult
	}
	return t, err
}

// List returns up to limit tasks for orgID, most recent first.
func (r *TaskRepo) List(ctx context.Context, orgID string, limit int) ([]Task, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT id, org_id, session_id, issue_id, research_id, title, description, status, created_at, updated_at
		FROM tasks WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, zerr.Wrap("repo: list tasks", rows.Err())
}

// TaskUpdate is the partial-update struct for tasks.
type TaskUpdate struct {
	Title       Opt[string]
	Description Opt[string]
}

// Update applies a partial update to a task.
func (r *TaskRepo) Update(ctx context.Context, orgID, id string, u TaskUpdate) (Task, error) {
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
	if _, err := r.d.st.Execute(ctx, "UPDATE tasks SET "+joinComma(sets)+" WHERE id = ?", args...); err != nil {
		return Task{}, zerr.Wrap("repo: update task", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "task", id, enum.ActionUpdated, payload); err != nil {
		return Task{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpUpdate, "task", id, payload); err != nil {
		return Task{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes a task by id.
func (r *TaskRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return zerr.Wrap("repo: delete task", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "task", id, enum.ActionUpdated, nil); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpDelete, "task", id, map[string]any{})
}

// Transition moves a task to a new status.
func (r *TaskRepo) Transition(ctx context.Context, orgID, id string, next enum.TaskStatus) (Task, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if !t.Status.CanTransitionTo(next) {
		return Task{}, zerr.Wrapf(zerr.InvalidState, "repo: task %s cannot transition %s -> %s", id, t.Status, next)
	}
	ts := now()
	if _, err := r.d.st.Execute(ctx, `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`, string(next), ts, id); err != nil {
		return Task{}, zerr.Wrap("repo: transition task", err)
	}
	data := trail.TransitionData{From: string(t.Status), To: string(next)}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "task", id, enum.ActionStatusChanged, data); err != nil {
		return Task{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpTransition, "task", id, data); err != nil {
		return Task{}, err
	}
	return r.Get(ctx, id)
}

func scanTask(s rowScanner) (Task, error) {
	var t Task
	var sessionID, issueID, researchID, description sql.NullString
	var status string
	if err := s.Scan(&t.ID, &t.OrgID, &sessionID, &issueID, &researchID, &t.Title, &description, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Task{}, zerr.Wrap("repo: scan task", err)
	}
	t.Status = enum.TaskStatus(status)
	if sessionID.Valid {
		t.SessionID = &sessionID.String
	}
	if issueID.Valid {
		t.IssueID = &issueID.String
	}
	if researchID.Valid {
		t.ResearchID = &researchID.String
	}
	if description.Valid {
		t.Description = &description.String
	}
	return t, nil
}
