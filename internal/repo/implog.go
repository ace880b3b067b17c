package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// ImplLog ties a task to a source file range (spec.md §3.1).
type ImplLog struct {
	ID        string
	OrgID     string
	SessionID *string
	TaskID    string
	FilePath  string
	LineStart *int
	LineEnd   *int
	Note      *string
	CreatedAt string
	UpdatedAt string
}

// ImplLogRepo is the repository surface for impl logs.
type ImplLogRepo struct{ d deps }

// NewImplLogRepo constructs an ImplLogRepo.
func NewImplLogRepo(deps Deps) *ImplLogRepo { return &ImplLogRepo{d: deps.asInternal()} }

// Create inserts a new impl log entry.
func (r *ImplLogRepo) Create(ctx context.Context, orgID string, sessionID *string, taskID, filePath string, lineStart, lineEnd *int, note *string) (ImplLog, error) {
	l := ImplLog{ID: ids.Generate(ids.ImplLog), OrgID: orgID, SessionID: sessionID, TaskID: taskID, FilePath: filePath, LineStart: lineStart, LineEnd: lineEnd, Note: note}
	ts := now()
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO impl_logs (id, org_id, session_id, task_id, file_path, line_start, line_end, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OrgID, l.SessionID, l.TaskID, l.FilePath, l.LineStart, l.LineEnd, l.Note, ts, ts)
	if err != nil {
		return ImplLog{}, zerr.Wrap("repo: create impl log", err)
	}
	payload := map[string]any{"org_id": orgID, "task_id": taskID, "file_path": filePath}
	if _, err := r.d.audit.Append(ctx, orgID, sessionID, "impl_log", l.ID, enum.ActionCreated, payload); err != nil {
		return ImplLog{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "impl_log", l.ID, payload); err != nil {
		return ImplLog{}, err
	}
	return l, nil
}

// Get fetches an impl log entry by id.
func (r *ImplLogRepo) Get(ctx context.Context, id string) (ImplLog, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, session_id, task_id, file_path, line_start, line_end, note, created_at, updated_at
		FROM impl_logs WHERE id = ?`, id)
	l, err := scanImplLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ImplLog{}, zerr.NoResult
	}
	return l, err
}

// ListForTask returns every impl log entry attached to taskID.
func (r *ImplLogRepo) ListForTask(ctx context.Context, taskID string) ([]ImplLog, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT id, org_id, session_id, task_id, file_path, line_start, line_end, note, created_at, updated_at
		FROM impl_logs WHERE task_id = ? ORDER BY created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImplLog
	for rows.Next() {
		l, err := scanImplLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, zerr.Wrap("repo: list impl logs", rows.Err())
}

// Delete removes an impl log entry by id.
func (r *ImplLogRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM impl_logs WHERE id = ?`, id); err != nil {
		return zerr.Wrap("repo: delete impl log", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "impl_log", id, enum.ActionUpdated, nil); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpDelete, "impl_log", id, map[string]any{})
}

func scanImplLog(s rowScanner) (ImplLog, error) {
	var l ImplLog
	var sessionID, note sql.NullString
	var lineStart, lineEnd sql.NullInt64
	if err := s.Scan(&l.ID, &l.OrgID, &sessionID, &l.TaskID, &l.FilePath, &lineStart, &lineEnd, &note, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return ImplLog{}, zerr.Wrap("repo: scan impl log", err)
	}
	if sessionID.Valid {
		l.SessionID = &sessionID.String
	}
	if lineStart.Valid {
		v := int(lineStart.Int64)
		l.LineStart = &v
	}
	if lineEnd.Valid {
		v := int(lineEnd.Int64)
		l.LineEnd = &v
	}
	if note.Valid {
		l.Note = &note.String
	}
	return l, nil
}
