package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// Compat is a pairwise compatibility claim between two packages (spec.md §3.1).
type Compat struct {
	ID        string
	OrgID     string
	SessionID *string
	PackageA  string
	PackageB  string
	Status    enum.CompatStatus
	Note      *string
	CreatedAt string
	UpdatedAt string
}

// CompatRepo is the repository surface for compatibility claims.
type CompatRepo struct{ d deps }

// NewCompatRepo constructs a CompatRepo.
func NewCompatRepo(deps Deps) *CompatRepo { return &CompatRepo{d: deps.asInternal()} }

// Create inserts a new compatibility claim.
func (r *CompatRepo) Create(ctx context.Context, orgID string, sessionID *string, packageA, packageB string, status enum.CompatStatus, note *string) (Compat, error) {
	c := Compat{ID: ids.Generate(ids.Compat), OrgID: orgID, SessionID: sessionID, PackageA: packageA, PackageB: packageB, Status: status, Note: note}
	ts := now()
	_, err := r.d.st.Execute(ctx, `
		INSERT INTO compats (id, org_id, session_id, package_a, package_b, status, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OrgID, c.SessionID, c.PackageA, c.PackageB, string(c.Status), c.Note, ts, ts)
	if err != nil {
		return Compat{}, zerr.Wrap("repo: create compat", err)
	}
	payload := map[string]any{"org_id": orgID, "package_a": packageA, "package_b": packageB, "status": string(status)}
	if _, err := r.d.audit.Append(ctx, orgID, sessionID, "compat", c.ID, enum.ActionCreated, payload); err != nil {
		return Compat{}, err
	}
	if err := r.d.emitTrail(ctx, enum.OpCreate, "compat", c.ID, payload); err != nil {
		return Compat{}, err
	}
	return c, nil
}

// Get fetches a compatibility claim by id.
func (r *CompatRepo) Get(ctx context.Context, id string) (Compat, error) {
	row := r.d.st.QueryRow(ctx, `
		SELECT id, org_id, session_id, package_a, package_b, status, note, created_at, updated_at
		FROM compats WHERE id = ?`, id)
	c, err := scanCompat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Compat{}, zerr.NoResult
	}
	return c, err
}

// List returns up to limit compatibility claims for orgID, most recent first.
func (r *CompatRepo) List(ctx context.Context, orgID string, limit int) ([]Compat, error) {
	rows, err := r.d.st.Query(ctx, `
		SELECT id, org_id, session_id, package_a, package_b, status, note, created_at, updated_at
		FROM compats WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Compat
	for rows.Next() {
		c, err := scanCompat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, zerr.Wrap("repo: list compats", rows.Err())
}

// Delete removes a compatibility claim by id.
func (r *CompatRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.d.st.Execute(ctx, `DELETE FROM compats WHERE id = ?`, id); err != nil {
		return zerr.Wrap("repo: delete compat", err)
	}
	if _, err := r.d.audit.Append(ctx, orgID, nil, "compat", id, enum.ActionUpdated, nil); err != nil {
		return err
	}
	return r.d.emitTrail(ctx, enum.OpDelete, "compat", id, map[string]any{})
}

func scanCompat(s rowScanner) (Compat, error) {
	var c Compat
	var sessionID, note sql.NullString
	var status string
	if err := s.Scan(&c.ID, &c.OrgID, &sessionID, &c.PackageA, &c.PackageB, &status, &note, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Compat{}, zerr.Wrap("repo: scan compat", err)
	}
	c.Status = enum.CompatStatus(status)
	if sessionID.Valid {
		c.SessionID = &sessionID.String
	}
	if note.Valid {
		c.Note = &note.String
	}
	return c, nil
}
