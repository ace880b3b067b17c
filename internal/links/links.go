// Package links implements the entity link graph (spec.md §4.6): typed
// directed edges between any two entities, with a unique
// (source_type, source_id, target_type, target_id, relation) constraint.
// Grounded on the teacher's dependency-edge table naming in
// internal/storage/sqlite, generalized from bd's issue-dependency graph to
// an arbitrary entity-kind graph.
package links

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/zenith-dev/zenith/internal/audit"
	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/ids"
	"github.com/zenith-dev/zenith/internal/store"
	"github.com/zenith-dev/zenith/internal/trail"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// Link is one directed, typed edge between two entities.
type Link struct {
	ID         string
	OrgID      string
	SourceType string
	SourceID   string
	TargetType string
	TargetID   string
	Relation   enum.Relation
	CreatedAt  time.Time
}

// Graph is the link-graph repository.
type Graph struct {
	st    *store.Store
	audit *audit.Sink
	tr    *trail.Writer
}

// New returns a Graph writing audit rows to sink and trail entries to tr.
func New(st *store.Store, sink *audit.Sink, tr *trail.Writer) *Graph {
	return &Graph{st: st, audit: sink, tr: tr}
}

// CreateLink inserts a link and emits a "linked" audit entry plus a "link"
// trail entry. Duplicate 5-tuples are rejected with zerr.Conflict.
func (g *Graph) CreateLink(ctx context.Context, orgID, sourceType, sourceID, targetType, targetID string, relation enum.Relation) (Link, error) {
	l := Link{
		ID:         ids.Generate(ids.Link),
		OrgID:      orgID,
		SourceType: sourceType,
		SourceID:   sourceID,
		TargetType: targetType,
		TargetID:   targetID,
		Relation:   relation,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := g.st.Execute(ctx, `
		INSERT INTO entity_links (id, org_id, source_type, source_id, target_type, target_id, relation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OrgID, l.SourceType, l.SourceID, l.TargetType, l.TargetID, string(l.Relation), l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Link{}, zerr.Wrapf(zerr.Conflict, "links: duplicate (%s,%s,%s,%s,%s)", sourceType, sourceID, targetType, targetID, relation)
		}
		return Link{}, zerr.Wrap("links: create", err)
	}

	data := trail.LinkData{SourceType: sourceType, SourceID: sourceID, TargetType: targetType, TargetID: targetID, Relation: string(relation), OrgID: orgID}
	if _, err := g.audit.Append(ctx, orgID, nil, "entity_link", l.ID, enum.ActionLinked, data); err != nil {
		return Link{}, err
	}
	if g.tr != nil {
		if err := g.tr.Append(ctx, enum.OpLink, "entity_link", l.ID, data); err != nil {
			return Link{}, err
		}
	}
	return l, nil
}

// GetLink fetches a link by id.
func (g *Graph) GetLink(ctx context.Context, id string) (Link, error) {
	row := g.st.QueryRow(ctx, `
		SELECT id, org_id, source_type, source_id, target_type, target_id, relation, created_at
		FROM entity_links WHERE id = ?`, id)
	return scanLink(row)
}

// GetLinksFrom returns every link whose source is (sourceType, sourceID).
func (g *Graph) GetLinksFrom(ctx context.Context, sourceType, sourceID string) ([]Link, error) {
	rows, err := g.st.Query(ctx, `
		SELECT id, org_id, source_type, source_id, target_type, target_id, relation, created_at
		FROM entity_links WHERE source_type = ? AND source_id = ?`, sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

// GetLinksTo returns every link whose target is (targetType, targetID).
func (g *Graph) GetLinksTo(ctx context.Context, targetType, targetID string) ([]Link, error) {
	rows, err := g.st.Query(ctx, `
		SELECT id, org_id, source_type, source_id, target_type, target_id, relation, created_at
		FROM entity_links WHERE target_type = ? AND target_id = ?`, targetType, targetID)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

// GetLinkedIDs returns the deduplicated set of target ids reachable from
// (sourceType, sourceID) when the target kind is targetType, regardless of
// relation.
func (g *Graph) GetLinkedIDs(ctx context.Context, sourceType, sourceID, targetType string) ([]string, error) {
	rows, err := g.st.Query(ctx, `
		SELECT DISTINCT target_id FROM entity_links
		WHERE source_type = ? AND source_id = ? AND target_type = ?`, sourceType, sourceID, targetType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, zerr.Wrap("links: scan id", err)
		}
		out = append(out, id)
	}
	return out, zerr.Wrap("links: rows", rows.Err())
}

// DeleteLink removes a link by id and emits "unlinked"/"unlink".
func (g *Graph) DeleteLink(ctx context.Context, orgID, id string) error {
	l, err := g.GetLink(ctx, id)
	if err != nil {
		return err
	}
	if _, err := g.st.Execute(ctx, `DELETE FROM entity_links WHERE id = ?`, id); err != nil {
		return zerr.Wrap("links: delete", err)
	}

	data := trail.LinkData{SourceType: l.SourceType, SourceID: l.SourceID, TargetType: l.TargetType, TargetID: l.TargetID, Relation: string(l.Relation), OrgID: l.OrgID}
	if _, err := g.audit.Append(ctx, orgID, nil, "entity_link", id, enum.ActionUnlinked, data); err != nil {
		return err
	}
	if g.tr != nil {
		return g.tr.Append(ctx, enum.OpUnlink, "entity_link", id, data)
	}
	return nil
}

func scanLink(row *sql.Row) (Link, error) {
	var l Link
	var relation string
	err := row.Scan(&l.ID, &l.OrgID, &l.SourceType, &l.SourceID, &l.TargetType, &l.TargetID, &relation, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Link{}, zerr.NoResult
	}
	if err != nil {
		return Link{}, zerr.Wrap("links: scan", err)
	}
	l.Relation = enum.Relation(relation)
	return l, nil
}

func scanLinks(rows *sql.Rows) ([]Link, error) {
	defer rows.Close()
	var out []Link
	for rows.Next() {
		var l Link
		var relation string
		if err := rows.Scan(&l.ID, &l.OrgID, &l.SourceType, &l.SourceID, &l.TargetType, &l.TargetID, &relation, &l.CreatedAt); err != nil {
			return nil, zerr.Wrap("links: scan", err)
		}
		l.Relation = enum.Relation(relation)
		out = append(out, l)
	}
	return out, zerr.Wrap("links: rows", rows.Err())
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
