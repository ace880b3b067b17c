// Package cloudsearch implements the scoped cross-repository vector search
// that runs against the remote replica's catalog rather than the local
// embedded store (spec.md §4.11). A search names an (ecosystem, package) and
// optionally a version; the planner resolves which previously published
// columnar objects are visible to the caller, fetches each one, scores its
// rows against the query embedding, and merges the per-object hits into one
// globally ranked list.
package cloudsearch

import (
	"context"
	"database/sql"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/zenith-dev/zenith/internal/doclake"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// maxConcurrentFetches bounds how many catalog objects are fetched and
// scored at once rather than letting fan-out track the candidate count.
const maxConcurrentFetches = 4

// Identity is the caller's authorization context. A nil Identity means an
// anonymous caller: only public objects are visible.
type Identity struct {
	UserID string
	OrgID  string
}

// CatalogObject is one row of the remote catalog's published-objects table:
// a pointer to a Parquet object (symbols or chunks) for one package version,
// plus the visibility it was published under.
type CatalogObject struct {
	Path       string // e.g. "s3://bucket/team/npm/left-pad/1.3.0/symbols-<uuid>.parquet"
	Kind       string // "symbols" or "chunks"
	Version    string
	Visibility string // "public", "team", or "private"
	OrgID      string
	OwnerSub   string
	CreatedAt  string
}

func (o CatalogObject) visibleTo(identity *Identity) bool {
	switch o.Visibility {
	case "public":
		return true
	case "team":
		return identity != nil && identity.OrgID != "" && identity.OrgID == o.OrgID
	case "private":
		return identity != nil && identity.UserID != "" && identity.UserID == o.OwnerSub
	default:
		return false
	}
}

// ObjectFetcher retrieves a catalog object to a local path readable by
// internal/doclake's Parquet readers, and a cleanup func to remove any
// temporary copy it made. Local-only deployments can return the path
// unchanged with a no-op cleanup; an R2-backed remote downloads to a temp
// file first.
type ObjectFetcher interface {
	Fetch(ctx context.Context, path string) (localPath string, cleanup func(), err error)
}

// Hit is one globally ranked cross-repository search result.
type Hit struct {
	ID         string
	Version    string
	Name       string
	Kind       string
	Signature  string
	DocComment *string
	FilePath   *string
	Distance   float64
}

// Planner runs scoped vector searches against a remote catalog database.
type Planner struct {
	catalog *sql.DB
	fetch   ObjectFetcher
}

// Open builds a Planner over an already-connected remote catalog handle
// (opened the same way internal/cloudsync opens its replica: dolthub/driver
// or go-sql-driver/mysql against the replica's MySQL-wire endpoint) and an
// ObjectFetcher able to retrieve the objects that catalog names.
func Open(catalog *sql.DB, fetch ObjectFetcher) *Planner {
	return &Planner{catalog: catalog, fetch: fetch}
}

// SearchCloudVectorScoped implements search_cloud_vector_scoped: it lists
// every catalog object for (ecosystem, package[, version]) visible to
// identity, fetches and scores each one against queryEmbedding, and returns
// the k globally nearest hits ascending by cosine distance. A package with no
// visible objects returns an empty, non-error result. An object that cannot
// be fetched or parsed fails the whole call with an error naming its path.
func (p *Planner) SearchCloudVectorScoped(ctx context.Context, ecosystem, pkg string, version *string, queryEmbedding []float32, k int, identity *Identity) ([]Hit, error) {
	objects, err := p.candidateObjects(ctx, ecosystem, pkg, version)
	if err != nil {
		return nil, err
	}

	var visible []CatalogObject
	for _, obj := range objects {
		if obj.visibleTo(identity) {
			visible = append(visible, obj)
		}
	}

	perObject := make([][]Hit, len(visible))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentFetches)
	for i, obj := range visible {
		i, obj := i, obj
		group.Go(func() error {
			hits, err := p.scoreObject(groupCtx, obj, queryEmbedding)
			if err != nil {
				return zerr.Wrapf(err, "cloudsearch: score object %s", obj.Path)
			}
			perObject[i] = hits
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var all []Hit
	for _, hits := range perObject {
		all = append(all, hits...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].ID < all[j].ID
	})
	if k < len(all) {
		all = all[:k]
	}
	return all, nil
}

// candidateObjects selects catalog rows for a package, newest first,
// optionally pinned to one version.
func (p *Planner) candidateObjects(ctx context.Context, ecosystem, pkg string, version *string) ([]CatalogObject, error) {
	query := `
		SELECT path, kind, version, visibility, org_id, owner_sub, created_at
		FROM published_objects
		WHERE ecosystem = ? AND package = ?`
	args := []any{ecosystem, pkg}
	if version != nil {
		query += " AND version = ?"
		args = append(args, *version)
	}
	query += " ORDER BY created_at DESC"

	rows, err := p.catalog.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, zerr.Wrap("cloudsearch: list candidate objects", err)
	}
	defer rows.Close()

	var out []CatalogObject
	for rows.Next() {
		var o CatalogObject
		if err := rows.Scan(&o.Path, &o.Kind, &o.Version, &o.Visibility, &o.OrgID, &o.OwnerSub, &o.CreatedAt); err != nil {
			return nil, zerr.Wrap("cloudsearch: scan candidate object", err)
		}
		out = append(out, o)
	}
	return out, zerr.Wrap("cloudsearch: read candidate objects", rows.Err())
}

// scoreObject fetches one catalog object and scores every row it contains
// against queryEmbedding.
func (p *Planner) scoreObject(ctx context.Context, obj CatalogObject, queryEmbedding []float32) ([]Hit, error) {
	localPath, cleanup, err := p.fetch.Fetch(ctx, obj.Path)
	if err != nil {
		return nil, zerr.Wrap("fetch", err)
	}
	defer cleanup()

	switch obj.Kind {
	case "symbols":
		symbols, err := doclake.ReadSymbolsFile(localPath)
		if err != nil {
			return nil, err
		}
		hits := make([]Hit, len(symbols))
		for i, sym := range symbols {
			hits[i] = Hit{
				ID: sym.ID, Version: obj.Version, Name: sym.Name, Kind: sym.Kind,
				Signature: sym.Signature, DocComment: sym.DocComment, FilePath: &sym.FilePath,
				Distance: doclake.CosineDistance(sym.Embedding, queryEmbedding),
			}
		}
		return hits, nil
	case "chunks":
		chunks, err := doclake.ReadChunksFile(localPath)
		if err != nil {
			return nil, err
		}
		hits := make([]Hit, len(chunks))
		for i, c := range chunks {
			name := c.SourceFile
			if c.Title != nil {
				name = *c.Title
			}
			hits[i] = Hit{
				ID: c.ID, Version: obj.Version, Name: name, Kind: "doc_chunk",
				FilePath: &c.SourceFile, Distance: doclake.CosineDistance(c.Embedding, queryEmbedding),
			}
		}
		return hits, nil
	default:
		return nil, zerr.Wrapf(zerr.InvalidState, "cloudsearch: unknown object kind %q", obj.Kind)
	}
}
