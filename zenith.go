// Package zenith is the public facade over the research knowledge store:
// it wires the embedded SQL store, trail log, schema registry, entity
// repositories, link graph, audit sink, cloud sync, doc lake, source store,
// chunker, cloud search, recursive query engine, and graph analytics into
// one constructor, the way a programmatic extension would use the system
// without reaching into internal/ directly.
package zenith

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/zenith-dev/zenith/internal/audit"
	"github.com/zenith-dev/zenith/internal/cloudsearch"
	"github.com/zenith-dev/zenith/internal/cloudsync"
	"github.com/zenith-dev/zenith/internal/doclake"
	"github.com/zenith-dev/zenith/internal/links"
	"github.com/zenith-dev/zenith/internal/repo"
	"github.com/zenith-dev/zenith/internal/schema"
	"github.com/zenith-dev/zenith/internal/sourcestore"
	"github.com/zenith-dev/zenith/internal/store"
	"github.com/zenith-dev/zenith/internal/trail"
	"github.com/zenith-dev/zenith/internal/zerr"
)

// Repos bundles every entity repository, constructed once per Store and
// shared for the lifetime of a session.
type Repos struct {
	Sessions    *repo.SessionRepo
	Research    *repo.ResearchRepo
	Findings    *repo.FindingRepo
	Hypotheses  *repo.HypothesisRepo
	Studies     *repo.StudyRepo
	Insights    *repo.InsightRepo
	Decisions   *repo.DecisionRepo
	Tasks       *repo.TaskRepo
	Issues      *repo.IssueRepo
	ImplLogs    *repo.ImplLogRepo
	Compat      *repo.CompatRepo
	Links       *links.Graph
}

// Store is one open session against the knowledge store: the local embedded
// database, its trail log, every entity repository, and the optional
// cloud-facing components (sync, doc lake, source store, cloud search) that
// only come alive when their config is supplied.
type Store struct {
	db    *store.Store
	audit *audit.Sink
	trail *trail.Writer
	schema *schema.Registry

	Repos *Repos

	Sync        *cloudsync.Client
	DocLake     *doclake.Store
	SourceStore *sourcestore.Store
	CloudSearch *cloudsearch.Planner
}

// Config names every on-disk location and optional cloud endpoint a Store
// needs. Only DBPath and TrailDir are required; the rest enable their
// corresponding component when non-empty.
type Config struct {
	DBPath      string
	TrailDir    string
	SessionID   string
	DocLakeDB   string
	DocLakeData string
	SourceDB    string
	SourceData  string

	Cloud        *cloudsync.Config
	CloudCatalog *sql.DB
	CloudObjects cloudsearch.ObjectFetcher
}

// Open builds every component named by cfg. A fresh trail log is opened
// under cfg.TrailDir for cfg.SessionID; replay onto an empty database is the
// caller's responsibility (see internal/trail.Rebuild) before Open if the
// database file does not already reflect prior sessions.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o750); err != nil {
		return nil, zerr.Wrap("zenith: create db dir", err)
	}
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	tr, err := trail.Open(cfg.TrailDir, cfg.SessionID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	reg, err := schema.NewRegistry()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	sink := audit.New(db)
	deps := repo.Deps{Store: db, Audit: sink, Trail: tr}

	linkGraph := links.New(db, sink, tr)
	hypotheses := repo.NewHypothesisRepo(deps)
	findings := repo.NewFindingRepo(deps)
	insights := repo.NewInsightRepo(deps)

	s := &Store{
		db: db, audit: sink, trail: tr, schema: reg,
		Repos: &Repos{
			Sessions:   repo.NewSessionRepo(deps),
			Research:   repo.NewResearchRepo(deps),
			Findings:   findings,
			Hypotheses: hypotheses,
			Studies:    repo.NewStudyRepo(deps, linkGraph, hypotheses, findings, insights),
			Insights:   insights,
			Decisions:  repo.NewDecisionRepo(deps),
			Tasks:      repo.NewTaskRepo(deps),
			Issues:     repo.NewIssueRepo(deps),
			ImplLogs:   repo.NewImplLogRepo(deps),
			Compat:     repo.NewCompatRepo(deps),
			Links:      linkGraph,
		},
	}

	if cfg.Cloud != nil {
		remote, err := sql.Open("mysql", cfg.Cloud.URL)
		if err != nil {
			_ = s.Close()
			return nil, zerr.Wrap("zenith: open cloud replica", err)
		}
		s.Sync = cloudsync.Open(remote, *cfg.Cloud)
	}

	if cfg.DocLakeDB != "" {
		lake, err := doclake.Open(ctx, cfg.DocLakeDB, cfg.DocLakeData)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.DocLake = lake
	}

	if cfg.SourceDB != "" {
		src, err := sourcestore.Open(ctx, cfg.SourceDB, cfg.SourceData)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.SourceStore = src
	}

	if cfg.CloudCatalog != nil && cfg.CloudObjects != nil {
		s.CloudSearch = cloudsearch.Open(cfg.CloudCatalog, cfg.CloudObjects)
	}

	return s, nil
}

// DefaultDataDir returns the conventional layout under root: db/zenith.db
// for the relational store, trail/ for the append-only log, and
// doclake/sourcestore subdirectories for their respective catalogs and
// Parquet output.
func DefaultDataDir(root string) Config {
	return Config{
		DBPath:      filepath.Join(root, "db", "zenith.db"),
		TrailDir:    filepath.Join(root, "trail"),
		DocLakeDB:   filepath.Join(root, "doclake", "catalog.db"),
		DocLakeData: filepath.Join(root, "doclake", "data"),
		SourceDB:    filepath.Join(root, "sourcestore", "catalog.db"),
		SourceData:  filepath.Join(root, "sourcestore", "data"),
	}
}

// Close releases every open handle. It is safe to call on a partially
// constructed Store (e.g. after Open fails partway through).
func (s *Store) Close() error {
	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if s.DocLake != nil {
		record(s.DocLake.Close())
	}
	if s.SourceStore != nil {
		record(s.SourceStore.Close())
	}
	if s.trail != nil {
		record(s.trail.Close())
	}
	if s.db != nil {
		record(s.db.Close())
	}
	return first
}

// Schema exposes the entity-payload validation registry used during strict
// trail replay.
func (s *Store) Schema() *schema.Registry { return s.schema }
