// Package doclake implements the local columnar cache for extracted API
// symbols and documentation chunks (spec.md §4.9). Each indexed
// (ecosystem, package, version) gets its own pair of Parquet files on disk;
// a small embedded catalog tracks which packages are indexed and where their
// files live.
package doclake

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zenith-dev/zenith/internal/zerr"
)

// EmbeddingDim is the fixed dimensionality every symbol/chunk embedding must
// have. Inserts with any other length fail before they touch disk.
const EmbeddingDim = 384

// Store is the doc-lake cache: a catalog database plus a directory of
// per-package Parquet files.
type Store struct {
	catalog *sql.DB
	dataDir string
}

// Open opens (creating if needed) the catalog database at catalogPath and
// ensures dataDir exists for Parquet output.
func Open(ctx context.Context, catalogPath, dataDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(catalogPath), 0o750); err != nil {
		return nil, zerr.Wrap("doclake: create catalog dir", err)
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, zerr.Wrap("doclake: create data dir", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", catalogPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, zerr.Wrap("doclake: open catalog", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{catalog: db, dataDir: dataDir}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS indexed_packages (
	ecosystem     TEXT NOT NULL,
	package       TEXT NOT NULL,
	version       TEXT NOT NULL,
	symbol_count  INTEGER NOT NULL DEFAULT 0,
	chunk_count   INTEGER NOT NULL DEFAULT 0,
	symbols_path  TEXT,
	chunks_path   TEXT,
	indexed_at    TEXT NOT NULL,
	PRIMARY KEY (ecosystem, package, version)
);`
	_, err := s.catalog.ExecContext(ctx, ddl)
	return zerr.Wrap("doclake: migrate", err)
}

// Close closes the catalog database.
func (s *Store) Close() error { return s.catalog.Close() }

// packagePath returns the per-(ecosystem,package,version) directory holding
// that package's symbols.parquet and doc_chunks.parquet.
func (s *Store) packagePath(ecosystem, pkg, version string) string {
	return filepath.Join(s.dataDir, ecosystem, pkg, version)
}

func validateEmbedding(e []float32) error {
	if len(e) != EmbeddingDim {
		return zerr.Wrapf(zerr.InvalidState, "doclake: embedding has dimension %d, want %d", len(e), EmbeddingDim)
	}
	return nil
}

// DeletePackage removes all lake rows for a package version: both Parquet
// files and the catalog entry. Source files (C10) are deleted independently.
func (s *Store) DeletePackage(ctx context.Context, ecosystem, pkg, version string) error {
	dir := s.packagePath(ecosystem, pkg, version)
	if err := os.RemoveAll(dir); err != nil {
		return zerr.Wrap("doclake: delete package files", err)
	}
	_, err := s.catalog.ExecContext(ctx, `
		DELETE FROM indexed_packages WHERE ecosystem = ? AND package = ? AND version = ?`,
		ecosystem, pkg, version)
	return zerr.Wrap("doclake: delete package catalog row", err)
}

// PackageInfo is a catalog row from indexed_packages.
type PackageInfo struct {
	Ecosystem    string
	Package      string
	Version      string
	SymbolCount  int
	ChunkCount   int
	SymbolsPath  string
	ChunksPath   string
	IndexedAt    string
}

// GetPackageInfo fetches the catalog row for a package version.
func (s *Store) GetPackageInfo(ctx context.Context, ecosystem, pkg, version string) (PackageInfo, error) {
	var info PackageInfo
	var symbolsPath, chunksPath sql.NullString
	row := s.catalog.QueryRowContext(ctx, `
		SELECT ecosystem, package, version, symbol_count, chunk_count, symbols_path, chunks_path, indexed_at
		FROM indexed_packages WHERE ecosystem = ? AND package = ? AND version = ?`, ecosystem, pkg, version)
	if err := row.Scan(&info.Ecosystem, &info.Package, &info.Version, &info.SymbolCount, &info.ChunkCount,
		&symbolsPath, &chunksPath, &info.IndexedAt); err != nil {
		if err == sql.ErrNoRows {
			return PackageInfo{}, zerr.NoResult
		}
		return PackageInfo{}, zerr.Wrap("doclake: get package info", err)
	}
	info.SymbolsPath = symbolsPath.String
	info.ChunksPath = chunksPath.String
	return info, nil
}

func (s *Store) upsertCatalog(ctx context.Context, ecosystem, pkg, version string, symbolCount, chunkCount int, symbolsPath, chunksPath string) error {
	_, err := s.catalog.ExecContext(ctx, `
		INSERT INTO indexed_packages (ecosystem, package, version, symbol_count, chunk_count, symbols_path, chunks_path, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ecosystem, package, version) DO UPDATE SET
			symbol_count = excluded.symbol_count,
			chunk_count = excluded.chunk_count,
			symbols_path = CASE WHEN excluded.symbols_path != '' THEN excluded.symbols_path ELSE indexed_packages.symbols_path END,
			chunks_path = CASE WHEN excluded.chunks_path != '' THEN excluded.chunks_path ELSE indexed_packages.chunks_path END,
			indexed_at = excluded.indexed_at`,
		ecosystem, pkg, version, symbolCount, chunkCount, symbolsPath, chunksPath, time.Now().UTC().Format(time.RFC3339Nano))
	return zerr.Wrap("doclake: upsert catalog", err)
}
