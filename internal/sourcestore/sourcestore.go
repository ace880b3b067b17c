// Package sourcestore implements the separate columnar store for raw
// package source text (spec.md §4.9, C10). It lives in its own database
// file and directory, independent of the doc-lake cache (internal/doclake),
// so deleting source files never touches indexed symbols or chunks.
package sourcestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	_ "modernc.org/sqlite"

	"github.com/zenith-dev/zenith/internal/zerr"
)

const sourcesFile = "sources.parquet"

// fileRow is the Parquet row schema for one package's source files.
type fileRow struct {
	FilePath string `parquet:"name=file_path, type=BYTE_ARRAY, convertedtype=UTF8"`
	Content  string `parquet:"name=content, type=BYTE_ARRAY, convertedtype=UTF8"`
	SizeByte int64  `parquet:"name=size_bytes, type=INT64"`
}

// SourceFile is the application-level view of one row.
type SourceFile struct {
	FilePath string
	Content  string
}

// Store is the source-file columnar cache.
type Store struct {
	catalog *sql.DB
	dataDir string
}

// Open opens (creating if needed) the catalog database at catalogPath and
// ensures dataDir exists for Parquet output.
func Open(ctx context.Context, catalogPath, dataDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(catalogPath), 0o750); err != nil {
		return nil, zerr.Wrap("sourcestore: create catalog dir", err)
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, zerr.Wrap("sourcestore: create data dir", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", catalogPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, zerr.Wrap("sourcestore: open catalog", err)
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
CREATE TABLE IF NOT EXISTS indexed_sources (
	ecosystem    TEXT NOT NULL,
	package      TEXT NOT NULL,
	version      TEXT NOT NULL,
	file_count   INTEGER NOT NULL DEFAULT 0,
	sources_path TEXT,
	indexed_at   TEXT NOT NULL,
	PRIMARY KEY (ecosystem, package, version)
);`
	_, err := s.catalog.ExecContext(ctx, ddl)
	return zerr.Wrap("sourcestore: migrate", err)
}

// Close closes the catalog database.
func (s *Store) Close() error { return s.catalog.Close() }

func (s *Store) packagePath(ecosystem, pkg, version string) string {
	return filepath.Join(s.dataDir, ecosystem, pkg, version)
}

// BulkInsertFiles writes a package version's raw source files in a single
// append-style Parquet write, replacing any prior rows for that package
// version.
func (s *Store) BulkInsertFiles(ctx context.Context, ecosystem, pkg, version string, files []SourceFile) error {
	dir := s.packagePath(ecosystem, pkg, version)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap("sourcestore: create package dir", err)
	}
	path := filepath.Join(dir, sourcesFile)

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return zerr.Wrap("sourcestore: open sources parquet writer", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(fileRow), 4)
	if err != nil {
		_ = fw.Close()
		return zerr.Wrap("sourcestore: create sources parquet writer", err)
	}
	pw.RowGroupSize = 64 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, f := range files {
		row := fileRow{FilePath: f.FilePath, Content: f.Content, SizeByte: int64(len(f.Content))}
		if err := pw.Write(row); err != nil {
			_ = fw.Close()
			return zerr.Wrap("sourcestore: write source row", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return zerr.Wrap("sourcestore: flush sources parquet", err)
	}
	if err := fw.Close(); err != nil {
		return zerr.Wrap("sourcestore: close sources parquet", err)
	}

	_, err = s.catalog.ExecContext(ctx, `
		INSERT INTO indexed_sources (ecosystem, package, version, file_count, sources_path, indexed_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (ecosystem, package, version) DO UPDATE SET
			file_count = excluded.file_count, sources_path = excluded.sources_path, indexed_at = excluded.indexed_at`,
		ecosystem, pkg, version, len(files), path)
	return zerr.Wrap("sourcestore: upsert catalog", err)
}

// ListFiles reads every source file for a package version.
func (s *Store) ListFiles(ctx context.Context, ecosystem, pkg, version string) ([]SourceFile, error) {
	path := filepath.Join(s.packagePath(ecosystem, pkg, version), sourcesFile)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, zerr.Wrap("sourcestore: open sources parquet reader", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(fileRow), 4)
	if err != nil {
		return nil, zerr.Wrap("sourcestore: create sources parquet reader", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]fileRow, n)
	if err := pr.Read(&rows); err != nil {
		return nil, zerr.Wrap("sourcestore: read source rows", err)
	}

	out := make([]SourceFile, n)
	for i, row := range rows {
		out[i] = SourceFile{FilePath: row.FilePath, Content: row.Content}
	}
	return out, nil
}

// GetFile returns a single source file by path, or zerr.NoResult if absent.
func (s *Store) GetFile(ctx context.Context, ecosystem, pkg, version, filePath string) (SourceFile, error) {
	files, err := s.ListFiles(ctx, ecosystem, pkg, version)
	if err != nil {
		return SourceFile{}, err
	}
	for _, f := range files {
		if f.FilePath == filePath {
			return f, nil
		}
	}
	return SourceFile{}, zerr.NoResult
}

// DeletePackage removes a package version's source files independently of
// its doc-lake entries.
func (s *Store) DeletePackage(ctx context.Context, ecosystem, pkg, version string) error {
	if err := os.RemoveAll(s.packagePath(ecosystem, pkg, version)); err != nil {
		return zerr.Wrap("sourcestore: delete package files", err)
	}
	_, err := s.catalog.ExecContext(ctx, `
		DELETE FROM indexed_sources WHERE ecosystem = ? AND package = ? AND version = ?`, ecosystem, pkg, version)
	return zerr.Wrap("sourcestore: delete package catalog row", err)
}
