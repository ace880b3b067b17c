package doclake

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/zenith-dev/zenith/internal/zerr"
)

const symbolsFile = "symbols.parquet"

// BulkInsertSymbols writes many symbols for one package version in a single
// append-style Parquet write, replacing any prior symbols for that package
// version. Every embedding must be exactly EmbeddingDim long; the whole
// batch is rejected (nothing written) if any record fails validation.
func (s *Store) BulkInsertSymbols(ctx context.Context, ecosystem, pkg, version string, symbols []SymbolRecord) error {
	for _, rec := range symbols {
		if err := validateEmbedding(rec.Embedding); err != nil {
			return err
		}
	}

	dir := s.packagePath(ecosystem, pkg, version)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap("doclake: create package dir", err)
	}
	path := filepath.Join(dir, symbolsFile)

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return zerr.Wrap("doclake: open symbols parquet writer", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(symbolRow), 4)
	if err != nil {
		_ = fw.Close()
		return zerr.Wrap("doclake: create symbols parquet writer", err)
	}
	pw.RowGroupSize = 64 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range symbols {
		row := rec.toRow()
		if err := pw.Write(row); err != nil {
			_ = fw.Close()
			return zerr.Wrap("doclake: write symbol row", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return zerr.Wrap("doclake: flush symbols parquet", err)
	}
	if err := fw.Close(); err != nil {
		return zerr.Wrap("doclake: close symbols parquet", err)
	}

	info, _ := s.GetPackageInfo(ctx, ecosystem, pkg, version)
	return s.upsertCatalog(ctx, ecosystem, pkg, version, len(symbols), info.ChunkCount, path, info.ChunksPath)
}

// ListSymbols reads every symbol row for a package version.
func (s *Store) ListSymbols(ctx context.Context, ecosystem, pkg, version string) ([]SymbolRecord, error) {
	path := filepath.Join(s.packagePath(ecosystem, pkg, version), symbolsFile)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return ReadSymbolsFile(path)
}

// ReadSymbolsFile reads every symbol row out of a standalone symbols.parquet
// file at path. It is exported so other components (internal/cloudsearch)
// can read a symbols object fetched from a remote catalog without going
// through a Store's own catalog bookkeeping.
func ReadSymbolsFile(path string) ([]SymbolRecord, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, zerr.Wrap("doclake: open symbols parquet reader", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(symbolRow), 4)
	if err != nil {
		return nil, zerr.Wrap("doclake: create symbols parquet reader", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]symbolRow, n)
	if err := pr.Read(&rows); err != nil {
		return nil, zerr.Wrap("doclake: read symbol rows", err)
	}

	out := make([]SymbolRecord, n)
	for i, row := range rows {
		out[i] = fromSymbolRow(row)
	}
	return out, nil
}

// VectorSearchSymbols returns the k symbols nearest to queryEmbedding by
// cosine distance, ascending.
func (s *Store) VectorSearchSymbols(ctx context.Context, ecosystem, pkg, version string, queryEmbedding []float32, k int) ([]SymbolHit, error) {
	if err := validateEmbedding(queryEmbedding); err != nil {
		return nil, err
	}
	symbols, err := s.ListSymbols(ctx, ecosystem, pkg, version)
	if err != nil {
		return nil, err
	}
	hits := make([]SymbolHit, len(symbols))
	for i, sym := range symbols {
		hits[i] = SymbolHit{Symbol: sym, Distance: CosineDistance(sym.Embedding, queryEmbedding)}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
