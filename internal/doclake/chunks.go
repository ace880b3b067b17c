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

const chunksFile = "doc_chunks.parquet"

// BulkInsertChunks writes every doc chunk for a package version in one
// append-style Parquet write, replacing any prior chunks for that package
// version.
func (s *Store) BulkInsertChunks(ctx context.Context, ecosystem, pkg, version string, chunks []ChunkRecord) error {
	for _, rec := range chunks {
		if err := validateEmbedding(rec.Embedding); err != nil {
			return err
		}
	}

	dir := s.packagePath(ecosystem, pkg, version)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap("doclake: create package dir", err)
	}
	path := filepath.Join(dir, chunksFile)

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return zerr.Wrap("doclake: open chunks parquet writer", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(chunkRow), 4)
	if err != nil {
		_ = fw.Close()
		return zerr.Wrap("doclake: create chunks parquet writer", err)
	}
	pw.RowGroupSize = 64 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range chunks {
		if err := pw.Write(rec.toRow()); err != nil {
			_ = fw.Close()
			return zerr.Wrap("doclake: write chunk row", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return zerr.Wrap("doclake: flush chunks parquet", err)
	}
	if err := fw.Close(); err != nil {
		return zerr.Wrap("doclake: close chunks parquet", err)
	}

	info, _ := s.GetPackageInfo(ctx, ecosystem, pkg, version)
	return s.upsertCatalog(ctx, ecosystem, pkg, version, info.SymbolCount, len(chunks), info.SymbolsPath, path)
}

// ListChunks reads every doc chunk for a package version, in storage order
// (which BulkInsertChunks preserves as chunk_index order).
func (s *Store) ListChunks(ctx context.Context, ecosystem, pkg, version string) ([]ChunkRecord, error) {
	path := filepath.Join(s.packagePath(ecosystem, pkg, version), chunksFile)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return ReadChunksFile(path)
}

// ReadChunksFile reads every chunk row out of a standalone doc_chunks.parquet
// file at path, for consumers (internal/cloudsearch) reading an object
// fetched from a remote catalog rather than a local Store.
func ReadChunksFile(path string) ([]ChunkRecord, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, zerr.Wrap("doclake: open chunks parquet reader", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(chunkRow), 4)
	if err != nil {
		return nil, zerr.Wrap("doclake: create chunks parquet reader", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]chunkRow, n)
	if err := pr.Read(&rows); err != nil {
		return nil, zerr.Wrap("doclake: read chunk rows", err)
	}

	out := make([]ChunkRecord, n)
	for i, row := range rows {
		out[i] = fromChunkRow(row)
	}
	return out, nil
}

// VectorSearchChunks returns the k chunks nearest to queryEmbedding by
// cosine distance, ascending.
func (s *Store) VectorSearchChunks(ctx context.Context, ecosystem, pkg, version string, queryEmbedding []float32, k int) ([]ChunkHit, error) {
	if err := validateEmbedding(queryEmbedding); err != nil {
		return nil, err
	}
	chunks, err := s.ListChunks(ctx, ecosystem, pkg, version)
	if err != nil {
		return nil, err
	}
	hits := make([]ChunkHit, len(chunks))
	for i, c := range chunks {
		hits[i] = ChunkHit{Chunk: c, Distance: CosineDistance(c.Embedding, queryEmbedding)}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
