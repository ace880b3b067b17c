package doclake

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "lake.db"), filepath.Join(dir, "data"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func embedding(seed float32) []float32 {
	e := make([]float32, EmbeddingDim)
	e[0] = seed
	e[1] = 1
	return e
}

func TestBulkInsertSymbolsRejectsWrongDimension(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	err := s.BulkInsertSymbols(ctx, "crates.io", "tokio", "1.0.0", []SymbolRecord{
		{ID: "sym_1", Kind: "fn", Name: "spawn", Embedding: []float32{1, 2, 3}},
	})
	require.Error(t, err)
}

func TestBulkInsertAndListSymbols(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	symbols := []SymbolRecord{
		{ID: "sym_1", FilePath: "src/runtime.rs", Kind: "fn", Name: "spawn", Signature: "fn spawn<F>(future: F)", Embedding: embedding(1)},
		{ID: "sym_2", FilePath: "src/runtime.rs", Kind: "struct", Name: "Runtime", Signature: "struct Runtime", Embedding: embedding(2)},
	}
	require.NoError(t, s.BulkInsertSymbols(ctx, "crates.io", "tokio", "1.0.0", symbols))

	got, err := s.ListSymbols(ctx, "crates.io", "tokio", "1.0.0")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	info, err := s.GetPackageInfo(ctx, "crates.io", "tokio", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 2, info.SymbolCount)
}

func TestVectorSearchSymbolsOrdersByDistance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	symbols := []SymbolRecord{
		{ID: "sym_near", Name: "near", Embedding: embedding(1)},
		{ID: "sym_far", Name: "far", Embedding: embedding(-1)},
	}
	require.NoError(t, s.BulkInsertSymbols(ctx, "crates.io", "tokio", "1.0.0", symbols))

	hits, err := s.VectorSearchSymbols(ctx, "crates.io", "tokio", "1.0.0", embedding(1), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "sym_near", hits[0].Symbol.ID)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
}

func TestDeletePackageRemovesSymbolsAndChunks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BulkInsertSymbols(ctx, "crates.io", "tokio", "1.0.0", []SymbolRecord{
		{ID: "sym_1", Name: "spawn", Embedding: embedding(1)},
	}))
	title := "Overview"
	require.NoError(t, s.BulkInsertChunks(ctx, "crates.io", "tokio", "1.0.0", []ChunkRecord{
		{ID: "chunk_1", SourceFile: "README.md", Title: &title, Content: "tokio is an async runtime", Embedding: embedding(1)},
	}))

	require.NoError(t, s.DeletePackage(ctx, "crates.io", "tokio", "1.0.0"))

	symbols, err := s.ListSymbols(ctx, "crates.io", "tokio", "1.0.0")
	require.NoError(t, err)
	assert.Empty(t, symbols)

	_, err = s.GetPackageInfo(ctx, "crates.io", "tokio", "1.0.0")
	require.Error(t, err)
}
