package sourcestore

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
	s, err := Open(context.Background(), filepath.Join(dir, "sources.db"), filepath.Join(dir, "data"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBulkInsertAndListFiles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files := []SourceFile{
		{FilePath: "src/lib.rs", Content: "pub fn hello() {}"},
		{FilePath: "src/runtime.rs", Content: "pub struct Runtime;"},
	}
	require.NoError(t, s.BulkInsertFiles(ctx, "crates.io", "tokio", "1.0.0", files))

	got, err := s.ListFiles(ctx, "crates.io", "tokio", "1.0.0")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGetFileNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BulkInsertFiles(ctx, "crates.io", "tokio", "1.0.0", []SourceFile{
		{FilePath: "src/lib.rs", Content: "pub fn hello() {}"},
	}))

	_, err := s.GetFile(ctx, "crates.io", "tokio", "1.0.0", "src/missing.rs")
	require.Error(t, err)

	f, err := s.GetFile(ctx, "crates.io", "tokio", "1.0.0", "src/lib.rs")
	require.NoError(t, err)
	assert.Equal(t, "pub fn hello() {}", f.Content)
}

func TestDeletePackageIsIndependentOfLake(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BulkInsertFiles(ctx, "crates.io", "tokio", "1.0.0", []SourceFile{
		{FilePath: "src/lib.rs", Content: "pub fn hello() {}"},
	}))
	require.NoError(t, s.DeletePackage(ctx, "crates.io", "tokio", "1.0.0"))

	got, err := s.ListFiles(ctx, "crates.io", "tokio", "1.0.0")
	require.NoError(t, err)
	assert.Empty(t, got)
}
