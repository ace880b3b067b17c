package cloudsearch

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenith-dev/zenith/internal/doclake"
)

func openTestCatalog(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, EnsureCatalogSchema(context.Background(), db))
	return db
}

func embedding(seed float32) []float32 {
	e := make([]float32, doclake.EmbeddingDim)
	e[0] = seed
	e[1] = 1
	return e
}

// writeSymbolsFile uses a throwaway doclake.Store purely as a Parquet writer
// so cloudsearch tests can exercise a real object file without duplicating
// the writer logic.
func writeSymbolsFile(t *testing.T, symbols []doclake.SymbolRecord) string {
	t.Helper()
	dir := t.TempDir()
	s, err := doclake.Open(context.Background(), filepath.Join(dir, "lake.db"), filepath.Join(dir, "data"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.BulkInsertSymbols(context.Background(), "crates.io", "tokio", "1.0.0", symbols))
	return filepath.Join(dir, "data", "crates.io", "tokio", "1.0.0", "symbols.parquet")
}

func TestVisibilityPublicAlwaysVisible(t *testing.T) {
	o := CatalogObject{Visibility: "public", OrgID: "org-a", OwnerSub: "user-a"}
	assert.True(t, o.visibleTo(nil))
	assert.True(t, o.visibleTo(&Identity{}))
}

func TestVisibilityTeamRequiresMatchingOrg(t *testing.T) {
	o := CatalogObject{Visibility: "team", OrgID: "org-a"}
	assert.False(t, o.visibleTo(nil))
	assert.False(t, o.visibleTo(&Identity{OrgID: "org-b"}))
	assert.True(t, o.visibleTo(&Identity{OrgID: "org-a"}))
}

func TestVisibilityPrivateRequiresMatchingUser(t *testing.T) {
	o := CatalogObject{Visibility: "private", OwnerSub: "user-a"}
	assert.False(t, o.visibleTo(nil))
	assert.False(t, o.visibleTo(&Identity{UserID: "user-b"}))
	assert.True(t, o.visibleTo(&Identity{UserID: "user-a"}))
}

func TestSearchCloudVectorScopedFiltersByVisibilityAndRanksByDistance(t *testing.T) {
	ctx := context.Background()
	catalog := openTestCatalog(t)

	publicPath := writeSymbolsFile(t, []doclake.SymbolRecord{
		{ID: "sym_pub_near", Name: "near", Kind: "fn", Embedding: embedding(1)},
	})
	teamPath := writeSymbolsFile(t, []doclake.SymbolRecord{
		{ID: "sym_team_far", Name: "far", Kind: "fn", Embedding: embedding(-1)},
	})

	require.NoError(t, RegisterObject(ctx, catalog, CatalogObject{
		Path: publicPath, Kind: "symbols", Version: "1.0.0", Visibility: "public",
	}, "crates.io", "tokio"))
	require.NoError(t, RegisterObject(ctx, catalog, CatalogObject{
		Path: teamPath, Kind: "symbols", Version: "1.0.0", Visibility: "team", OrgID: "org-a",
	}, "crates.io", "tokio"))

	planner := Open(catalog, LocalFetcher{})

	// Anonymous caller sees only the public object.
	hits, err := planner.SearchCloudVectorScoped(ctx, "crates.io", "tokio", nil, embedding(1), 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "sym_pub_near", hits[0].ID)

	// A caller in org-a sees both, ranked by distance.
	hits, err = planner.SearchCloudVectorScoped(ctx, "crates.io", "tokio", nil, embedding(1), 10, &Identity{OrgID: "org-a"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "sym_pub_near", hits[0].ID)
	assert.Equal(t, "sym_team_far", hits[1].ID)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
}

func TestSearchCloudVectorScopedUnknownPackageReturnsEmpty(t *testing.T) {
	catalog := openTestCatalog(t)
	planner := Open(catalog, LocalFetcher{})
	hits, err := planner.SearchCloudVectorScoped(context.Background(), "crates.io", "does-not-exist", nil, embedding(1), 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
