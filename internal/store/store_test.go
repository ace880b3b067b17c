package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenith-dev/zenith/internal/store"
)

func TestOpenRunsMigrationsIdempotently(t *testing.T) {
	path := t.TempDir() + "/zenith.db"
	ctx := context.Background()

	st, err := store.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := store.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st2.Close() })

	_, err = st2.Execute(ctx, `INSERT INTO sessions (id, org_id, status, started_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"ses-test", "org-1", "active", "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z")
	require.NoError(t, err)
}

func TestMetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, t.TempDir()+"/zenith.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.SetMetadata(ctx, "schema_version", "1"))
	v, err := st.GetMetadata(ctx, "schema_version")
	require.NoError(t, err)
	require.Equal(t, "1", v)

	require.NoError(t, st.SetMetadata(ctx, "schema_version", "2"))
	v, err = st.GetMetadata(ctx, "schema_version")
	require.NoError(t, err)
	require.Equal(t, "2", v)
}

func TestOrgIDFilter(t *testing.T) {
	frag, args := store.OrgIDFilter("org-1")
	require.Equal(t, "org_id = ?", frag)
	require.Equal(t, []any{"org-1"}, args)

	frag, args = store.OrgIDFilter("org-1", "org-2")
	require.Equal(t, "org_id IN (?, ?)", frag)
	require.Equal(t, []any{"org-1", "org-2"}, args)
}
