package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenith-dev/zenith/internal/audit"
	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), t.TempDir()+"/zenith.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAppendAndQueryByEntity(t *testing.T) {
	st := openTestStore(t)
	sink := audit.New(st)
	ctx := context.Background()

	_, err := sink.Append(ctx, "org-1", nil, "hypothesis", "hyp-1", enum.ActionCreated, map[string]any{"status": "unverified"})
	require.NoError(t, err)
	_, err = sink.Append(ctx, "org-1", nil, "hypothesis", "hyp-1", enum.ActionStatusChanged, map[string]any{"from": "unverified", "to": "analyzing"})
	require.NoError(t, err)
	_, err = sink.Append(ctx, "org-1", nil, "issue", "iss-1", enum.ActionCreated, map[string]any{})
	require.NoError(t, err)

	entries, err := sink.Query(ctx, "org-1", audit.Filter{EntityType: "hypothesis", EntityID: "hyp-1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestQueryIsTenantScoped(t *testing.T) {
	st := openTestStore(t)
	sink := audit.New(st)
	ctx := context.Background()

	_, err := sink.Append(ctx, "org-1", nil, "issue", "iss-1", enum.ActionCreated, nil)
	require.NoError(t, err)
	_, err = sink.Append(ctx, "org-2", nil, "issue", "iss-1", enum.ActionCreated, nil)
	require.NoError(t, err)

	entries, err := sink.Query(ctx, "org-1", audit.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "org-1", entries[0].OrgID)
}
