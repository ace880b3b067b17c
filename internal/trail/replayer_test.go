package trail_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenith-dev/zenith/internal/audit"
	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/links"
	"github.com/zenith-dev/zenith/internal/repo"
	"github.com/zenith-dev/zenith/internal/store"
	"github.com/zenith-dev/zenith/internal/trail"
)

func TestRebuildRoundTrip(t *testing.T) {
	ctx := context.Background()
	trailDir := t.TempDir()

	w, err := trail.Open(trailDir, "ses-round-trip")
	require.NoError(t, err)

	sourceDB := t.TempDir() + "/source.db"
	st, err := store.Open(ctx, sourceDB)
	require.NoError(t, err)

	deps := repo.Deps{Store: st, Audit: audit.New(st), Trail: w}
	fr := repo.NewFindingRepo(deps)
	tr := repo.NewTaskRepo(deps)

	_, err = fr.Create(ctx, "org-1", nil, nil, "tokio runtime analysis", nil, enum.ConfidenceHigh)
	require.NoError(t, err)
	_, err = tr.Create(ctx, "org-1", nil, nil, nil, "Implement feature", nil)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, st.Close())

	freshDB := t.TempDir() + "/fresh.db"
	fresh, err := store.Open(ctx, freshDB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fresh.Close() })

	result, err := trail.Rebuild(ctx, trailDir, fresh, nil, false, nil)
	require.NoError(t, err)
	require.True(t, result.Rebuilt)
	require.Equal(t, 1, result.TrailFiles)
	require.Equal(t, 2, result.EntitiesCreated)

	freshDeps := repo.Deps{Store: fresh, Audit: audit.New(fresh)}
	freshFindings := repo.NewFindingRepo(freshDeps)
	results, err := freshFindings.Search(ctx, "org-1", "runtime", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "tokio runtime analysis", results[0].Content)

	freshTasks := repo.NewTaskRepo(freshDeps)
	tasks, err := freshTasks.List(ctx, "org-1", 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "Implement feature", tasks[0].Title)
}

func TestRebuildIdempotent(t *testing.T) {
	ctx := context.Background()
	trailDir := t.TempDir()

	w, err := trail.Open(trailDir, "ses-idempotent")
	require.NoError(t, err)
	sourceDB := t.TempDir() + "/source.db"
	st, err := store.Open(ctx, sourceDB)
	require.NoError(t, err)
	deps := repo.Deps{Store: st, Audit: audit.New(st), Trail: w}
	ir := repo.NewIssueRepo(deps)
	_, err = ir.Create(ctx, "org-1", nil, nil, "issue one", nil, enum.IssueTypeBug, 3)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, st.Close())

	freshDB := t.TempDir() + "/fresh.db"
	fresh, err := store.Open(ctx, freshDB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fresh.Close() })

	_, err = trail.Rebuild(ctx, trailDir, fresh, nil, false, nil)
	require.NoError(t, err)
	_, err = trail.Rebuild(ctx, trailDir, fresh, nil, false, nil)
	require.NoError(t, err)

	issues, err := repo.NewIssueRepo(repo.Deps{Store: fresh, Audit: audit.New(fresh)}).List(ctx, "org-1", 10)
	require.NoError(t, err)
	require.Len(t, issues, 1)
}

func TestRebuildPreservesLinkOrgID(t *testing.T) {
	ctx := context.Background()
	trailDir := t.TempDir()

	w, err := trail.Open(trailDir, "ses-link-org")
	require.NoError(t, err)
	sourceDB := t.TempDir() + "/source.db"
	st, err := store.Open(ctx, sourceDB)
	require.NoError(t, err)

	graph := links.New(st, audit.New(st), w)
	l, err := graph.CreateLink(ctx, "org-acme", "finding", "fnd-1", "hypothesis", "hyp-1", enum.RelationValidates)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, st.Close())

	freshDB := t.TempDir() + "/fresh.db"
	fresh, err := store.Open(ctx, freshDB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fresh.Close() })

	_, err = trail.Rebuild(ctx, trailDir, fresh, nil, false, nil)
	require.NoError(t, err)

	freshGraph := links.New(fresh, audit.New(fresh), nil)
	replayed, err := freshGraph.GetLink(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, "org-acme", replayed.OrgID)
}
