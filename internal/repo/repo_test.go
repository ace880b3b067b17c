package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenith-dev/zenith/internal/audit"
	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/links"
	"github.com/zenith-dev/zenith/internal/repo"
	"github.com/zenith-dev/zenith/internal/store"
)

func testDeps(t *testing.T) repo.Deps {
	t.Helper()
	st, err := store.Open(context.Background(), t.TempDir()+"/zenith.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return repo.Deps{Store: st, Audit: audit.New(st)}
}

func TestHypothesisTransitionPath(t *testing.T) {
	deps := testDeps(t)
	hr := repo.NewHypothesisRepo(deps)
	ctx := context.Background()

	h, err := hr.Create(ctx, "org-1", nil, nil, nil, "tokio works with axum")
	require.NoError(t, err)
	require.Equal(t, enum.HypothesisUnverified, h.Status)

	h, err = hr.Transition(ctx, "org-1", h.ID, enum.HypothesisAnalyzing, nil)
	require.NoError(t, err)
	require.Equal(t, enum.HypothesisAnalyzing, h.Status)

	reason := "benchmarks +3x"
	h, err = hr.Transition(ctx, "org-1", h.ID, enum.HypothesisConfirmed, &reason)
	require.NoError(t, err)
	require.Equal(t, enum.HypothesisConfirmed, h.Status)
	require.Equal(t, reason, *h.Reason)

	entries, err := deps.Audit.Query(ctx, "org-1", audit.Filter{EntityType: "hypothesis", EntityID: h.ID})
	require.NoError(t, err)
	require.Len(t, entries, 3) // created + 2 status_changed
}

func TestHypothesisInvalidTransitionRejected(t *testing.T) {
	deps := testDeps(t)
	hr := repo.NewHypothesisRepo(deps)
	ctx := context.Background()

	h, err := hr.Create(ctx, "org-1", nil, nil, nil, "direct jump")
	require.NoError(t, err)

	_, err = hr.Transition(ctx, "org-1", h.ID, enum.HypothesisConfirmed, nil)
	require.Error(t, err)

	reloaded, err := hr.Get(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, enum.HypothesisUnverified, reloaded.Status)
}

func TestFindingTaggingIdempotent(t *testing.T) {
	deps := testDeps(t)
	fr := repo.NewFindingRepo(deps)
	ctx := context.Background()

	f, err := fr.Create(ctx, "org-1", nil, nil, "evidence", nil, enum.ConfidenceHigh)
	require.NoError(t, err)

	require.NoError(t, fr.Tag(ctx, "org-1", f.ID, "perf"))
	require.NoError(t, fr.Tag(ctx, "org-1", f.ID, "perf"))

	tags, err := fr.Tags(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"perf"}, tags)

	require.NoError(t, fr.Untag(ctx, "org-1", f.ID, "perf"))
	require.NoError(t, fr.Untag(ctx, "org-1", f.ID, "perf")) // absent tag still succeeds

	entries, err := deps.Audit.Query(ctx, "org-1", audit.Filter{EntityType: "finding", EntityID: f.ID, Action: "untagged"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestFindingSearchFTS(t *testing.T) {
	deps := testDeps(t)
	fr := repo.NewFindingRepo(deps)
	ctx := context.Background()

	_, err := fr.Create(ctx, "org-1", nil, nil, "tokio runtime analysis", nil, enum.ConfidenceHigh)
	require.NoError(t, err)

	results, err := fr.Search(ctx, "org-1", "runtime", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestStudyComposite(t *testing.T) {
	deps := testDeps(t)
	linkGraph := links.New(deps.Store, deps.Audit, deps.Trail)
	hr := repo.NewHypothesisRepo(deps)
	fr := repo.NewFindingRepo(deps)
	ir := repo.NewInsightRepo(deps)
	sr := repo.NewStudyRepo(deps, linkGraph, hr, fr, ir)
	ctx := context.Background()

	study, err := sr.Create(ctx, "org-1", nil, "tokio runtime", enum.MethodologyTestDriven)
	require.NoError(t, err)

	h, err := sr.AddAssumption(ctx, "org-1", study.ID, "multi-threaded runtime")
	require.NoError(t, err)

	_, err = sr.RecordTestResult(ctx, "org-1", study.ID, h.ID, "confirmed via testing", enum.ConfidenceHigh)
	require.NoError(t, err)

	study, err = sr.ConcludeStudy(ctx, "org-1", study.ID, "Study conclusion")
	require.NoError(t, err)
	require.Equal(t, enum.StudyCompleted, study.Status)
	require.Equal(t, "Study conclusion", *study.Summary)

	full, err := sr.GetStudyFullState(ctx, study.ID)
	require.NoError(t, err)
	require.Len(t, full.Hypotheses, 1)
	require.Len(t, full.Findings, 1)
	require.Len(t, full.Insights, 1)

	fromStudy, err := linkGraph.GetLinksFrom(ctx, "study", study.ID)
	require.NoError(t, err)
	relations := map[string]bool{}
	for _, l := range fromStudy {
		relations[string(l.Relation)] = true
	}
	require.True(t, relations["relates_to"])
	require.True(t, relations["derived_from"])
}

func TestTenantIsolation(t *testing.T) {
	deps := testDeps(t)
	ir := repo.NewIssueRepo(deps)
	ctx := context.Background()

	_, err := ir.Create(ctx, "org-a", nil, nil, "issue A", nil, enum.IssueTypeBug, 5)
	require.NoError(t, err)

	listA, err := ir.List(ctx, "org-a", 10)
	require.NoError(t, err)
	require.Len(t, listA, 1)

	listB, err := ir.List(ctx, "org-b", 10)
	require.NoError(t, err)
	require.Empty(t, listB)
}
