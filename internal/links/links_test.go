package links_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenith-dev/zenith/internal/audit"
	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/links"
	"github.com/zenith-dev/zenith/internal/store"
)

func setup(t *testing.T) *links.Graph {
	t.Helper()
	st, err := store.Open(context.Background(), t.TempDir()+"/zenith.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return links.New(st, audit.New(st), nil)
}

func TestCreateAndRetrieveLink(t *testing.T) {
	g := setup(t)
	ctx := context.Background()

	l, err := g.CreateLink(ctx, "org-1", "study", "stu-1", "hypothesis", "hyp-1", enum.RelationRelatesTo)
	require.NoError(t, err)

	from, err := g.GetLinksFrom(ctx, "study", "stu-1")
	require.NoError(t, err)
	require.Len(t, from, 1)
	require.Equal(t, l.ID, from[0].ID)

	to, err := g.GetLinksTo(ctx, "hypothesis", "hyp-1")
	require.NoError(t, err)
	require.Len(t, to, 1)
}

func TestDuplicateLinkRejected(t *testing.T) {
	g := setup(t)
	ctx := context.Background()

	_, err := g.CreateLink(ctx, "org-1", "study", "stu-1", "hypothesis", "hyp-1", enum.RelationRelatesTo)
	require.NoError(t, err)

	_, err = g.CreateLink(ctx, "org-1", "study", "stu-1", "hypothesis", "hyp-1", enum.RelationRelatesTo)
	require.Error(t, err)
}

func TestDeleteLinkRemovesLink(t *testing.T) {
	g := setup(t)
	ctx := context.Background()

	l, err := g.CreateLink(ctx, "org-1", "study", "stu-1", "insight", "ins-1", enum.RelationDerivedFrom)
	require.NoError(t, err)

	require.NoError(t, g.DeleteLink(ctx, "org-1", l.ID))

	_, err = g.GetLink(ctx, l.ID)
	require.Error(t, err)
}

func TestGetLinkedIDsDeduplicates(t *testing.T) {
	g := setup(t)
	ctx := context.Background()

	_, err := g.CreateLink(ctx, "org-1", "study", "stu-1", "hypothesis", "hyp-1", enum.RelationRelatesTo)
	require.NoError(t, err)
	_, err = g.CreateLink(ctx, "org-1", "study", "stu-1", "hypothesis", "hyp-1", enum.RelationValidates)
	require.NoError(t, err)

	ids, err := g.GetLinkedIDs(ctx, "study", "stu-1", "hypothesis")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"hyp-1"}, ids)
}
