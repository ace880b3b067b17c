package zenith

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWiresLocalComponentsOnly(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultDataDir(root)
	cfg.SessionID = "ses_test"

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NotNil(t, s.Repos)
	assert.NotNil(t, s.Repos.Research)
	assert.NotNil(t, s.Repos.Findings)
	assert.NotNil(t, s.Repos.Studies)
	assert.NotNil(t, s.Repos.Links)
	assert.NotNil(t, s.DocLake)
	assert.NotNil(t, s.SourceStore)

	// No cloud config was supplied: the cloud-facing components stay nil
	// rather than attempting a connection.
	assert.Nil(t, s.Sync)
	assert.Nil(t, s.CloudSearch)
	assert.NotNil(t, s.Schema())
}

func TestOpenCreatesExpectedLayout(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultDataDir(root)
	cfg.SessionID = "ses_test"

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.FileExists(t, filepath.Join(root, "db", "zenith.db"))
	assert.DirExists(t, filepath.Join(root, "trail"))
	assert.FileExists(t, filepath.Join(root, "doclake", "catalog.db"))
	assert.FileExists(t, filepath.Join(root, "sourcestore", "catalog.db"))
}
