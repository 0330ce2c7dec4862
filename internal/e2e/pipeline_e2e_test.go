package e2e

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/svpar/internal/config"
	"github.com/robert-at-pretension-io/svpar/internal/indexer"
	"github.com/robert-at-pretension-io/svpar/internal/report"
)

// TestSampleDesigns runs the whole pipeline over the sample tree in testdata.
func TestSampleDesigns(t *testing.T) {
	root := filepath.Join(findRepoRoot(t), "testdata", "rtl")

	cfg := config.DefaultConfig()
	off := false
	cfg.Analysis.Cache.Enabled = &off

	idx := indexer.NewWithConfig(cfg)
	idx.Checks = true
	result, err := idx.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Empty(t, result.FileErrors)
	assert.Equal(t, 3, result.Stats.Files)
	assert.Equal(t, 3, result.Stats.Counts.Modules)
	assert.Empty(t, result.Tables.Diagnostics)

	require.Len(t, result.Tables.Bindings, 3)
	for _, b := range result.Tables.Bindings {
		assert.True(t, b.Resolved, "binding %s.%s", b.Target, b.Formal)
		assert.Equal(t, "pipe_top", b.Module)
	}

	assert.Empty(t, result.Violations)
	assert.False(t, result.HasErrors())

	var out bytes.Buffer
	require.NoError(t, report.Render(&out, result.Facts, report.Options{}))
	for _, name := range []string{"pipe_top.sv", "stage.sv", "sync_fifo.sv"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestSampleDesignImpact(t *testing.T) {
	root := filepath.Join(findRepoRoot(t), "testdata", "rtl")

	cfg := config.DefaultConfig()
	off := false
	cfg.Analysis.Cache.Enabled = &off

	result, err := indexer.NewWithConfig(cfg).Run(context.Background(), root)
	require.NoError(t, err)

	impact := indexer.BuildDependents(result.Tables).Impact(filepath.Join(root, "lib", "sync_fifo.sv"))
	assert.Equal(t, []string{
		filepath.Join(root, "lib", "sync_fifo.sv"),
		filepath.Join(root, "pipe_top.sv"),
	}, impact.Files())
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "testdata", "rtl")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repo root not found from %s", start)
		}
		dir = parent
	}
}
