package indexer

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/svpar/internal/config"
	"github.com/robert-at-pretension-io/svpar/internal/extractor"
)

const subSource = `module sub #(
  parameter W = 8
) (
  input clk,
  output [W-1:0] q
);
endmodule
`

const topSource = `module top #(
  parameter W = 4,
  parameter P [3] = '{1,2}
) (
  input clk
);
  sub #(
    .W(W)
  ) u_sub ();
endmodule
`

type countingExtractor struct {
	inner FactsExtractor
	count *int32
}

func (c *countingExtractor) Extract(path string) (extractor.FileFacts, error) {
	atomic.AddInt32(c.count, 1)
	return c.inner.Extract(path)
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(cacheDir string, cacheEnabled bool) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Analysis.Cache.Dir = cacheDir
	enabled := cacheEnabled
	cfg.Analysis.Cache.Enabled = &enabled
	cfg.Analysis.MaxParallelFiles = 2
	return cfg
}

// newCountingIndexer returns an indexer whose extractions are counted.
func newCountingIndexer(cfg *config.Config, count *int32) *Indexer {
	idx := NewWithConfig(cfg)
	idx.extractorFactory = func(opts extractor.Options) FactsExtractor {
		return &countingExtractor{inner: extractor.New(opts), count: count}
	}
	return idx
}

// failingExtractor fails for the paths in fail and delegates the rest.
type failingExtractor struct {
	inner FactsExtractor
	fail  map[string]bool
}

func (f *failingExtractor) Extract(path string) (extractor.FileFacts, error) {
	if f.fail[path] {
		return extractor.FileFacts{File: path}, &os.PathError{Op: "open", Path: path, Err: os.ErrPermission}
	}
	return f.inner.Extract(path)
}

func newFailingIndexer(cfg *config.Config, fail ...string) *Indexer {
	set := make(map[string]bool, len(fail))
	for _, f := range fail {
		set[f] = true
	}
	idx := NewWithConfig(cfg)
	idx.extractorFactory = func(opts extractor.Options) FactsExtractor {
		return &failingExtractor{inner: extractor.New(opts), fail: set}
	}
	return idx
}
