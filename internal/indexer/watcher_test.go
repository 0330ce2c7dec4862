package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type watchEvent struct {
	result   *Result
	impacted []string
	err      error
}

func TestWatcherRescansOnChange(t *testing.T) {
	dir := t.TempDir()
	sub := writeSource(t, dir, "sub.sv", subSource)
	top := writeSource(t, dir, "top.sv", topSource)

	events := make(chan watchEvent, 8)
	idx := NewWithConfig(testConfig(".cache", true))
	w, err := NewWatcher(idx, WatchOptions{Debounce: 50 * time.Millisecond}, func(r *Result, impacted []string, err error) {
		events <- watchEvent{r, impacted, err}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, dir))
	defer w.Stop()

	initial := <-events
	require.NoError(t, initial.err)
	assert.Len(t, initial.result.Facts, 2)
	assert.Nil(t, initial.impacted)

	writeSource(t, dir, "sub.sv", subSource+"\nmodule sub2;\nendmodule\n")
	writeSource(t, dir, "notes.txt", "ignored")

	select {
	case ev := <-events:
		require.NoError(t, ev.err)
		assert.Equal(t, []string{sub, top}, ev.impacted)
		assert.Equal(t, 3, ev.result.Stats.Counts.Modules)
		assert.Equal(t, 1, ev.result.Stats.CacheHits)
	case <-time.After(5 * time.Second):
		t.Fatal("no rescan after change")
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(New(), WatchOptions{}, nil)
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	assert.Error(t, w.Start(context.Background(), t.TempDir()))
}
