package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeHandler receives each rescan. impacted lists the changed files
// followed by the files that instantiate modules they declare, transitively.
type ChangeHandler func(result *Result, impacted []string, err error)

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Debounce groups rapid changes into one rescan. Default 200ms.
	Debounce time.Duration
}

// Watcher rescans a source tree when matching files change.
//
// Changes are debounced as one batch: a burst of saves across several files
// yields a single Run over the whole tree, which the facts cache keeps cheap.
type Watcher struct {
	idx     *Indexer
	handler ChangeHandler
	options WatchOptions
	watcher *fsnotify.Watcher

	root string
	ctx  context.Context
	last *Result

	pending map[string]bool
	timer   *time.Timer
	mu      sync.Mutex

	runMu    sync.Mutex
	stopChan chan struct{}
	stopped  bool
	done     chan struct{}
}

// NewWatcher creates a watcher that rescans with idx and reports to handler.
func NewWatcher(idx *Indexer, options WatchOptions, handler ChangeHandler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if options.Debounce <= 0 {
		options.Debounce = 200 * time.Millisecond
	}
	return &Watcher{
		idx:      idx,
		handler:  handler,
		options:  options,
		watcher:  fw,
		pending:  make(map[string]bool),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start runs an initial scan of root, reports it, then watches root and all
// its non-excluded subdirectories until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context, root string) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("watcher already stopped")
	}
	w.root = root
	w.ctx = ctx
	w.mu.Unlock()

	if err := w.addTree(root); err != nil {
		return err
	}

	result, err := w.idx.Run(ctx, root)
	w.runMu.Lock()
	if err == nil {
		w.last = result
	}
	w.runMu.Unlock()
	if w.handler != nil {
		w.handler(result, nil, err)
	}

	w.idx.logger().Info("file watcher started", zap.String("root", root))
	go w.eventLoop(ctx)
	return nil
}

func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if w.ignoreDir(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.idx.logger().Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting up watches: %w", err)
	}
	return nil
}

func (w *Watcher) ignoreDir(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	if w.idx.Config != nil && w.idx.Config.IsExcludedDir(rel) {
		return true
	}
	switch filepath.Base(path) {
	case ".git", resolveCacheDirName(w.idx):
		return true
	}
	return false
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopChan)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.idx.logger().Info("file watcher stopped")
	return err
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.idx.logger().Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.ignoreDir(path) {
				_ = w.addTree(path)
			}
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || w.idx.Config == nil || !w.idx.Config.MatchesSource(rel) {
		return
	}
	w.idx.logger().Debug("file event", zap.String("op", event.Op.String()), zap.String("file", path))
	w.schedule(path)
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.options.Debounce, w.rescan)
}

func (w *Watcher) rescan() {
	w.mu.Lock()
	if w.stopped || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]bool)
	ctx, root := w.ctx, w.root
	w.mu.Unlock()
	sort.Strings(changed)

	w.runMu.Lock()
	defer w.runMu.Unlock()

	result, err := w.idx.Run(ctx, root)
	if err != nil {
		if w.handler != nil {
			w.handler(nil, changed, err)
		}
		return
	}
	impacted := impactedFiles(changed, w.last, result)
	w.last = result
	if w.handler != nil {
		w.handler(result, impacted, nil)
	}
}

// impactedFiles expands changed files through the instantiation graphs of
// both the previous and the new run, so removed instantiations still count.
func impactedFiles(changed []string, prev, next *Result) []string {
	graph := make(Dependents)
	for _, r := range []*Result{prev, next} {
		if r == nil {
			continue
		}
		for target, deps := range BuildDependents(r.Tables) {
			if graph[target] == nil {
				graph[target] = make(map[string]bool)
			}
			for d := range deps {
				graph[target][d] = true
			}
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, f := range changed {
		for _, g := range graph.Impact(f).Files() {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

func resolveCacheDirName(idx *Indexer) string {
	if idx.Config == nil || idx.Config.Analysis.Cache.Dir == "" {
		return ".svpar_cache"
	}
	return filepath.Base(idx.Config.Analysis.Cache.Dir)
}
