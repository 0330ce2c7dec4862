package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// timingSpan is one line of the JSONL trace. File is empty for run stages.
type timingSpan struct {
	Stage   string  `json:"stage"`
	File    string  `json:"file,omitempty"`
	Outcome string  `json:"outcome,omitempty"`
	AtMS    float64 `json:"at_ms"`
	TookMS  float64 `json:"took_ms"`
}

// timingRecorder times the stages of one run. Stage totals are always kept
// for Stats; spans are streamed to a JSONL file only when a path is given.
type timingRecorder struct {
	origin time.Time

	mu     sync.Mutex
	totals map[string]float64
	out    *os.File
	enc    *json.Encoder
	err    error
}

func newTimingRecorder(origin time.Time, path string) *timingRecorder {
	tr := &timingRecorder{origin: origin, totals: make(map[string]float64)}
	if path == "" {
		return tr
	}
	f, err := os.Create(path)
	if err != nil {
		tr.err = fmt.Errorf("creating timing trace: %w", err)
		return tr
	}
	tr.out = f
	tr.enc = json.NewEncoder(f)
	return tr
}

// stage starts timing a run stage and returns the func that ends it.
func (tr *timingRecorder) stage(name string) func(outcome string) {
	at := time.Now()
	return func(outcome string) {
		took := time.Since(at)
		tr.mu.Lock()
		defer tr.mu.Unlock()
		tr.totals[name] += millis(took)
		tr.emit(timingSpan{Stage: name, Outcome: outcome, AtMS: millis(at.Sub(tr.origin)), TookMS: millis(took)})
	}
}

// file starts timing the extraction of one file. File spans are not added
// to the stage totals; the enclosing stage already covers them.
func (tr *timingRecorder) file(stage, path string) func(outcome string) {
	at := time.Now()
	return func(outcome string) {
		took := time.Since(at)
		tr.mu.Lock()
		defer tr.mu.Unlock()
		tr.emit(timingSpan{Stage: stage, File: path, Outcome: outcome, AtMS: millis(at.Sub(tr.origin)), TookMS: millis(took)})
	}
}

// emit must be called with mu held.
func (tr *timingRecorder) emit(span timingSpan) {
	if tr.enc == nil || tr.err != nil {
		return
	}
	if err := tr.enc.Encode(span); err != nil {
		tr.err = fmt.Errorf("writing timing trace: %w", err)
	}
}

// stageTotals returns a copy of the accumulated stage durations in ms.
func (tr *timingRecorder) stageTotals() map[string]float64 {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make(map[string]float64, len(tr.totals))
	for k, v := range tr.totals {
		out[k] = v
	}
	return out
}

func (tr *timingRecorder) Err() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.err
}

func (tr *timingRecorder) Close() error {
	if tr.out == nil {
		return nil
	}
	return tr.out.Close()
}

func millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// resolveTimingPath picks the JSONL destination: SVPAR_TIMING_JSONL wins over
// Indexer.TimingPath. Empty disables the trace.
func (idx *Indexer) resolveTimingPath() string {
	if envPath := os.Getenv("SVPAR_TIMING_JSONL"); envPath != "" {
		return envPath
	}
	if idx == nil {
		return ""
	}
	return idx.TimingPath
}
