package indexer

// =============================================================================
// INDEXER: TRUST THE EXTRACTOR, VALIDATE WITH CUE
// =============================================================================
//
// The indexer sits between per-file extraction and rule checks. Its job is to:
// 1. Resolve the source set from configuration
// 2. Extract every file in parallel, reusing cached facts where possible
// 3. Flatten the facts into relational tables
// 4. Validate the tables and hand them to the policy engine
//
// The indexer does not patch extracted data. A wrong fact is an extractor
// bug; the CUE contract (internal/validator) catches shape drift between the
// tables produced here and what the rego checks read.
// =============================================================================

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/svpar/internal/config"
	"github.com/robert-at-pretension-io/svpar/internal/extractor"
	"github.com/robert-at-pretension-io/svpar/internal/facts"
	"github.com/robert-at-pretension-io/svpar/internal/policy"
	"github.com/robert-at-pretension-io/svpar/internal/validator"
)

// Indexer scans a source tree and produces facts, tables and violations.
// An Indexer may be reused across runs; it keeps its memory cache and
// prepared policy engine between them.
type Indexer struct {
	// Configuration loaded from svpar.json / svpar.yaml
	Config *config.Config

	// Logger receives progress and cache events. Nil means no logging.
	Logger *zap.Logger

	// Checks enables policy evaluation after extraction
	Checks bool

	// TimingPath is the JSONL timing output; SVPAR_TIMING_JSONL overrides it
	TimingPath string

	// Optional extractor factory (for tests)
	extractorFactory func(extractor.Options) FactsExtractor

	cache  *factsCache
	engine *policy.Engine
}

// FactsExtractor abstracts extraction for caching tests
type FactsExtractor interface {
	Extract(path string) (extractor.FileFacts, error)
}

// Result is the structured outcome of one run
type Result struct {
	Root  string                `json:"root"`
	Facts []extractor.FileFacts `json:"facts"`

	Tables facts.Tables `json:"tables"`

	// Delta against the previous cached run, nil on the first run or with the cache off
	Delta *facts.Delta `json:"delta,omitempty"`

	Violations []policy.Violation `json:"violations"`
	Summary    policy.Summary     `json:"summary"`

	Stats Stats `json:"stats"`

	// Files that could not be read
	FileErrors []FileError `json:"file_errors,omitempty"`
}

// HasErrors reports whether any error-severity violation was found
func (r *Result) HasErrors() bool {
	return r != nil && r.Summary.Errors > 0
}

// Stats counts the work a run did
type Stats struct {
	Files      int               `json:"files"`
	Extracted  int               `json:"extracted"`
	CacheHits  int               `json:"cache_hits"`
	Failed     int               `json:"failed"`
	PolicyHit  bool              `json:"policy_cache_hit"`
	Counts     extractor.Summary `json:"counts"`
	DurationMS float64           `json:"duration_ms"`

	// StageMS holds the wall time of each run stage
	StageMS map[string]float64 `json:"stage_ms,omitempty"`
}

// FileError represents a file that failed to read
type FileError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// New creates an Indexer with default configuration
func New() *Indexer {
	return &Indexer{Config: config.DefaultConfig()}
}

// NewWithConfig creates an Indexer with the given configuration
func NewWithConfig(cfg *config.Config) *Indexer {
	return &Indexer{Config: cfg}
}

func (idx *Indexer) logger() *zap.Logger {
	if idx.Logger == nil {
		return zap.NewNop()
	}
	return idx.Logger
}

func (idx *Indexer) newExtractor(opts extractor.Options) FactsExtractor {
	if idx.extractorFactory != nil {
		return idx.extractorFactory(opts)
	}
	return extractor.New(opts)
}

type fileOutcome struct {
	facts  extractor.FileFacts
	status string
	err    error
}

// Run scans rootPath (a directory or a single file).
func (idx *Indexer) Run(ctx context.Context, rootPath string) (*Result, error) {
	runStart := time.Now()
	log := idx.logger()
	timing := newTimingRecorder(runStart, idx.resolveTimingPath())
	if err := timing.Err(); err != nil {
		log.Warn("timing trace disabled", zap.Error(err))
	}
	defer func() {
		if err := timing.Close(); err != nil {
			log.Warn("closing timing trace", zap.Error(err))
		}
	}()
	endTotal := timing.stage("total")

	if idx.Config == nil {
		cfg, err := config.Load(rootPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		idx.Config = cfg
	}
	cfg := idx.Config

	// 1. Resolve sources
	endStage := timing.stage("scan")
	files, err := cfg.ResolveFiles(rootPath)
	if err != nil {
		return nil, fmt.Errorf("scanning files: %w", err)
	}
	endStage("")
	log.Debug("resolved sources", zap.String("root", rootPath), zap.Int("files", len(files)))

	opts, err := cfg.ExtractorOptions()
	if err != nil {
		return nil, fmt.Errorf("extractor options: %w", err)
	}
	fingerprint := extractorFingerprint(opts)

	// 2. Parallel extraction with optional cache
	endStage = timing.stage("extract")
	var cacheDir string
	cache := idx.cache
	if cacheEnabled(cfg) {
		cacheDir = resolveCacheDir(rootPath, cfg)
		if cache == nil || cache.dir != cacheDir || cache.fingerprint != fingerprint {
			cache, err = newFactsCache(cacheDir, fingerprint, cfg.Analysis.Cache.MemoryEntries)
			if err == nil {
				err = cache.Load()
			}
			if err != nil {
				log.Warn("cache disabled", zap.String("dir", cacheDir), zap.Error(err))
				cache = nil
				cacheDir = ""
			}
		}
	} else {
		cache = nil
	}
	idx.cache = cache

	outcomes, err := idx.extractAll(ctx, files, idx.newExtractor(opts), cache, timing)
	if err != nil {
		return nil, err
	}

	singleFile := baseDir(rootPath) != rootPath
	result := &Result{Root: rootPath, Violations: []policy.Violation{}}
	keep := make(map[string]bool, len(files))
	for i, o := range outcomes {
		keep[files[i]] = true
		if o.err != nil {
			if singleFile {
				// the only source named on the command line
				return nil, fmt.Errorf("reading source: %w", o.err)
			}
			result.FileErrors = append(result.FileErrors, FileError{File: files[i], Message: o.err.Error()})
			result.Stats.Failed++
			log.Warn("file skipped", zap.String("file", files[i]), zap.Error(o.err))
			continue
		}
		if o.status == "cache_hit" {
			result.Stats.CacheHits++
		} else {
			result.Stats.Extracted++
		}
		result.Stats.Counts.Add(o.facts.Summary())
		result.Facts = append(result.Facts, o.facts)
	}
	result.Stats.Files = len(result.Facts)
	if cache != nil {
		if !singleFile {
			cache.Prune(keep)
		}
		if err := cache.Save(); err != nil {
			log.Warn("cache save failed", zap.Error(err))
		}
	}
	endStage("")

	// 3. Relational tables
	endStage = timing.stage("tables")
	result.Tables = facts.BuildTables(result.Facts)
	if cfg.ValidateEnabled() {
		factsValidator, err := validator.NewFactsValidator()
		if err != nil {
			return nil, fmt.Errorf("initializing facts validator: %w", err)
		}
		if err := factsValidator.Validate(result.Tables); err != nil {
			return nil, fmt.Errorf("fact table contract violation: %w", err)
		}
	}
	endStage("")

	if cacheDir != "" {
		prev, ok, err := loadFactTablesCache(cacheDir, fingerprint)
		if err != nil {
			log.Warn("previous fact tables unreadable", zap.Error(err))
		} else if ok {
			delta := facts.ComputeDelta(prev, result.Tables)
			result.Delta = &delta
		}
		if err := saveFactTablesCache(cacheDir, fingerprint, result.Tables); err != nil {
			log.Warn("fact tables cache save failed", zap.Error(err))
		}
	}

	// 4. Policy checks
	if idx.Checks {
		endStage = timing.stage("policy")
		status, err := idx.evaluate(ctx, rootPath, cacheDir, result)
		endStage(status)
		if err != nil {
			return nil, err
		}
	}

	endTotal("")
	total := time.Since(runStart)
	result.Stats.DurationMS = millis(total)
	result.Stats.StageMS = timing.stageTotals()
	log.Info("scan complete",
		zap.String("root", rootPath),
		zap.Int("files", result.Stats.Files),
		zap.Int("cache_hits", result.Stats.CacheHits),
		zap.Int("failed", result.Stats.Failed),
		zap.Int("violations", len(result.Violations)),
		zap.Duration("duration", total))
	return result, nil
}

func (idx *Indexer) extractAll(ctx context.Context, files []string, ext FactsExtractor, cache *factsCache, timing *timingRecorder) ([]fileOutcome, error) {
	limit := idx.Config.Analysis.MaxParallelFiles
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	log := idx.logger()
	outcomes := make([]fileOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			endFile := timing.file("extract", file)
			var contentHash string
			if cache != nil {
				h, err := hashFile(file)
				if err != nil {
					outcomes[i] = fileOutcome{err: err}
					return nil
				}
				contentHash = h
				if facts, ok, err := cache.Get(file, contentHash); err == nil && ok {
					outcomes[i] = fileOutcome{facts: facts, status: "cache_hit"}
					endFile("cache_hit")
					log.Debug("cache hit", zap.String("file", file))
					return nil
				} else if err != nil {
					log.Warn("cache read failed", zap.String("file", file), zap.Error(err))
				}
			}

			facts, err := ext.Extract(file)
			if err != nil {
				outcomes[i] = fileOutcome{err: err}
				endFile("failed")
				return nil
			}
			if cache != nil {
				if err := cache.Put(file, contentHash, facts); err != nil {
					log.Warn("cache write failed", zap.String("file", file), zap.Error(err))
				}
			}
			outcomes[i] = fileOutcome{facts: facts, status: "extracted"}
			endFile("extracted")
			log.Debug("extracted", zap.String("file", file), zap.Any("counts", facts.Summary()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extraction: %w", err)
	}
	return outcomes, nil
}

func (idx *Indexer) policyEngine(ctx context.Context, rootPath string) (*policy.Engine, error) {
	if idx.engine != nil {
		return idx.engine, nil
	}
	engine, err := policy.New(ctx, policy.Options{
		PolicyDir: resolvePolicyDir(rootPath, idx.Config),
		Rules:     idx.Config.Lint.Rules,
	})
	if err != nil {
		return nil, fmt.Errorf("loading policies: %w", err)
	}
	idx.engine = engine
	return engine, nil
}

// SetPolicyEngine replaces the engine built from configuration.
func (idx *Indexer) SetPolicyEngine(engine *policy.Engine) {
	idx.engine = engine
}

func (idx *Indexer) evaluate(ctx context.Context, rootPath, cacheDir string, result *Result) (string, error) {
	log := idx.logger()
	engine, err := idx.policyEngine(ctx, rootPath)
	if err != nil {
		return "failed", err
	}

	var key string
	if cacheDir != "" {
		key, err = policyKey(engine, result.Tables)
		if err != nil {
			log.Warn("policy cache disabled", zap.Error(err))
			key = ""
		} else if cached, ok, err := loadPolicyResult(cacheDir, key); err != nil {
			log.Warn("policy cache unreadable", zap.Error(err))
		} else if ok {
			applyPolicyResult(result, &cached)
			result.Stats.PolicyHit = true
			return "cache_hit", nil
		}
	}

	pr, err := engine.Evaluate(ctx, result.Tables)
	if err != nil {
		if cacheDir != "" {
			_ = clearPolicyResult(cacheDir)
		}
		return "failed", fmt.Errorf("policy evaluation: %w", err)
	}
	if idx.Config.ValidateEnabled() {
		outputValidator, err := validator.NewOutputValidator()
		if err != nil {
			return "failed", fmt.Errorf("initializing output validator: %w", err)
		}
		if err := outputValidator.Validate(pr); err != nil {
			return "failed", fmt.Errorf("check output contract violation: %w", err)
		}
	}
	applyPolicyResult(result, pr)

	if key != "" {
		if err := savePolicyResult(cacheDir, key, *pr); err != nil {
			log.Warn("policy cache save failed", zap.Error(err))
		}
	}
	return "evaluated", nil
}

func applyPolicyResult(result *Result, pr *policy.Result) {
	result.Violations = append([]policy.Violation{}, pr.Violations...)
	result.Summary = pr.Summary
}

func resolvePolicyDir(rootPath string, cfg *config.Config) string {
	dir := cfg.Lint.PolicyDir
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(baseDir(rootPath), dir)
}
