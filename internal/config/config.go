package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/svpar/internal/extractor"
)

// Config is the top-level configuration for svpar
type Config struct {
	// Sources selects which files a directory scan picks up
	Sources SourcesConfig `json:"sources" yaml:"sources"`

	// Extract tunes declaration classification and binding resolution
	Extract ExtractConfig `json:"extract" yaml:"extract"`

	// Lint contains rule check configuration
	Lint LintConfig `json:"lint" yaml:"lint"`

	// Report controls the log file written by scan
	Report ReportConfig `json:"report" yaml:"report"`

	// Analysis contains analysis options
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
}

// SourcesConfig holds doublestar patterns relative to the scan root
type SourcesConfig struct {
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// ExtractConfig mirrors extractor.Options in file form
type ExtractConfig struct {
	// ClockFragments are case-insensitive name fragments that mark a clock port
	ClockFragments []string `json:"clockFragments,omitempty" yaml:"clockFragments,omitempty"`

	// ResetFragments are case-insensitive name fragments that mark a reset port
	ResetFragments []string `json:"resetFragments,omitempty" yaml:"resetFragments,omitempty"`

	// MatchMode is "formal", "actual" or "either"
	MatchMode string `json:"matchMode,omitempty" yaml:"matchMode,omitempty"`

	// PerLine is "first" or "all"
	PerLine string `json:"perLine,omitempty" yaml:"perLine,omitempty"`
}

// LintConfig contains rule check configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty" yaml:"rules,omitempty"`

	// PolicyDir holds additional *.rego files (relative to the config file's root if not absolute)
	PolicyDir string `json:"policyDir,omitempty" yaml:"policyDir,omitempty"`

	// IgnorePatterns is a list of file patterns to skip entirely
	IgnorePatterns []string `json:"ignorePatterns,omitempty" yaml:"ignorePatterns,omitempty"`
}

// ReportConfig controls the scan log file
type ReportConfig struct {
	LogFile string `json:"logFile,omitempty" yaml:"logFile,omitempty"`

	// Encoding is "utf-8" or "utf-16"
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
}

// CacheConfig controls incremental indexing cache behavior
type CacheConfig struct {
	// Enabled turns on incremental cache usage
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// MemoryEntries bounds the in-process LRU in front of the disk cache
	MemoryEntries int `json:"memoryEntries,omitempty" yaml:"memoryEntries,omitempty"`
}

// AnalysisConfig contains analysis options
type AnalysisConfig struct {
	// MaxParallelFiles limits concurrent file processing (0 = auto)
	MaxParallelFiles int `json:"maxParallelFiles,omitempty" yaml:"maxParallelFiles,omitempty"`

	// Validate checks the fact tables against the CUE contract
	Validate *bool `json:"validate,omitempty" yaml:"validate,omitempty"`

	// Cache controls incremental indexing cache behavior
	Cache CacheConfig `json:"cache" yaml:"cache"`
}

const (
	defaultCacheDir      = ".svpar_cache"
	defaultMemoryEntries = 512
	defaultEncoding      = "utf-8"
)

// DefaultIncludes are the source patterns used when none are configured
var DefaultIncludes = []string{"**/*.v", "**/*.sv", "**/*.vh", "**/*.svh"}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	vocab := extractor.DefaultVocabulary()
	return &Config{
		Sources: SourcesConfig{
			Include: append([]string(nil), DefaultIncludes...),
			Exclude: []string{},
		},
		Extract: ExtractConfig{
			ClockFragments: vocab.ClockFragments,
			ResetFragments: vocab.ResetFragments,
			MatchMode:      string(extractor.MatchFormal),
			PerLine:        string(extractor.PerLineFirst),
		},
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
		},
		Report: ReportConfig{
			Encoding: defaultEncoding,
		},
		Analysis: AnalysisConfig{
			MaxParallelFiles: 0, // auto
			Validate:         boolPtr(true),
			Cache: CacheConfig{
				Enabled:       boolPtr(true),
				Dir:           defaultCacheDir,
				MemoryEntries: defaultMemoryEntries,
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

var configNames = []string{"svpar.json", ".svpar.json", "svpar.yaml", ".svpar.yaml", "svpar.yml", ".svpar.yml"}

// Load finds and loads the configuration file
// Search order:
//  1. ./svpar.{json,yaml} and the dot-prefixed variants (current working directory)
//  2. the same names under rootPath (if it is a directory other than cwd)
//  3. ~/.config/svpar/config.json, then config.yaml
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	var searchPaths []string
	for _, name := range configNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			for _, name := range configNames {
				searchPaths = append(searchPaths, filepath.Join(rootPath, name))
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".config", "svpar")
		searchPaths = append(searchPaths, filepath.Join(dir, "config.json"), filepath.Join(dir, "config.yaml"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFile loads configuration from a specific file. The format follows the
// extension: .yaml/.yml is YAML, anything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if len(c.Sources.Include) == 0 {
		c.Sources.Include = append([]string(nil), DefaultIncludes...)
	}

	vocab := extractor.DefaultVocabulary()
	if len(c.Extract.ClockFragments) == 0 {
		c.Extract.ClockFragments = vocab.ClockFragments
	}
	if len(c.Extract.ResetFragments) == 0 {
		c.Extract.ResetFragments = vocab.ResetFragments
	}
	if c.Extract.MatchMode == "" {
		c.Extract.MatchMode = string(extractor.MatchFormal)
	}
	if c.Extract.PerLine == "" {
		c.Extract.PerLine = string(extractor.PerLineFirst)
	}

	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}

	if c.Report.Encoding == "" {
		c.Report.Encoding = defaultEncoding
	}

	if c.Analysis.Validate == nil {
		c.Analysis.Validate = boolPtr(true)
	}
	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = defaultCacheDir
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(true)
	}
	if c.Analysis.Cache.MemoryEntries <= 0 {
		c.Analysis.Cache.MemoryEntries = defaultMemoryEntries
	}
}

// check rejects values that would otherwise fail deep inside a scan.
func (c *Config) check() error {
	if _, err := c.ExtractorOptions(); err != nil {
		return err
	}
	for _, p := range append(append([]string{}, c.Sources.Include...), c.Sources.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid source pattern: %s", p)
		}
	}
	switch strings.ToLower(c.Report.Encoding) {
	case "utf-8", "utf8", "utf-16", "utf16":
	default:
		return fmt.Errorf("unknown report encoding %q", c.Report.Encoding)
	}
	for rule, sev := range c.Lint.Rules {
		switch sev {
		case "off", "info", "warning", "error":
		default:
			return fmt.Errorf("rule %s: unknown severity %q", rule, sev)
		}
	}
	return nil
}

// Save writes the configuration to a file, as YAML when the extension says so
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ExtractorOptions converts the extract section into extractor options
func (c *Config) ExtractorOptions() (extractor.Options, error) {
	match, err := extractor.ParseMatchMode(c.Extract.MatchMode)
	if err != nil {
		return extractor.Options{}, err
	}
	perLine, err := extractor.ParsePerLine(c.Extract.PerLine)
	if err != nil {
		return extractor.Options{}, err
	}
	opts := extractor.DefaultOptions()
	opts.Match = match
	opts.PerLine = perLine
	if len(c.Extract.ClockFragments) > 0 {
		opts.Vocabulary.ClockFragments = c.Extract.ClockFragments
	}
	if len(c.Extract.ResetFragments) > 0 {
		opts.Vocabulary.ResetFragments = c.Extract.ResetFragments
	}
	return opts, nil
}

// CacheEnabled reports whether the incremental cache is on
func (c *Config) CacheEnabled() bool {
	return c.Analysis.Cache.Enabled == nil || *c.Analysis.Cache.Enabled
}

// ValidateEnabled reports whether fact tables are checked against the CUE contract
func (c *Config) ValidateEnabled() bool {
	return c.Analysis.Validate == nil || *c.Analysis.Validate
}

// RuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) RuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// ShouldIgnoreFile checks if a file should be skipped entirely. Patterns are
// tried against the full path and the base name.
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	slashed := filepath.ToSlash(filePath)
	for _, pattern := range c.Lint.IgnorePatterns {
		if matched, _ := doublestar.Match(pattern, slashed); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
	}
	return false
}
