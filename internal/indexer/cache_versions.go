package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/robert-at-pretension-io/svpar/internal/config"
	"github.com/robert-at-pretension-io/svpar/internal/extractor"
)

// factsSchemaVersion changes whenever FileFacts or its nested types change
// shape, invalidating every cached entry.
const factsSchemaVersion = "svpar-facts-1"

func cacheEnabled(cfg *config.Config) bool {
	return cfg != nil && cfg.CacheEnabled()
}

// baseDir is the directory relative config paths hang off: rootPath itself,
// or its parent when rootPath is a file.
func baseDir(rootPath string) string {
	if info, err := os.Stat(rootPath); err == nil && !info.IsDir() {
		return filepath.Dir(rootPath)
	}
	return rootPath
}

func resolveCacheDir(rootPath string, cfg *config.Config) string {
	cacheDir := cfg.Analysis.Cache.Dir
	if cacheDir == "" {
		cacheDir = ".svpar_cache"
	}
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(baseDir(rootPath), cacheDir)
	}
	return cacheDir
}

// extractorFingerprint hashes the extraction settings with the schema
// version. Two runs with equal fingerprints produce identical facts for
// identical content.
func extractorFingerprint(opts extractor.Options) string {
	sum := sha256.Sum256([]byte(factsSchemaVersion + "\x00" + opts.Fingerprint()))
	return hex.EncodeToString(sum[:])
}
