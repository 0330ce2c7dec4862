package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/robert-at-pretension-io/svpar/internal/extractor"
)

const manifestSchema = "svpar-facts-cache-2"

// manifestFile ties a source path to the content it had when extracted.
type manifestFile struct {
	ContentHash string `json:"content_hash"`
	Fingerprint string `json:"fingerprint"`
}

type cacheManifest struct {
	Schema string                  `json:"schema"`
	Files  map[string]manifestFile `json:"files"`
}

func emptyManifest() cacheManifest {
	return cacheManifest{Schema: manifestSchema, Files: make(map[string]manifestFile)}
}

type memoryEntry struct {
	contentHash string
	facts       extractor.FileFacts
}

// factsCache is a content-addressed store of extracted facts. Objects are
// named by content hash and extractor fingerprint, so files with identical
// text share one object; the manifest maps each path to its object. Facts
// carry no path-specific fields apart from File, which Get rewrites.
//
// An LRU keyed by path sits in front of the disk for repeated runs in one
// process.
type factsCache struct {
	dir         string
	fingerprint string

	mu       sync.Mutex
	manifest cacheManifest
	memory   *lru.Cache[string, memoryEntry]
}

func newFactsCache(dir, fingerprint string, memoryEntries int) (*factsCache, error) {
	if memoryEntries <= 0 {
		memoryEntries = 512
	}
	memory, err := lru.New[string, memoryEntry](memoryEntries)
	if err != nil {
		return nil, fmt.Errorf("memory cache: %w", err)
	}
	return &factsCache{
		dir:         dir,
		fingerprint: fingerprint,
		manifest:    emptyManifest(),
		memory:      memory,
	}, nil
}

func (c *factsCache) manifestPath() string {
	return filepath.Join(c.dir, "manifest.json")
}

func (c *factsCache) objectsDir() string {
	return filepath.Join(c.dir, "objects")
}

// objectPath shards objects by the first byte of the content hash.
func (c *factsCache) objectPath(contentHash, fingerprint string) string {
	name := contentHash + "-" + shortHash(fingerprint) + ".json"
	shard := "00"
	if len(contentHash) >= 2 {
		shard = contentHash[:2]
	}
	return filepath.Join(c.objectsDir(), shard, name)
}

// Load reads the manifest. A missing manifest or one written under another
// schema starts the cache empty.
func (c *factsCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.manifestPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache manifest: %w", err)
	}
	var m cacheManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse cache manifest: %w", err)
	}
	if m.Schema != manifestSchema {
		c.manifest = emptyManifest()
		return nil
	}
	if m.Files == nil {
		m.Files = make(map[string]manifestFile)
	}
	c.manifest = m
	return nil
}

func (c *factsCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.manifestPath(), c.manifest)
}

// Get returns the facts recorded for filePath when it still has contentHash
// and was extracted under the cache's fingerprint.
func (c *factsCache) Get(filePath, contentHash string) (extractor.FileFacts, bool, error) {
	if m, ok := c.memory.Get(filePath); ok && m.contentHash == contentHash {
		return m.facts, true, nil
	}

	c.mu.Lock()
	entry, ok := c.manifest.Files[filePath]
	c.mu.Unlock()
	if !ok || entry.ContentHash != contentHash || entry.Fingerprint != c.fingerprint {
		return extractor.FileFacts{}, false, nil
	}

	data, err := os.ReadFile(c.objectPath(contentHash, c.fingerprint))
	if err != nil {
		return extractor.FileFacts{}, false, fmt.Errorf("read cached facts: %w", err)
	}
	var ff extractor.FileFacts
	if err := json.Unmarshal(data, &ff); err != nil {
		return extractor.FileFacts{}, false, fmt.Errorf("parse cached facts: %w", err)
	}
	ff.File = filePath
	c.memory.Add(filePath, memoryEntry{contentHash: contentHash, facts: ff})
	return ff, true, nil
}

// Put records facts for filePath. The object is written once per content.
func (c *factsCache) Put(filePath, contentHash string, ff extractor.FileFacts) error {
	c.memory.Add(filePath, memoryEntry{contentHash: contentHash, facts: ff})

	obj := c.objectPath(contentHash, c.fingerprint)
	if _, err := os.Stat(obj); err != nil {
		if err := writeJSONAtomic(obj, ff); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.manifest.Files[filePath] = manifestFile{ContentHash: contentHash, Fingerprint: c.fingerprint}
	c.mu.Unlock()
	return nil
}

// Prune forgets paths missing from keep and removes objects no remaining
// path refers to.
func (c *factsCache) Prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := make(map[string]manifestFile)
	for path, entry := range c.manifest.Files {
		if keep[path] {
			continue
		}
		dropped[path] = entry
		delete(c.manifest.Files, path)
		c.memory.Remove(path)
	}

	live := make(map[string]bool, len(c.manifest.Files))
	for _, entry := range c.manifest.Files {
		live[c.objectPath(entry.ContentHash, entry.Fingerprint)] = true
	}
	for _, entry := range dropped {
		if obj := c.objectPath(entry.ContentHash, entry.Fingerprint); !live[obj] {
			_ = os.Remove(obj)
		}
	}
}

func writeJSONAtomic(path string, v any) (err error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp cache file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:6])
}
