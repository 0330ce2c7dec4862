package indexer

import (
	"fmt"
	"os"

	"github.com/robert-at-pretension-io/svpar/internal/config"
)

// ClearCache removes the cache directory used for rootPath and returns it.
func ClearCache(rootPath string, cfg *config.Config) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("clear cache: config is nil")
	}
	cacheDir := resolveCacheDir(rootPath, cfg)
	if err := os.RemoveAll(cacheDir); err != nil {
		return cacheDir, fmt.Errorf("remove cache: %w", err)
	}
	return cacheDir, nil
}
