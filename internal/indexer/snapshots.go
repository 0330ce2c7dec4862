package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/robert-at-pretension-io/svpar/internal/facts"
	"github.com/robert-at-pretension-io/svpar/internal/policy"
)

// Snapshots are whole-run results stored next to the facts cache. Each is
// valid only for the schema and key it was written with.
const (
	tablesSnapshot = "fact_tables.json"
	policySnapshot = "policy_result.json"

	tablesSnapshotSchema = "svpar-tables-1"
	policySnapshotSchema = "svpar-policy-1"
)

type snapshot[T any] struct {
	Schema string `json:"schema"`
	Key    string `json:"key"`
	Body   T      `json:"body"`
}

// readSnapshot returns the body stored at path when its schema and key
// match. Absent or stale snapshots are not errors.
func readSnapshot[T any](path, schema, key string) (T, bool, error) {
	var zero T
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var s snapshot[T]
	if err := json.Unmarshal(data, &s); err != nil {
		return zero, false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if s.Schema != schema || s.Key != key {
		return zero, false, nil
	}
	return s.Body, true, nil
}

func writeSnapshot[T any](path, schema, key string, body T) error {
	if err := writeJSONAtomic(path, snapshot[T]{Schema: schema, Key: key, Body: body}); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// The previous run's tables, keyed by extractor fingerprint, feed the delta.
func loadFactTablesCache(dir, fingerprint string) (facts.Tables, bool, error) {
	return readSnapshot[facts.Tables](filepath.Join(dir, tablesSnapshot), tablesSnapshotSchema, fingerprint)
}

func saveFactTablesCache(dir, fingerprint string, tables facts.Tables) error {
	return writeSnapshot(filepath.Join(dir, tablesSnapshot), tablesSnapshotSchema, fingerprint, tables)
}

func loadPolicyResult(dir, key string) (policy.Result, bool, error) {
	return readSnapshot[policy.Result](filepath.Join(dir, policySnapshot), policySnapshotSchema, key)
}

func savePolicyResult(dir, key string, result policy.Result) error {
	return writeSnapshot(filepath.Join(dir, policySnapshot), policySnapshotSchema, key, result)
}

func clearPolicyResult(dir string) error {
	err := os.Remove(filepath.Join(dir, policySnapshot))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove policy result: %w", err)
	}
	return nil
}

// policyKey changes with the engine's rules or with any table row.
func policyKey(engine *policy.Engine, tables facts.Tables) (string, error) {
	data, err := json.Marshal(tables)
	if err != nil {
		return "", fmt.Errorf("marshal policy key: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(engine.Fingerprint()))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
