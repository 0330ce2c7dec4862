// Package policy evaluates rego rule checks against the relational fact tables.
package policy

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/robert-at-pretension-io/svpar/internal/facts"
)

//go:embed checks.rego
var builtinChecks string

const (
	violationsQuery = "data.svpar.checks.all_violations"
	summaryQuery    = "data.svpar.checks.summary"
)

// Engine evaluates OPA policies against svpar facts
type Engine struct {
	queries     map[string]rego.PreparedEvalQuery
	rules       map[string]string
	fingerprint string
}

// Options configures an Engine.
type Options struct {
	// PolicyDir holds extra *.rego files in package svpar.checks. Optional.
	PolicyDir string
	// Rules maps a rule name to a severity or "off".
	Rules map[string]string
}

// Violation represents a policy violation
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Summary provides aggregate counts
type Summary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// HasErrors reports whether any error-severity violation was found.
func (r *Result) HasErrors() bool {
	return r != nil && r.Summary.Errors > 0
}

// New creates a policy engine from the built-in checks plus any policy files
// in opts.PolicyDir.
func New(ctx context.Context, opts Options) (*Engine, error) {
	engine := &Engine{
		queries: make(map[string]rego.PreparedEvalQuery),
		rules:   opts.Rules,
	}

	hasher := sha256.New()
	hasher.Write([]byte(builtinChecks))
	modules := []func(*rego.Rego){rego.Module("checks.rego", builtinChecks)}
	if opts.PolicyDir != "" {
		files, err := filepath.Glob(filepath.Join(opts.PolicyDir, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("finding policy files: %w", err)
		}
		sort.Strings(files)
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f, err)
			}
			modules = append(modules, rego.Module(f, string(content)))
			hasher.Write([]byte{0})
			hasher.Write([]byte(filepath.Base(f)))
			hasher.Write([]byte{0})
			hasher.Write(content)
		}
	}
	rulesJSON, _ := json.Marshal(opts.Rules) // map keys marshal sorted
	hasher.Write([]byte{0})
	hasher.Write(rulesJSON)
	engine.fingerprint = hex.EncodeToString(hasher.Sum(nil))

	for name, q := range map[string]string{"violations": violationsQuery, "summary": summaryQuery} {
		args := append(append([]func(*rego.Rego){}, modules...), rego.Query(q))
		query, err := rego.New(args...).PrepareForEval(ctx)
		if err != nil {
			return nil, fmt.Errorf("preparing %s query: %w", name, err)
		}
		engine.queries[name] = query
	}

	return engine, nil
}

// Fingerprint identifies the loaded policy modules and rule overrides. Two
// engines with equal fingerprints return equal results for equal tables.
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

// Evaluate runs the policies against the fact tables. Violations are sorted
// by file, line and rule.
func (e *Engine) Evaluate(ctx context.Context, tables facts.Tables) (*Result, error) {
	inputMap, err := structToMap(tables)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}
	rules := make(map[string]interface{}, len(e.rules))
	for k, v := range e.rules {
		rules[k] = v
	}
	inputMap["config"] = map[string]interface{}{"rules": rules}

	result := &Result{Violations: []Violation{}}

	rs, err := e.queries["violations"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		violations, _ := rs[0].Expressions[0].Value.([]interface{})
		for _, v := range violations {
			vmap, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			result.Violations = append(result.Violations, Violation{
				Rule:     getString(vmap, "rule"),
				Severity: getString(vmap, "severity"),
				File:     getString(vmap, "file"),
				Line:     getInt(vmap, "line"),
				Message:  getString(vmap, "message"),
			})
		}
	}
	sort.SliceStable(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if smap, ok := rs[0].Expressions[0].Value.(map[string]interface{}); ok {
			result.Summary = Summary{
				Total:    getInt(smap, "total"),
				Errors:   getInt(smap, "errors"),
				Warnings: getInt(smap, "warnings"),
				Info:     getInt(smap, "info"),
			}
		}
	}

	return result, nil
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
