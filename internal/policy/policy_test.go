package policy

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/svpar/internal/extractor"
	"github.com/robert-at-pretension-io/svpar/internal/facts"
)

const checkedSource = `module top #(
  parameter PAR1 = 4,
  parameter PAR1 = 5,
  parameter PAR2 [3] = '{1,2}
) (
  input rst_n,
  output [W:0] q [DEPTH]
);
  ext #(
    .PAR1(PAR2)
  ) u_ext ();
endmodule
`

func tablesFor(t *testing.T, src string) facts.Tables {
	t.Helper()
	ff, err := extractor.New(extractor.Options{}).ExtractReader("rtl/top.sv", strings.NewReader(src))
	require.NoError(t, err)
	return facts.BuildTables([]extractor.FileFacts{ff})
}

func ruleLines(result *Result) []string {
	var out []string
	for _, v := range result.Violations {
		out = append(out, v.Rule+":"+v.Severity+"@"+strconv.Itoa(v.Line))
	}
	return out
}

func TestBuiltinChecks(t *testing.T) {
	ctx := context.Background()
	engine, err := New(ctx, Options{})
	require.NoError(t, err)

	result, err := engine.Evaluate(ctx, tablesFor(t, checkedSource))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"duplicate_declaration:error@3",
		"default_shape_mismatch:warning@4",
		"reset_without_clock:warning@6",
		"unresolved_dimension:info@7",
		"unbound_target:info@10",
	}, ruleLines(result))
	assert.Equal(t, Summary{Total: 5, Errors: 1, Warnings: 2, Info: 2}, result.Summary)
	assert.True(t, result.HasErrors())

	for _, v := range result.Violations {
		assert.Equal(t, "rtl/top.sv", v.File)
		assert.NotEmpty(t, v.Message)
	}
}

func TestRuleOverrides(t *testing.T) {
	ctx := context.Background()
	engine, err := New(ctx, Options{Rules: map[string]string{
		"unbound_target":      "off",
		"reset_without_clock": "error",
	}})
	require.NoError(t, err)

	result, err := engine.Evaluate(ctx, tablesFor(t, checkedSource))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"duplicate_declaration:error@3",
		"default_shape_mismatch:warning@4",
		"reset_without_clock:error@6",
		"unresolved_dimension:info@7",
	}, ruleLines(result))
	assert.Equal(t, Summary{Total: 4, Errors: 2, Warnings: 1, Info: 1}, result.Summary)
}

func TestCleanDesignHasNoViolations(t *testing.T) {
	src := `module sub #(
  parameter W = 8,
  parameter P [2] = '{1,2}
) (
  input clk,
  input rst,
  output [W-1:0] q
);
endmodule
`
	ctx := context.Background()
	engine, err := New(ctx, Options{})
	require.NoError(t, err)

	result, err := engine.Evaluate(ctx, tablesFor(t, src))
	require.NoError(t, err)
	assert.Empty(t, result.Violations)
	assert.False(t, result.HasErrors())
	assert.Equal(t, 0, result.Summary.Total)
}

func TestPolicyDirAddsRules(t *testing.T) {
	dir := t.TempDir()
	custom := `package svpar.checks

import rego.v1

raw contains v if {
	some m in input.modules
	m.name == "top"
	v := {"rule": "no_top_module", "file": m.file, "line": m.line, "message": "module named top"}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.rego"), []byte(custom), 0o600))

	ctx := context.Background()
	engine, err := New(ctx, Options{PolicyDir: dir})
	require.NoError(t, err)

	result, err := engine.Evaluate(ctx, tablesFor(t, checkedSource))
	require.NoError(t, err)
	require.NotEmpty(t, result.Violations)
	first := result.Violations[0]
	assert.Equal(t, "no_top_module", first.Rule)
	assert.Equal(t, "warning", first.Severity)
	assert.Equal(t, 1, first.Line)
}

func TestPolicyDirRejectsBrokenPolicy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.rego"), []byte("package svpar.checks\nraw contains"), 0o600))

	_, err := New(context.Background(), Options{PolicyDir: dir})
	assert.Error(t, err)
}

func TestFingerprintTracksRules(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, Options{})
	require.NoError(t, err)
	b, err := New(ctx, Options{})
	require.NoError(t, err)
	c, err := New(ctx, Options{Rules: map[string]string{"unbound_target": "off"}})
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}
