package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/svpar/internal/extractor"
	"github.com/robert-at-pretension-io/svpar/internal/policy"
)

const source = `module top #(
  parameter PAR1 = 4,
  parameter PAR2 [2] = '{2,2}
) (
  input logic clk,
  output logic [7:0] q
);
  localparam PAR3 [3] = '{1,2,3};
  sub #(
    .PAR1(PAR3[1])
  ) u_sub ();
endmodule
`

func sampleFacts(t *testing.T) []extractor.FileFacts {
	t.Helper()
	ff, err := extractor.New(extractor.Options{}).ExtractReader("rtl/top.sv", strings.NewReader(source))
	require.NoError(t, err)
	return []extractor.FileFacts{ff}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleFacts(t), Options{}))
	out := buf.String()

	for _, want := range []string{
		"svpar log:",
		"file: rtl/top.sv",
		"modules: top",
		"2 header parameter(s) found:",
		"1 body parameter(s) found:",
		"2 port(s) found:",
		"1 inherited parameter(s) found:",
		"PAR3 (local)",
		"'{1, 2, 3}",
		"clock",
		"[8]",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "diagnostic(s)")
	assert.NotContains(t, out, "\x1b[", "plain rendering carries no escape codes")

	header := strings.Index(out, "header parameter(s)")
	body := strings.Index(out, "body parameter(s)")
	ports := strings.Index(out, "port(s) found")
	inherited := strings.Index(out, "inherited parameter(s)")
	assert.True(t, header < body && body < ports && ports < inherited, "sections in order")
}

func TestRenderDiagnostics(t *testing.T) {
	ff, err := extractor.New(extractor.Options{}).ExtractReader("bad.sv", strings.NewReader("module bad;\n  parameter P [0:3] = '{1};\nendmodule\n"))
	require.NoError(t, err)
	require.NotEmpty(t, ff.Diagnostics)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, []extractor.FileFacts{ff}, Options{}))
	assert.Contains(t, buf.String(), "1 diagnostic(s):")
	assert.Contains(t, buf.String(), extractor.DiagnosticMalformed)
}

func TestWriteLogEncodings(t *testing.T) {
	files := sampleFacts(t)
	var plain bytes.Buffer
	require.NoError(t, Render(&plain, files, Options{}))

	dir := t.TempDir()

	utf16Path := filepath.Join(dir, "parser_log.txt")
	require.NoError(t, WriteLog(utf16Path, "utf-16", files))
	raw, err := os.ReadFile(utf16Path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 2)
	assert.Equal(t, []byte{0xFF, 0xFE}, raw[:2], "little endian BOM")
	decoded, err := ReadLog(utf16Path)
	require.NoError(t, err)
	assert.Equal(t, plain.String(), decoded)

	utf8Path := filepath.Join(dir, "parser_log_utf8.txt")
	require.NoError(t, WriteLog(utf8Path, "utf-8", files))
	raw, err = os.ReadFile(utf8Path)
	require.NoError(t, err)
	assert.Equal(t, plain.String(), string(raw))
	decoded, err = ReadLog(utf8Path)
	require.NoError(t, err)
	assert.Equal(t, plain.String(), decoded)

	assert.Error(t, WriteLog(filepath.Join(dir, "x.txt"), "latin-1", files))
}

func TestRenderViolations(t *testing.T) {
	result := &policy.Result{
		Violations: []policy.Violation{
			{Rule: "duplicate_declaration", Severity: "error", File: "a.sv", Line: 3, Message: "parameter P already declared"},
			{Rule: "unbound_target", Severity: "info", File: "a.sv", Line: 9, Message: "binding targets ext"},
		},
		Summary: policy.Summary{Total: 2, Errors: 1, Info: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderViolations(&buf, result, Options{Color: true}))
	out := buf.String()
	assert.Contains(t, out, "duplicate_declaration")
	assert.Contains(t, out, "a.sv:9")
	assert.Contains(t, out, "2 violation(s): 1 error(s), 0 warning(s), 1 info")

	buf.Reset()
	require.NoError(t, RenderViolations(&buf, nil, Options{}))
	assert.Equal(t, "0 violation(s): 0 error(s), 0 warning(s), 0 info\n", buf.String())
}
