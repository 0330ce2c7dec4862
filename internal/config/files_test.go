package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", f, err)
		}
		if err := os.WriteFile(path, []byte("// "+f+"\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
}

func relAll(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatalf("rel %s: %v", f, err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestResolveFilesDefaultIncludes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"top.sv",
		"rtl/core.v",
		"rtl/pkg/defs.svh",
		"rtl/inc/macros.vh",
		"docs/readme.md",
		"rtl/core.vhd",
	)

	files, err := DefaultConfig().ResolveFiles(root)
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	want := []string{"rtl/core.v", "rtl/inc/macros.vh", "rtl/pkg/defs.svh", "top.sv"}
	if got := relAll(t, root, files); !equalStrings(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
}

func TestResolveFilesExcludeSkipsDirectories(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"rtl/core.sv",
		"sim/tb_core.sv",
		"third_party/ip/fifo.sv",
		"rtl/core_old.sv",
	)

	cfg := DefaultConfig()
	cfg.Sources.Exclude = []string{"third_party", "sim/**"}
	cfg.Lint.IgnorePatterns = []string{"*_old.sv"}

	files, err := cfg.ResolveFiles(root)
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	want := []string{"rtl/core.sv"}
	if got := relAll(t, root, files); !equalStrings(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
}

func TestResolveFilesCustomIncludes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "rtl/a.sv", "rtl/b.v", "gen/c.sv")

	cfg := DefaultConfig()
	cfg.Sources.Include = []string{"rtl/*.sv"}

	files, err := cfg.ResolveFiles(root)
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	want := []string{"rtl/a.sv"}
	if got := relAll(t, root, files); !equalStrings(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
}

func TestResolveFilesSingleFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "notes.txt")
	path := filepath.Join(root, "notes.txt")

	files, err := DefaultConfig().ResolveFiles(path)
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	if len(files) != 1 || files[0] != path {
		t.Fatalf("expected the file itself, got %v", files)
	}
}

func TestResolveFilesErrors(t *testing.T) {
	if _, err := DefaultConfig().ResolveFiles(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}

	cfg := DefaultConfig()
	cfg.Sources.Include = []string{"rtl/[a-"}
	if _, err := cfg.ResolveFiles(t.TempDir()); err == nil {
		t.Fatal("expected error for invalid include pattern")
	}
}
