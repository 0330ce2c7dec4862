package facts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func twoFileTables() Tables {
	return Tables{
		Files:   []FileRow{{Path: "a.sv", Modules: 1}, {Path: "b.sv", Modules: 1}},
		Modules: []ModuleRow{{Name: "a", File: "a.sv", Line: 1}, {Name: "b", File: "b.sv", Line: 1}},
		Ports:   []PortRow{{Module: "a", Name: "clk", File: "a.sv"}, {Module: "b", Name: "rst", File: "b.sv"}},
		Bindings: []BindingRow{
			{Module: "b", Target: "a", Formal: "W", Resolved: true, TargetFile: "a.sv", File: "b.sv", Line: 5},
		},
		Diagnostics: []DiagnosticRow{{Kind: "malformed", File: "a.sv"}, {Kind: "malformed", File: "b.sv"}},
	}
}

func TestFilterTablesByFiles(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]bool
		want  Tables
	}{
		{
			name:  "one file",
			files: map[string]bool{"a.sv": true},
			want: Tables{
				Files:       []FileRow{{Path: "a.sv", Modules: 1}},
				Modules:     []ModuleRow{{Name: "a", File: "a.sv", Line: 1}},
				Parameters:  []ParameterRow{},
				Ports:       []PortRow{{Module: "a", Name: "clk", File: "a.sv"}},
				Bindings:    []BindingRow{},
				Diagnostics: []DiagnosticRow{{Kind: "malformed", File: "a.sv"}},
			},
		},
		{
			name:  "bindings follow the instantiating file",
			files: map[string]bool{"b.sv": true},
			want: Tables{
				Files:      []FileRow{{Path: "b.sv", Modules: 1}},
				Modules:    []ModuleRow{{Name: "b", File: "b.sv", Line: 1}},
				Parameters: []ParameterRow{},
				Ports:      []PortRow{{Module: "b", Name: "rst", File: "b.sv"}},
				Bindings: []BindingRow{
					{Module: "b", Target: "a", Formal: "W", Resolved: true, TargetFile: "a.sv", File: "b.sv", Line: 5},
				},
				Diagnostics: []DiagnosticRow{{Kind: "malformed", File: "b.sv"}},
			},
		},
		{
			name:  "no files",
			files: nil,
			want:  emptyTables(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterTablesByFiles(twoFileTables(), tt.files)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FilterTablesByFiles() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterDeltaByFiles(t *testing.T) {
	delta := ComputeDelta(Tables{Files: []FileRow{{Path: "b.sv"}}}, Tables{Files: []FileRow{{Path: "a.sv"}}})

	got := FilterDeltaByFiles(delta, map[string]bool{"a.sv": true})
	if diff := cmp.Diff([]FileRow{{Path: "a.sv"}}, got.Added.Files); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
	if len(got.Removed.Files) != 0 {
		t.Errorf("removed = %+v, want none", got.Removed.Files)
	}

	if !FilterDeltaByFiles(delta, map[string]bool{}).Empty() {
		t.Error("filtering by no files should leave an empty delta")
	}
}
