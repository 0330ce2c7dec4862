package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/svpar/internal/extractor"
)

// Tables is the relational fact model for policy engines.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Files       []FileRow       `json:"files"`
	Modules     []ModuleRow     `json:"modules"`
	Parameters  []ParameterRow  `json:"parameters"`
	Ports       []PortRow       `json:"ports"`
	Bindings    []BindingRow    `json:"bindings"`
	Diagnostics []DiagnosticRow `json:"diagnostics"`
}

type FileRow struct {
	Path        string `json:"path"`
	Modules     int    `json:"modules"`
	Parameters  int    `json:"parameters"`
	Ports       int    `json:"ports"`
	Bindings    int    `json:"bindings"`
	Diagnostics int    `json:"diagnostics"`
}

type ModuleRow struct {
	Name string `json:"name"`
	File string `json:"file"`
	Line int    `json:"line"`
}

type ParameterRow struct {
	Module     string `json:"module"`
	Name       string `json:"name"`
	Scope      string `json:"scope"`
	Local      bool   `json:"local"`
	DataType   string `json:"data_type"`
	Signedness string `json:"signedness"`
	Width      string `json:"width"`
	Dimension  string `json:"dimension"`
	Default    string `json:"default"`
	Elements   int    `json:"elements"`
	OuterSize  int    `json:"outer_size"`
	File       string `json:"file"`
	Line       int    `json:"line"`
}

type PortRow struct {
	Module     string `json:"module"`
	Name       string `json:"name"`
	Direction  string `json:"direction"`
	DataType   string `json:"data_type"`
	Signedness string `json:"signedness"`
	Width      string `json:"width"`
	Array      string `json:"array"`
	Bits       int    `json:"bits"`
	Clock      bool   `json:"clock"`
	Reset      bool   `json:"reset"`
	File       string `json:"file"`
	Line       int    `json:"line"`
}

type BindingRow struct {
	Module      string `json:"module"`
	Target      string `json:"target"`
	Formal      string `json:"formal"`
	FormalIndex string `json:"formal_index"`
	Actual      string `json:"actual"`
	ActualName  string `json:"actual_name"`
	ActualIndex string `json:"actual_index"`
	Resolved    bool   `json:"resolved"`
	TargetFile  string `json:"target_file"`
	File        string `json:"file"`
	Line        int    `json:"line"`
}

type DiagnosticRow struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	File    string `json:"file"`
	Line    int    `json:"line"`
}

// BuildTables converts extractor FileFacts into a normalized relational model.
// Files are ordered by path; rows keep source order within a file.
func BuildTables(facts []extractor.FileFacts) Tables {
	tables := emptyTables()

	sorted := make([]extractor.FileFacts, len(facts))
	copy(sorted, facts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	// first declaration of a module name wins
	moduleFile := make(map[string]string)
	for _, f := range sorted {
		for _, m := range f.Modules {
			if _, ok := moduleFile[m.Name]; !ok {
				moduleFile[m.Name] = f.File
			}
		}
	}

	seenFiles := make(map[string]bool)
	for _, f := range sorted {
		if seenFiles[f.File] {
			continue
		}
		seenFiles[f.File] = true

		params := f.Parameters()
		tables.Files = append(tables.Files, FileRow{
			Path:        f.File,
			Modules:     len(f.Modules),
			Parameters:  len(params),
			Ports:       len(f.Ports),
			Bindings:    len(f.Bindings),
			Diagnostics: len(f.Diagnostics),
		})

		for _, m := range f.Modules {
			tables.Modules = append(tables.Modules, ModuleRow{
				Name: m.Name,
				File: f.File,
				Line: m.Line,
			})
		}

		for _, p := range params {
			row := ParameterRow{
				Module:     p.Module,
				Name:       p.Name,
				Scope:      string(p.Scope),
				Local:      p.Local,
				DataType:   p.DataType,
				Signedness: string(p.Signedness),
				Width:      p.Width.String(),
				Dimension:  p.Dimension.String(),
				File:       f.File,
				Line:       p.Line,
			}
			if p.Default != nil {
				row.Default = p.Default.String()
				row.Elements = p.Default.Len()
			}
			if n, ok := p.Dimension.Literal(0); ok {
				row.OuterSize = n
			}
			tables.Parameters = append(tables.Parameters, row)
		}
		for _, p := range f.Ports {
			row := PortRow{
				Module:     p.Module,
				Name:       p.Name,
				Direction:  string(p.Direction),
				DataType:   p.DataType,
				Signedness: string(p.Signedness),
				Width:      p.Width.String(),
				Array:      p.Dimension.String(),
				Clock:      p.Clock,
				Reset:      p.Reset,
				File:       f.File,
				Line:       p.Line,
			}
			if len(p.Width) == 1 {
				row.Bits, _ = p.Width.Literal(0)
			}
			tables.Ports = append(tables.Ports, row)
		}

		for _, b := range f.Bindings {
			targetFile := moduleFile[b.Target]
			tables.Bindings = append(tables.Bindings, BindingRow{
				Module:      b.Module,
				Target:      b.Target,
				Formal:      b.FormalName,
				FormalIndex: b.FormalDimension.String(),
				Actual:      b.ActualReference,
				ActualName:  b.ActualName,
				ActualIndex: b.ActualIndex.String(),
				Resolved:    targetFile != "",
				TargetFile:  targetFile,
				File:        f.File,
				Line:        b.Line,
			})
		}

		for _, d := range f.Diagnostics {
			tables.Diagnostics = append(tables.Diagnostics, DiagnosticRow{
				Kind:    d.Kind,
				Message: d.Message,
				File:    f.File,
				Line:    d.Line,
			})
		}
	}

	// header and body parameters interleave in source order
	sort.SliceStable(tables.Parameters, func(i, j int) bool {
		a, b := tables.Parameters[i], tables.Parameters[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})

	return tables
}

// ModuleFiles maps each module name to the file that declares it.
func (t Tables) ModuleFiles() map[string]string {
	out := make(map[string]string, len(t.Modules))
	for _, m := range t.Modules {
		if _, ok := out[m.Name]; !ok {
			out[m.Name] = m.File
		}
	}
	return out
}
