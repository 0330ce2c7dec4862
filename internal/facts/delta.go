package facts

// Delta holds the rows one snapshot of the tables gained and lost relative
// to an earlier one.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta compares two snapshots row by row. Rows are equal when every
// field is equal, so a parameter whose default changed shows up as one
// removal and one addition.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   subtract(next, prev),
		Removed: subtract(prev, next),
	}
}

// subtract returns the rows of a that are absent from b.
func subtract(a, b Tables) Tables {
	return Tables{
		Files:       missing(a.Files, b.Files),
		Modules:     missing(a.Modules, b.Modules),
		Parameters:  missing(a.Parameters, b.Parameters),
		Ports:       missing(a.Ports, b.Ports),
		Bindings:    missing(a.Bindings, b.Bindings),
		Diagnostics: missing(a.Diagnostics, b.Diagnostics),
	}
}

func missing[T comparable](rows, against []T) []T {
	present := make(map[T]struct{}, len(against))
	for _, r := range against {
		present[r] = struct{}{}
	}
	out := []T{}
	for _, r := range rows {
		if _, ok := present[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func emptyTables() Tables {
	return Tables{
		Files:       []FileRow{},
		Modules:     []ModuleRow{},
		Parameters:  []ParameterRow{},
		Ports:       []PortRow{},
		Bindings:    []BindingRow{},
		Diagnostics: []DiagnosticRow{},
	}
}

// Empty reports whether the delta adds and removes nothing.
func (d Delta) Empty() bool {
	return d.Added.Len() == 0 && d.Removed.Len() == 0
}

// Len is the total number of rows across all relations.
func (t Tables) Len() int {
	return len(t.Files) + len(t.Modules) + len(t.Parameters) + len(t.Ports) + len(t.Bindings) + len(t.Diagnostics)
}
