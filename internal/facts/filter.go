package facts

// FilterTablesByFiles keeps the rows that belong to one of files. Bindings
// belong to the file holding the instantiation, not the target's file.
func FilterTablesByFiles(tables Tables, files map[string]bool) Tables {
	keep := func(file string) bool { return files[file] }
	return Tables{
		Files:       where(tables.Files, func(r FileRow) bool { return keep(r.Path) }),
		Modules:     where(tables.Modules, func(r ModuleRow) bool { return keep(r.File) }),
		Parameters:  where(tables.Parameters, func(r ParameterRow) bool { return keep(r.File) }),
		Ports:       where(tables.Ports, func(r PortRow) bool { return keep(r.File) }),
		Bindings:    where(tables.Bindings, func(r BindingRow) bool { return keep(r.File) }),
		Diagnostics: where(tables.Diagnostics, func(r DiagnosticRow) bool { return keep(r.File) }),
	}
}

// FilterDeltaByFiles applies FilterTablesByFiles to both sides of delta.
func FilterDeltaByFiles(delta Delta, files map[string]bool) Delta {
	return Delta{
		Added:   FilterTablesByFiles(delta.Added, files),
		Removed: FilterTablesByFiles(delta.Removed, files),
	}
}

func where[T any](rows []T, pred func(T) bool) []T {
	out := []T{}
	for _, r := range rows {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
