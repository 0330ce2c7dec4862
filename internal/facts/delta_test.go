package facts

import "testing"

func TestComputeDeltaAddsAndRemoves(t *testing.T) {
	prev := Tables{
		Modules: []ModuleRow{
			{Name: "a", File: "f.sv", Line: 1},
		},
		Parameters: []ParameterRow{
			{Module: "a", Name: "WIDTH", Default: "8", File: "f.sv", Line: 2},
		},
	}
	next := Tables{
		Modules: []ModuleRow{
			{Name: "b", File: "f.sv", Line: 1},
		},
		Parameters: []ParameterRow{
			{Module: "a", Name: "WIDTH", Default: "16", File: "f.sv", Line: 2},
		},
	}

	delta := ComputeDelta(prev, next)

	if len(delta.Added.Modules) != 1 || delta.Added.Modules[0].Name != "b" {
		t.Fatalf("expected module b added, got %+v", delta.Added.Modules)
	}
	if len(delta.Removed.Modules) != 1 || delta.Removed.Modules[0].Name != "a" {
		t.Fatalf("expected module a removed, got %+v", delta.Removed.Modules)
	}
	if len(delta.Added.Parameters) != 1 || delta.Added.Parameters[0].Default != "16" {
		t.Fatalf("expected parameter with new default added, got %+v", delta.Added.Parameters)
	}
	if len(delta.Removed.Parameters) != 1 || delta.Removed.Parameters[0].Default != "8" {
		t.Fatalf("expected parameter with old default removed, got %+v", delta.Removed.Parameters)
	}
	if delta.Empty() {
		t.Fatal("delta should not be empty")
	}
}

func TestComputeDeltaIdentical(t *testing.T) {
	tables := Tables{
		Bindings: []BindingRow{{Formal: "PAR3", Actual: "PAR4[1][1]", File: "f.sv", Line: 9}},
	}
	delta := ComputeDelta(tables, tables)
	if !delta.Empty() {
		t.Fatalf("expected empty delta, got %+v", delta)
	}
	if delta.Added.Bindings == nil || delta.Removed.Bindings == nil {
		t.Fatal("empty relations should be non-nil slices")
	}
}
