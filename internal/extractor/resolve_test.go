package extractor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robert-at-pretension-io/svpar/internal/dimension"
)

var knownParams = []string{"PAR1", "PAR2", "PAR3", "PAR4", "PAR5"}

func TestResolveLineInheritance(t *testing.T) {
	r := NewResolver(knownParams, MatchFormal, PerLineFirst)
	got := r.ResolveLine(".PAR3 ( PAR4 [1][1] )", 10)
	want := []Binding{{
		Line:            10,
		FormalName:      "PAR3",
		FormalDimension: dimension.Scalar(),
		ActualReference: "PAR4[1][1]",
		ActualName:      "PAR4",
		ActualIndex:     dimension.Dimension{dimension.Lit(1), dimension.Lit(1)},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveLine mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveLineSkipsDisqualifiedLines(t *testing.T) {
	lines := []string{
		"parameter PAR3 = .PAR4(PAR1)",
		"localparam .PAR1(PAR2)",
		".PAR1(PAR2);",
		".PAR1(a <= b)",
		".PAR1(a > b)",
		"assign x = .PAR1(PAR2)",
	}
	for i, line := range lines {
		r := NewResolver(knownParams, MatchEither, PerLineAll)
		if got := r.ResolveLine(line, i+1); len(got) != 0 {
			t.Errorf("ResolveLine(%q) = %v, want no bindings", line, got)
		}
	}
}

func TestResolveLinePerLinePolicy(t *testing.T) {
	line := ".PAR1(X), .PAR2(Y[2])"

	first := NewResolver(knownParams, MatchFormal, PerLineFirst).ResolveLine(line, 1)
	if len(first) != 1 || first[0].FormalName != "PAR1" {
		t.Fatalf("first policy: expected one PAR1 binding, got %v", first)
	}

	all := NewResolver(knownParams, MatchFormal, PerLineAll).ResolveLine(line, 1)
	if len(all) != 2 {
		t.Fatalf("all policy: expected two bindings, got %v", all)
	}
	if all[1].ActualName != "Y" || !all[1].ActualIndex.Equal(dimension.Dimension{dimension.Lit(2)}) {
		t.Fatalf("unexpected second binding %+v", all[1])
	}
}

func TestResolveLineDuplicateReferences(t *testing.T) {
	line := ".PAR3(PAR4), .PAR3(PAR4)"
	for _, policy := range []PerLine{PerLineFirst, PerLineAll} {
		r := NewResolver(knownParams, MatchFormal, policy)
		if got := r.ResolveLine(line, 7); len(got) != 1 {
			t.Errorf("%s: expected one binding, got %d", policy, len(got))
		}
	}
}

func TestResolveLineSeenOnce(t *testing.T) {
	r := NewResolver(knownParams, MatchFormal, PerLineFirst)
	if got := r.ResolveLine(".PAR1(X)", 3); len(got) != 1 {
		t.Fatalf("expected one binding, got %v", got)
	}
	if got := r.ResolveLine(".PAR2(Y)", 3); len(got) != 0 {
		t.Fatalf("line 3 already recorded, got %v", got)
	}
	fresh := NewResolver(knownParams, MatchFormal, PerLineFirst)
	if got := fresh.ResolveLine(".PAR2(Y)", 3); len(got) != 1 {
		t.Fatalf("new pass should record line 3 again, got %v", got)
	}
}

func TestResolveLineMatchModes(t *testing.T) {
	known := []string{"WIDTH"}
	line := ".DATA_W(WIDTH)"

	if got := NewResolver(known, MatchFormal, PerLineFirst).ResolveLine(line, 1); len(got) != 0 {
		t.Fatalf("formal mode should drop unknown formal, got %v", got)
	}
	for _, mode := range []MatchMode{MatchActual, MatchEither} {
		got := NewResolver(known, mode, PerLineFirst).ResolveLine(line, 1)
		if len(got) != 1 || got[0].FormalName != "DATA_W" || got[0].ActualReference != "WIDTH" {
			t.Fatalf("%s mode: unexpected bindings %v", mode, got)
		}
	}
}

func TestResolveLineFormalIndexAndEmptyActual(t *testing.T) {
	r := NewResolver(knownParams, MatchFormal, PerLineAll)
	got := r.ResolveLine(".PAR4[3](X), .PAR1()", 1)
	if len(got) != 1 {
		t.Fatalf("expected one binding, got %v", got)
	}
	if !got[0].FormalDimension.Equal(dimension.Dimension{dimension.Lit(3)}) {
		t.Fatalf("unexpected formal dimension %v", got[0].FormalDimension)
	}
}

func TestResolveTracksInstanceTarget(t *testing.T) {
	lines := []string{
		"sub #(",
		"  .PAR1(X),",
		") u_sub (",
		"  .clk(clk)",
		");",
		".PAR2(Y)",
		"other #(.PAR3(Z)) u_other (",
	}
	r := NewResolver(knownParams, MatchFormal, PerLineFirst)
	var got []Binding
	for i, line := range lines {
		got = append(got, r.ResolveLine(line, i+1)...)
	}

	targets := make([]string, len(got))
	for i, b := range got {
		targets[i] = b.FormalName + "@" + b.Target
	}
	want := []string{"PAR1@sub", "PAR2@", "PAR3@other"}
	if diff := cmp.Diff(want, targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
}

func TestParseModes(t *testing.T) {
	if m, err := ParseMatchMode(""); err != nil || m != MatchFormal {
		t.Fatalf("ParseMatchMode(\"\") = %q, %v", m, err)
	}
	if m, err := ParseMatchMode("Actual"); err != nil || m != MatchActual {
		t.Fatalf("ParseMatchMode(Actual) = %q, %v", m, err)
	}
	if _, err := ParseMatchMode("both"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if p, err := ParsePerLine("all"); err != nil || p != PerLineAll {
		t.Fatalf("ParsePerLine(all) = %q, %v", p, err)
	}
	if _, err := ParsePerLine("some"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
