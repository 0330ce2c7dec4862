package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robert-at-pretension-io/svpar/internal/facts"
)

func TestImpactExpansion(t *testing.T) {
	tables := facts.Tables{
		Bindings: []facts.BindingRow{
			{Target: "leaf", Resolved: true, TargetFile: "leaf.sv", File: "mid_a.sv"},
			{Target: "leaf", Resolved: true, TargetFile: "leaf.sv", File: "mid_b.sv"},
			{Target: "mid_a", Resolved: true, TargetFile: "mid_a.sv", File: "top.sv"},
			{Target: "leaf", Resolved: true, TargetFile: "leaf.sv", File: "leaf.sv"},
			{Target: "ip", Resolved: false, File: "top.sv"},
		},
	}

	deps := BuildDependents(tables)
	assert.Len(t, deps, 2)
	assert.False(t, deps["leaf.sv"]["leaf.sv"], "self edges are dropped")

	report := deps.Impact("leaf.sv")
	assert.Equal(t, [][]string{{"mid_a.sv", "mid_b.sv"}, {"top.sv"}}, report.Levels)
	assert.Equal(t, []string{"leaf.sv", "mid_a.sv", "mid_b.sv", "top.sv"}, report.Files())
	assert.Contains(t, report.String(), "level 2 (1): top.sv")

	assert.Empty(t, deps.Impact("top.sv").Levels)
}

func TestImpactedFilesMergesRuns(t *testing.T) {
	prev := &Result{Tables: facts.Tables{Bindings: []facts.BindingRow{
		{Target: "sub", Resolved: true, TargetFile: "sub.sv", File: "old_top.sv"},
	}}}
	next := &Result{Tables: facts.Tables{Bindings: []facts.BindingRow{
		{Target: "sub", Resolved: true, TargetFile: "sub.sv", File: "top.sv"},
	}}}

	got := impactedFiles([]string{"sub.sv"}, prev, next)
	assert.Equal(t, []string{"sub.sv", "old_top.sv", "top.sv"}, got)
}
