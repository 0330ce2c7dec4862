package indexer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/svpar/internal/facts"
)

// Dependents maps a file to the set of files that instantiate a module it
// declares. Self edges are dropped.
type Dependents map[string]map[string]bool

// BuildDependents derives the instantiation graph from resolved bindings.
func BuildDependents(tables facts.Tables) Dependents {
	graph := make(Dependents)
	for _, b := range tables.Bindings {
		if !b.Resolved || b.TargetFile == "" || b.TargetFile == b.File {
			continue
		}
		if graph[b.TargetFile] == nil {
			graph[b.TargetFile] = make(map[string]bool)
		}
		graph[b.TargetFile][b.File] = true
	}
	return graph
}

// ImpactReport lists the files affected by a change to Root, one BFS level
// per slice, each level sorted.
type ImpactReport struct {
	Root   string     `json:"root"`
	Levels [][]string `json:"levels"`
}

// Impact walks the dependents of root breadth first.
func (d Dependents) Impact(root string) ImpactReport {
	visited := map[string]bool{root: true}
	frontier := []string{root}
	var levels [][]string

	for len(frontier) > 0 {
		var next []string
		for _, f := range frontier {
			for dep := range d[f] {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				next = append(next, dep)
			}
		}
		if len(next) == 0 {
			break
		}
		sort.Strings(next)
		levels = append(levels, next)
		frontier = next
	}

	return ImpactReport{Root: root, Levels: levels}
}

// Files flattens the report: root first, then every level in order.
func (r ImpactReport) Files() []string {
	out := []string{r.Root}
	for _, level := range r.Levels {
		out = append(out, level...)
	}
	return out
}

func (r ImpactReport) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s\n", r.Root))
	for i, level := range r.Levels {
		b.WriteString(fmt.Sprintf("    level %d (%d): %s\n", i+1, len(level), strings.Join(level, ", ")))
	}
	return b.String()
}
