package extractor

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/svpar/internal/dimension"
	"github.com/robert-at-pretension-io/svpar/internal/lexer"
)

// Binding records an actual expression bound to a formal parameter at an
// instantiation site.
type Binding struct {
	Line            int                 `json:"line"`
	Module          string              `json:"module,omitempty"`
	Target          string              `json:"target,omitempty"`
	FormalName      string              `json:"formal_name"`
	FormalDimension dimension.Dimension `json:"formal_dimension"`
	ActualReference string              `json:"actual_reference"`
	ActualName      string              `json:"actual_name"`
	ActualIndex     dimension.Dimension `json:"actual_index"`
}

// MatchMode selects which side of a candidate must name a known parameter.
type MatchMode string

const (
	MatchFormal MatchMode = "formal"
	MatchActual MatchMode = "actual"
	MatchEither MatchMode = "either"
)

// ParseMatchMode maps a flag or config string to a MatchMode. Empty means formal.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchFormal:
		return MatchFormal, nil
	case MatchActual:
		return MatchActual, nil
	case MatchEither:
		return MatchEither, nil
	}
	return "", fmt.Errorf("unknown match mode %q (want formal, actual or either)", s)
}

// PerLine selects how many bindings one instantiation line may produce.
type PerLine string

const (
	PerLineFirst PerLine = "first"
	PerLineAll   PerLine = "all"
)

// ParsePerLine maps a flag or config string to a PerLine policy. Empty means first.
func ParsePerLine(s string) (PerLine, error) {
	switch PerLine(strings.ToLower(strings.TrimSpace(s))) {
	case "", PerLineFirst:
		return PerLineFirst, nil
	case PerLineAll:
		return PerLineAll, nil
	}
	return "", fmt.Errorf("unknown per-line policy %q (want first or all)", s)
}

// Resolver finds parameter bindings on instantiation lines. A Resolver
// belongs to one resolution pass: it remembers the lines it has recorded
// and the instance target currently open.
type Resolver struct {
	known   map[string]bool
	match   MatchMode
	perLine PerLine
	seen    map[int]bool
	target  string
}

// NewResolver returns a resolver accepting bindings that involve names.
func NewResolver(names []string, match MatchMode, perLine PerLine) *Resolver {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	if match == "" {
		match = MatchFormal
	}
	if perLine == "" {
		perLine = PerLineFirst
	}
	return &Resolver{
		known:   known,
		match:   match,
		perLine: perLine,
		seen:    make(map[int]bool),
	}
}

// ResolveLine returns the bindings recorded for the line with the given
// line number. A line number already recorded yields nothing.
func (r *Resolver) ResolveLine(line string, number int) []Binding {
	tokens, err := lexer.Tokenize(line)
	if err != nil {
		return nil
	}
	return r.resolveTokens(tokens, number)
}

func (r *Resolver) resolveTokens(tokens []lexer.Token, number int) []Binding {
	if target, ok := matchInstanceTarget(tokens); ok {
		r.target = target
	}
	defer func() {
		if closesInstance(tokens) {
			r.target = ""
		}
	}()

	if r.seen[number] || disqualified(tokens) {
		return nil
	}

	var out []Binding
	dup := make(map[string]bool)
	for _, b := range candidates(tokens) {
		if !r.accepts(b) {
			continue
		}
		key := b.FormalName + "\x00" + b.ActualReference
		if dup[key] {
			continue
		}
		dup[key] = true

		b.Line = number
		b.Target = r.target
		out = append(out, b)
		if r.perLine == PerLineFirst {
			break
		}
	}
	if len(out) > 0 {
		r.seen[number] = true
	}
	return out
}

func (r *Resolver) accepts(b Binding) bool {
	switch r.match {
	case MatchActual:
		return r.known[b.ActualName]
	case MatchEither:
		return r.known[b.FormalName] || r.known[b.ActualName]
	default:
		return r.known[b.FormalName]
	}
}

// disqualified reports whether tokens hold declaration or statement
// vocabulary that rules a line out as an instantiation line.
func disqualified(tokens []lexer.Token) bool {
	for _, tok := range tokens {
		if tok.IsKeyword(lexer.ParameterKeywords...) {
			return true
		}
		if tok.Kind == lexer.Punct || tok.Kind == lexer.Op {
			if strings.ContainsAny(tok.Text, ";=<>") {
				return true
			}
		}
	}
	return false
}

// candidates finds every .NAME[idx](expr) group on the line.
func candidates(tokens []lexer.Token) []Binding {
	var out []Binding
	for i := 0; i+2 < len(tokens); i++ {
		if !tokens[i].IsPunct(".") || tokens[i+1].Kind != lexer.Ident {
			continue
		}
		name := tokens[i+1].Text
		idx, pos, err := readGroups(tokens, i+2)
		if err != nil || pos >= len(tokens) || !tokens[pos].IsPunct("(") {
			continue
		}
		end := matchParen(tokens, pos)
		if end < 0 {
			continue
		}
		i = end

		actual := lexer.Join(tokens[pos+1 : end])
		if actual == "" {
			continue
		}
		actualName, actualIndex := splitReference(actual)
		formalDim, err := dimension.Normalize(idx)
		if !dimension.IsRecoverable(err) {
			formalDim = nil
		}
		out = append(out, Binding{
			FormalName:      name,
			FormalDimension: formalDim,
			ActualReference: actual,
			ActualName:      actualName,
			ActualIndex:     actualIndex,
		})
	}
	return out
}

// matchParen returns the index of the ')' that closes tokens[open], or -1.
func matchParen(tokens []lexer.Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].IsPunct("("):
			depth++
		case tokens[i].IsPunct(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitReference splits PAR5[2] into PAR5 and the normalized index [2].
func splitReference(ref string) (string, dimension.Dimension) {
	cut := strings.IndexByte(ref, '[')
	if cut < 0 {
		return ref, dimension.Scalar()
	}
	idx, err := dimension.Normalize(ref[cut:])
	if !dimension.IsRecoverable(err) {
		idx = nil
	}
	return ref[:cut], idx
}
