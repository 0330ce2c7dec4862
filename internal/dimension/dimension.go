// Package dimension normalizes bracketed range and size text (`[7:0]`,
// `[N+3:0]`, `[2][2]`) into per-dimension sizes.
package dimension

import (
	"fmt"
	"strconv"
	"strings"
)

// TermKind tags the variant held by a Term.
type TermKind int

const (
	Literal TermKind = iota
	Symbolic
	Opaque
)

var termKindNames = []string{"literal", "symbolic", "opaque"}

func (k TermKind) String() string {
	if int(k) >= 0 && int(k) < len(termKindNames) {
		return termKindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func (k TermKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TermKind) UnmarshalText(text []byte) error {
	for i, name := range termKindNames {
		if string(text) == name {
			*k = TermKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown term kind %q", text)
}

// Term is the size of one bracket pair.
//
// Literal terms use Size. Symbolic terms denote Base+Offset. Opaque terms keep
// text that could not be converted.
type Term struct {
	Kind   TermKind `json:"kind"`
	Size   int      `json:"size,omitempty"`
	Base   string   `json:"base,omitempty"`
	Offset int      `json:"offset,omitempty"`
	Raw    string   `json:"raw,omitempty"`
}

// Lit returns a literal term.
func Lit(size int) Term {
	return Term{Kind: Literal, Size: size}
}

// Sym returns the symbolic term base+offset.
func Sym(base string, offset int) Term {
	return Term{Kind: Symbolic, Base: base, Offset: offset}
}

// Raw returns an opaque term.
func Raw(text string) Term {
	return Term{Kind: Opaque, Raw: text}
}

func (t Term) String() string {
	switch t.Kind {
	case Literal:
		return strconv.Itoa(t.Size)
	case Symbolic:
		return withOffset(t.Base, t.Offset)
	default:
		return t.Raw
	}
}

// Source renders the term as a bracket group that normalizes back to t.
func (t Term) Source() string {
	switch t.Kind {
	case Literal:
		return "[" + strconv.Itoa(t.Size) + "]"
	case Symbolic:
		return "[" + withOffset(t.Base, t.Offset-1) + ":0]"
	default:
		return "[" + t.Raw + "]"
	}
}

func withOffset(base string, offset int) string {
	switch {
	case offset > 0:
		return base + "+" + strconv.Itoa(offset)
	case offset < 0:
		return base + "-" + strconv.Itoa(-offset)
	default:
		return base
	}
}

// Dimension is the ordered list of terms, outermost first.
type Dimension []Term

// Scalar is the dimension of an undimensioned declaration.
func Scalar() Dimension {
	return Dimension{Lit(1)}
}

func (d Dimension) String() string {
	var b strings.Builder
	for _, t := range d {
		b.WriteString("[")
		b.WriteString(t.String())
		b.WriteString("]")
	}
	return b.String()
}

// Source renders the dimension in bracket grammar accepted by Normalize.
func (d Dimension) Source() string {
	var b strings.Builder
	for _, t := range d {
		b.WriteString(t.Source())
	}
	return b.String()
}

// IsScalar reports whether d is the single literal term 1.
func (d Dimension) IsScalar() bool {
	return len(d) == 1 && d[0].Kind == Literal && d[0].Size == 1
}

// Literal returns the size of term i when it is a literal.
func (d Dimension) Literal(i int) (int, bool) {
	if i < 0 || i >= len(d) || d[i].Kind != Literal {
		return 0, false
	}
	return d[i].Size, true
}

// Equal reports whether both dimensions hold the same terms.
func (d Dimension) Equal(other Dimension) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}
