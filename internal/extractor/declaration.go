package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/svpar/internal/dimension"
	"github.com/robert-at-pretension-io/svpar/internal/value"
)

// ErrNotDeclaration is returned for lines that hold no parameter or port declaration.
var ErrNotDeclaration = errors.New("not a declaration")

// MalformedError reports a line that triggered a declaration form but could
// not be completed. Callers skip the line.
type MalformedError struct {
	Line   string
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed declaration: %s: %v", e.Reason, e.Err)
	}
	return "malformed declaration: " + e.Reason
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

type Category string

const (
	CategoryParameter Category = "parameter"
	CategoryPort      Category = "port"
)

type Scope string

const (
	ScopeHeader Scope = "header"
	ScopeBody   Scope = "body"
)

type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
	DirectionInout  Direction = "inout"
)

type Signedness string

const (
	Signed   Signedness = "signed"
	Unsigned Signedness = "unsigned"
)

// Declaration is one classified parameter or port.
//
// Width is the packed range written before the name and Dimension the
// unpacked range written after it. Both are [1] when absent.
type Declaration struct {
	Line       int                 `json:"line"`
	Module     string              `json:"module,omitempty"`
	Category   Category            `json:"category"`
	Name       string              `json:"name"`
	DataType   string              `json:"data_type,omitempty"`
	Signedness Signedness          `json:"signedness,omitempty"`
	Width      dimension.Dimension `json:"width"`
	Dimension  dimension.Dimension `json:"dimension"`
	Default    *value.Value        `json:"default,omitempty"`
	Scope      Scope               `json:"scope,omitempty"`
	Local      bool                `json:"local,omitempty"`
	Direction  Direction           `json:"direction,omitempty"`
	Clock      bool                `json:"clock,omitempty"`
	Reset      bool                `json:"reset,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// IsParameter reports whether d is a parameter or localparam.
func (d Declaration) IsParameter() bool {
	return d.Category == CategoryParameter
}

// Source renders d as a single declaration line that classifies back to d.
func (d Declaration) Source() string {
	var parts []string
	if d.IsParameter() {
		if d.Local {
			parts = append(parts, "localparam")
		} else {
			parts = append(parts, "parameter")
		}
	} else {
		parts = append(parts, string(d.Direction))
	}
	if d.DataType != "" {
		parts = append(parts, d.DataType)
	}
	if d.Signedness != "" {
		parts = append(parts, string(d.Signedness))
	}
	if len(d.Width) > 0 && !d.Width.IsScalar() {
		parts = append(parts, d.Width.Source())
	}
	name := d.Name
	if len(d.Dimension) > 0 && !d.Dimension.IsScalar() {
		name += " " + d.Dimension.Source()
	}
	parts = append(parts, name)

	line := strings.Join(parts, " ")
	if d.IsParameter() && d.Default != nil {
		line += " = " + d.Default.String()
	}
	if d.Scope == ScopeBody {
		return line + ";"
	}
	return line + ","
}

// Vocabulary holds the name fragments used to tag clock and reset ports.
type Vocabulary struct {
	ClockFragments []string `json:"clock_fragments"`
	ResetFragments []string `json:"reset_fragments"`
}

// DefaultVocabulary returns the built-in clock and reset fragments.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		ClockFragments: []string{"clk", "clock"},
		ResetFragments: []string{"rst", "reset"},
	}
}

func (v Vocabulary) isClock(name string) bool {
	return containsFragment(name, v.ClockFragments)
}

func (v Vocabulary) isReset(name string) bool {
	return containsFragment(name, v.ResetFragments)
}

func containsFragment(name string, fragments []string) bool {
	lower := strings.ToLower(name)
	for _, f := range fragments {
		if f != "" && strings.Contains(lower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}
