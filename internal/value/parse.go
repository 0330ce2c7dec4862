package value

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/robert-at-pretension-io/svpar/internal/dimension"
)

// ErrEmpty is returned when nothing remains of the right-hand side.
var ErrEmpty = errors.New("empty default value")

// SyntaxError reports a default value whose braces are unbalanced or nest
// deeper than the declared dimension.
type SyntaxError struct {
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unbalanced braces"
	}
	return fmt.Sprintf("default value %q: %s", e.Text, reason)
}

// DepthError reports a default value for a dimension deeper than two terms.
type DepthError struct {
	Depth int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("default values for %d-dimensional parameters are not supported", e.Depth)
}

// Parse interprets rhs, the text after '=', according to dim.
//
// A scalar dimension yields one token with whitespace and commas removed. A
// one-term dimension yields a flat sequence; inner groups are flattened into
// it. A two-term dimension yields a sequence of sequences, and a cell that is
// itself a group is a *SyntaxError. A trailing empty element is dropped.
func Parse(rhs string, dim dimension.Dimension) (Value, error) {
	text := trimTerminators(rhs)
	if err := checkBalance(text); err != nil {
		return Value{}, err
	}

	if len(dim) == 0 || dim.IsScalar() {
		tok := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) || r == ',' {
				return -1
			}
			return r
		}, text)
		if tok == "" {
			return Value{}, ErrEmpty
		}
		return Scalar(tok), nil
	}

	switch len(dim) {
	case 1:
		return parseFlat(text)
	case 2:
		return parseNested(text)
	default:
		return Value{}, &DepthError{Depth: len(dim)}
	}
}

func parseFlat(text string) (Value, error) {
	if text == "" {
		return Value{}, ErrEmpty
	}
	inner, ok := unwrapGroup(text)
	if !ok {
		// fill literals such as '0 apply to every element
		return Scalar(text), nil
	}
	return List(flatten(inner, nil)...), nil
}

func parseNested(text string) (Value, error) {
	if text == "" {
		return Value{}, ErrEmpty
	}
	inner, ok := unwrapGroup(text)
	if !ok {
		return Scalar(text), nil
	}
	groups := splitElements(inner)
	rows := make([]Value, 0, len(groups))
	for _, group := range groups {
		body, ok := unwrapGroup(group)
		if !ok {
			rows = append(rows, Scalar(group))
			continue
		}
		cells := splitElements(body)
		row := make([]Value, 0, len(cells))
		for _, cell := range cells {
			if _, nested := unwrapGroup(cell); nested {
				return Value{}, &SyntaxError{Text: text, Reason: "nested deeper than two dimensions"}
			}
			row = append(row, Scalar(cell))
		}
		rows = append(rows, List(row...))
	}
	return List(rows...), nil
}

// flatten appends the scalar elements of a group body to out, descending
// into elements that carry their own array marker.
func flatten(body string, out []Value) []Value {
	for _, part := range splitElements(body) {
		if inner, ok := unwrapGroup(part); ok {
			out = flatten(inner, out)
			continue
		}
		out = append(out, Scalar(part))
	}
	return out
}

func trimTerminators(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := strings.TrimSpace(strings.TrimRight(s, ";,"))
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

func checkBalance(s string) error {
	depth := 0
	for _, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return &SyntaxError{Text: s}
			}
		}
	}
	if depth != 0 {
		return &SyntaxError{Text: s}
	}
	return nil
}

// unwrapGroup strips one outer '{...} or {...} spanning all of s.
func unwrapGroup(s string) (string, bool) {
	s = strings.TrimSpace(s)
	body := strings.TrimPrefix(s, "'")
	if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
		return s, false
	}
	depth := 0
	for i, r := range body {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 && i != len(body)-1 {
				// {a}{b} is not a single group
				return s, false
			}
		}
	}
	return strings.TrimSpace(body[1 : len(body)-1]), true
}

// splitElements splits on commas outside braces, parentheses and brackets.
func splitElements(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
