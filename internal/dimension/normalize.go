package dimension

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Normalize converts zero or more adjacent bracket groups into a Dimension.
//
// Empty text is the scalar dimension [1]. A ranged group [hi:lo] is the
// inclusive count hi-lo+1, kept symbolic when hi has a free base. An unranged
// group [n] is the repeat count n.
//
// Syntax and range errors return a nil Dimension. Conversion failures return
// the complete Dimension, holding opaque terms, together with the joined
// *ConversionError values; see IsRecoverable.
func Normalize(text string) (Dimension, error) {
	compact := stripSpace(text)
	if compact == "" {
		return Scalar(), nil
	}

	pieces, err := splitGroups(compact)
	if err != nil {
		return nil, err
	}

	dim := make(Dimension, 0, len(pieces))
	var warnings []error
	for _, piece := range pieces {
		term, err := normalizePiece(piece)
		if err != nil {
			var ce *ConversionError
			if !errors.As(err, &ce) {
				return nil, err
			}
			warnings = append(warnings, err)
		}
		dim = append(dim, term)
	}
	if len(warnings) > 0 {
		return dim, errors.Join(warnings...)
	}
	return dim, nil
}

// MustNormalize is Normalize for trusted literals; it panics on any error.
func MustNormalize(text string) Dimension {
	dim, err := Normalize(text)
	if err != nil {
		panic(err)
	}
	return dim
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// splitGroups splits "[a][b:c]" into "a" and "b:c".
func splitGroups(s string) ([]string, error) {
	var pieces []string
	depth := 0
	start := 0
	for i, r := range s {
		switch {
		case r == '[':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case r == ']':
			if depth == 0 {
				return nil, &SyntaxError{Text: s, Reason: "unbalanced ']'"}
			}
			depth--
			if depth == 0 {
				pieces = append(pieces, s[start:i])
			}
		case depth == 0:
			return nil, &SyntaxError{Text: s, Reason: "text outside brackets"}
		}
	}
	if depth != 0 {
		return nil, &SyntaxError{Text: s, Reason: "missing ']'"}
	}
	return pieces, nil
}

func normalizePiece(piece string) (Term, error) {
	hi, lo, ranged := splitTopLevel(piece, ':')
	if !ranged {
		n, ok := parseInt(piece)
		switch {
		case !ok:
			return Raw(piece), &ConversionError{Bound: piece}
		case n < 0:
			return Term{}, &RangeError{Range: piece, Count: n}
		}
		return Lit(n), nil
	}

	// indexed part-select [base+:width] / [base-:width]
	if strings.HasSuffix(hi, "+") || strings.HasSuffix(hi, "-") {
		if n, ok := parseInt(lo); ok {
			return Lit(n), nil
		}
		return Raw(lo), &ConversionError{Bound: piece}
	}

	h, hok := parseLinear(hi)
	l, lok := parseLinear(lo)
	if !hok || !lok {
		return Raw(piece), &ConversionError{Bound: piece}
	}
	switch {
	case h.base == l.base:
		// both literal, or identical symbolic bases that cancel
		count := h.k - l.k + 1
		if count < 1 {
			return Term{}, &RangeError{Range: piece, Count: count}
		}
		return Lit(count), nil
	case l.base == "":
		return Sym(h.base, h.k-l.k+1), nil
	default:
		loText := lo
		if l.k != 0 {
			loText = "(" + lo + ")"
		}
		return Raw(hi + "-" + loText + "+1"), &ConversionError{Bound: piece}
	}
}

// splitTopLevel splits s on the first sep outside parentheses, brackets and braces.
func splitTopLevel(s string, sep rune) (string, string, bool) {
	depth := 0
	for i, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

type linear struct {
	base string
	k    int
}

// parseLinear reads s as base±k, a plain integer k, or a bare base. It
// fails when a numeric part does not fit in an int.
func parseLinear(s string) (linear, bool) {
	s = unwrapParens(s)
	if n, ok := parseInt(s); ok {
		return linear{k: n}, true
	}
	if isNumeric(s) {
		return linear{}, false
	}
	depth := 0
	for i := len(s) - 1; i > 0; i-- {
		switch s[i] {
		case ')', ']', '}':
			depth++
		case '(', '[', '{':
			depth--
		case '+', '-':
			if depth != 0 {
				continue
			}
			tail := s[i+1:]
			n, ok := parseInt(tail)
			if !ok && isNumeric(tail) {
				return linear{}, false
			}
			if !ok || strings.ContainsAny(tail, "+-") {
				return linear{base: s}, true
			}
			if s[i] == '-' {
				n = -n
			}
			return linear{base: s[:i], k: n}, true
		}
	}
	return linear{base: s}, true
}

func unwrapParens(s string) string {
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		depth := 0
		closesEarly := false
		for i := 0; i < len(s)-1; i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				closesEarly = true
				break
			}
		}
		if closesEarly {
			return s
		}
		s = s[1 : len(s)-1]
	}
	return s
}

var basedLiteral = regexp.MustCompile(`^([0-9_]*)'[sS]?([bBoOdDhH])([0-9a-fA-F_]+)$`)

// parseInt accepts decimal integers with optional sign and '_' separators and
// Verilog based literals such as 8'd7 or 'hF.
func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if m := basedLiteral.FindStringSubmatch(s); m != nil {
		base := 10
		switch strings.ToLower(m[2]) {
		case "b":
			base = 2
		case "o":
			base = 8
		case "h":
			base = 16
		}
		n, err := strconv.ParseInt(strings.ReplaceAll(m[3], "_", ""), base, 64)
		if err != nil {
			return 0, false
		}
		return int(n), true
	}

	if !isDecimal(s) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(s, "_", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// isDecimal reports whether s is an optionally signed run of digits and '_'.
func isDecimal(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" || s[0] == '_' {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

// isNumeric reports whether s is shaped like an integer literal, whether or
// not its value fits in an int.
func isNumeric(s string) bool {
	return isDecimal(s) || basedLiteral.MatchString(s)
}
