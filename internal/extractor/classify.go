package extractor

import (
	"errors"
	"strings"

	"github.com/robert-at-pretension-io/svpar/internal/dimension"
	"github.com/robert-at-pretension-io/svpar/internal/lexer"
	"github.com/robert-at-pretension-io/svpar/internal/value"
)

// Classifier decides whether a source line declares a parameter or a port.
// It holds no per-line state and is safe for concurrent use.
type Classifier struct {
	vocab Vocabulary
}

// NewClassifier returns a classifier that tags ports using vocab.
func NewClassifier(vocab Vocabulary) *Classifier {
	return &Classifier{vocab: vocab}
}

// Classify tokenizes line and classifies it.
//
// It returns ErrNotDeclaration when the line has neither a parameter keyword
// with '=' nor a direction keyword, and a *MalformedError when a declaration
// form is triggered but cannot be completed.
func (c *Classifier) Classify(line string) (Declaration, error) {
	tokens, err := lexer.Tokenize(line)
	if err != nil {
		return Declaration{}, &MalformedError{Line: line, Reason: "tokenize", Err: err}
	}
	return c.classifyTokens(line, tokens)
}

func (c *Classifier) classifyTokens(line string, tokens []lexer.Token) (Declaration, error) {
	if len(tokens) == 0 {
		return Declaration{}, ErrNotDeclaration
	}
	if i := indexKeyword(tokens, lexer.ParameterKeywords...); i >= 0 && hasPunctAfter(tokens, i, "=") {
		return c.classifyParameter(line, tokens, i)
	}
	if i := indexKeyword(tokens, lexer.DirectionKeywords...); i >= 0 {
		return c.classifyPort(line, tokens, i)
	}
	return Declaration{}, ErrNotDeclaration
}

func (c *Classifier) classifyParameter(line string, tokens []lexer.Token, at int) (Declaration, error) {
	decl := Declaration{
		Category: CategoryParameter,
		Local:    tokens[at].Text == "localparam",
		Scope:    ScopeHeader,
	}
	if tokens[len(tokens)-1].IsPunct(";") {
		decl.Scope = ScopeBody
	}

	pos := at + 1
	pos, decl.DataType, decl.Signedness = readType(tokens, pos, lexer.ParameterTypeKeywords)

	packed, pos, err := readGroups(tokens, pos)
	if err != nil {
		return Declaration{}, &MalformedError{Line: line, Reason: "unclosed bracket in parameter range", Err: err}
	}
	if pos >= len(tokens) || tokens[pos].Kind != lexer.Ident {
		return Declaration{}, &MalformedError{Line: line, Reason: "missing parameter name"}
	}
	decl.Name = tokens[pos].Text
	pos++

	unpacked, pos, err := readGroups(tokens, pos)
	if err != nil {
		return Declaration{}, &MalformedError{Line: line, Reason: "unclosed bracket in parameter dimension", Err: err}
	}
	if pos >= len(tokens) || !tokens[pos].IsPunct("=") {
		return Declaration{}, &MalformedError{Line: line, Reason: "expected '=' after parameter " + decl.Name}
	}
	pos++

	rhs := readValue(tokens, pos)
	if len(rhs) == 0 {
		return Declaration{}, &MalformedError{Line: line, Reason: "missing value for parameter " + decl.Name}
	}

	if err := c.fillDims(&decl, packed, unpacked); err != nil {
		return Declaration{}, &MalformedError{Line: line, Reason: "invalid range for parameter " + decl.Name, Err: err}
	}

	def, err := value.Parse(lexer.Join(rhs), decl.Dimension)
	if err != nil {
		reason := "invalid value for parameter " + decl.Name
		if errors.Is(err, value.ErrEmpty) {
			reason = "missing value for parameter " + decl.Name
		}
		return Declaration{}, &MalformedError{Line: line, Reason: reason, Err: err}
	}
	decl.Default = &def
	return decl, nil
}

func (c *Classifier) classifyPort(line string, tokens []lexer.Token, at int) (Declaration, error) {
	decl := Declaration{
		Category:  CategoryPort,
		Direction: Direction(tokens[at].Text),
	}

	pos := at + 1
	pos, decl.DataType, decl.Signedness = readType(tokens, pos, lexer.LegacyTypeKeywords, lexer.ExtendedTypeKeywords)

	packed, pos, err := readGroups(tokens, pos)
	if err != nil {
		return Declaration{}, &MalformedError{Line: line, Reason: "unclosed bracket in port width", Err: err}
	}
	if pos >= len(tokens) || tokens[pos].Kind != lexer.Ident {
		return Declaration{}, &MalformedError{Line: line, Reason: "missing port name"}
	}
	decl.Name = tokens[pos].Text
	pos++

	unpacked, _, err := readGroups(tokens, pos)
	if err != nil {
		return Declaration{}, &MalformedError{Line: line, Reason: "unclosed bracket in port array", Err: err}
	}
	if err := c.fillDims(&decl, packed, unpacked); err != nil {
		return Declaration{}, &MalformedError{Line: line, Reason: "invalid range for port " + decl.Name, Err: err}
	}

	decl.Clock = c.vocab.isClock(decl.Name)
	decl.Reset = c.vocab.isReset(decl.Name)
	return decl, nil
}

// fillDims normalizes the packed and unpacked groups. Conversion failures
// are recorded as warnings; any other error is returned.
func (c *Classifier) fillDims(decl *Declaration, packed, unpacked string) error {
	width, err := dimension.Normalize(packed)
	if !dimension.IsRecoverable(err) {
		return err
	}
	decl.Warnings = append(decl.Warnings, dimension.Messages(err)...)

	dim, err := dimension.Normalize(unpacked)
	if !dimension.IsRecoverable(err) {
		return err
	}
	decl.Warnings = append(decl.Warnings, dimension.Messages(err)...)

	decl.Width = width
	decl.Dimension = dim
	return nil
}

// readType consumes data-type keywords from the given groups, signedness
// keywords and a user-defined type name (typ or pkg::typ) followed by the
// declared identifier.
func readType(tokens []lexer.Token, pos int, groups ...[]string) (int, string, Signedness) {
	var types []string
	var sign Signedness
	for pos < len(tokens) {
		tok := tokens[pos]
		switch {
		case tok.IsKeyword(lexer.SignednessKeywords...):
			sign = Signedness(tok.Text)
			pos++
			continue
		case inGroups(tok, groups):
			types = append(types, tok.Text)
			pos++
			continue
		}
		break
	}
	if len(types) == 0 && pos < len(tokens) && tokens[pos].Kind == lexer.Ident {
		switch {
		case pos+3 < len(tokens) && tokens[pos+1].Is(lexer.Op, "::") && tokens[pos+2].Kind == lexer.Ident:
			types = append(types, lexer.Join(tokens[pos:pos+3]))
			pos += 3
		case pos+1 < len(tokens) && tokens[pos+1].Kind == lexer.Ident:
			types = append(types, tokens[pos].Text)
			pos++
		}
		if pos < len(tokens) && tokens[pos].IsKeyword(lexer.SignednessKeywords...) {
			sign = Signedness(tokens[pos].Text)
			pos++
		}
	}
	return pos, strings.Join(types, " "), sign
}

func inGroups(tok lexer.Token, groups [][]string) bool {
	for _, g := range groups {
		if tok.IsKeyword(g...) {
			return true
		}
	}
	return false
}

type unclosedError struct{}

func (unclosedError) Error() string { return "missing ']'" }

// readGroups consumes adjacent [...] groups starting at pos and returns
// their whitespace-free text.
func readGroups(tokens []lexer.Token, pos int) (string, int, error) {
	var b strings.Builder
	for pos < len(tokens) && tokens[pos].IsPunct("[") {
		depth := 0
		start := pos
		for ; pos < len(tokens); pos++ {
			if tokens[pos].IsPunct("[") {
				depth++
			} else if tokens[pos].IsPunct("]") {
				depth--
				if depth == 0 {
					break
				}
			}
		}
		if pos >= len(tokens) {
			return "", pos, unclosedError{}
		}
		pos++
		b.WriteString(lexer.Join(tokens[start:pos]))
	}
	return b.String(), pos, nil
}

// readValue returns the tokens of a right-hand side, stopping at a top-level
// ',' or ';' or at a ')' that closes an enclosing list.
func readValue(tokens []lexer.Token, pos int) []lexer.Token {
	depth := 0
	end := pos
	for ; end < len(tokens); end++ {
		tok := tokens[end]
		if tok.Kind != lexer.Punct {
			continue
		}
		switch tok.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ",", ";":
			if depth == 0 {
				return tokens[pos:end]
			}
		}
		if depth < 0 {
			return tokens[pos:end]
		}
	}
	return tokens[pos:end]
}

func indexKeyword(tokens []lexer.Token, words ...string) int {
	for i, tok := range tokens {
		if tok.IsKeyword(words...) {
			return i
		}
	}
	return -1
}

func hasPunctAfter(tokens []lexer.Token, at int, text string) bool {
	for _, tok := range tokens[at+1:] {
		if tok.IsPunct(text) {
			return true
		}
	}
	return false
}
