// Package lexer splits a single line of Verilog/SystemVerilog source into a
// flat token stream. Higher layers classify lines by walking tokens instead of
// re-running textual pattern searches.
package lexer

import (
	"fmt"
	"strings"

	plexer "github.com/alecthomas/participle/v2/lexer"
)

// Kind is the lexical class of a token.
type Kind int

const (
	Other Kind = iota
	Keyword
	Ident
	Number
	Based
	String
	Macro
	Op
	Punct
)

var kindNames = map[Kind]string{
	Other:   "other",
	Keyword: "keyword",
	Ident:   "ident",
	Number:  "number",
	Based:   "based",
	String:  "string",
	Macro:   "macro",
	Op:      "op",
	Punct:   "punct",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token is one significant lexeme of a line.
type Token struct {
	Kind Kind
	Text string
	Col  int // 1-based
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Col)
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// IsPunct reports whether the token is the given single punctuation character.
func (t Token) IsPunct(text string) bool {
	return t.Kind == Punct && t.Text == text
}

// IsKeyword reports whether the token is one of the given keywords.
func (t Token) IsKeyword(words ...string) bool {
	if t.Kind != Keyword {
		return false
	}
	for _, w := range words {
		if t.Text == w {
			return true
		}
	}
	return false
}

// Rule order matters: the participle simple lexer tries alternatives left to right.
var definition = plexer.MustSimple([]plexer.SimpleRule{
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*.*?\*/`},
	{Name: "OpenComment", Pattern: `/\*.*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Based", Pattern: `[0-9][0-9_]*'[sS]?[bBoOdDhH][0-9a-fA-FxXzZ_?]+|'[sS]?[bBoOdDhH][0-9a-fA-FxXzZ_?]+|'[01xXzZ]`},
	{Name: "Number", Pattern: `[0-9][0-9_]*(?:\.[0-9_]+)?(?:[eE][-+]?[0-9]+)?`},
	{Name: "Macro", Pattern: "`[a-zA-Z_][a-zA-Z0-9_]*"},
	{Name: "Ident", Pattern: `[a-zA-Z_$][a-zA-Z0-9_$]*|\\\S+`},
	{Name: "Op", Pattern: `===|!==|<<<|>>>|<=|>=|==|!=|&&|\|\||<<|>>|::|\+:|-:|\*\*|->`},
	{Name: "Punct", Pattern: `[\[\]{}()#.,;:=<>+\-*/%&|^~!?@']`},
	{Name: "Other", Pattern: `(?s).`},
})

var symbolKinds = buildSymbolKinds()

func buildSymbolKinds() map[plexer.TokenType]Kind {
	byName := map[string]Kind{
		"String": String,
		"Based":  Based,
		"Number": Number,
		"Macro":  Macro,
		"Ident":  Ident,
		"Op":     Op,
		"Punct":  Punct,
		"Other":  Other,
	}
	out := make(map[plexer.TokenType]Kind, len(byName))
	for name, tt := range definition.Symbols() {
		if kind, ok := byName[name]; ok {
			out[tt] = kind
		}
	}
	return out
}

// Tokenize lexes one physical line. Whitespace and comments are dropped.
func Tokenize(line string) ([]Token, error) {
	lx, err := definition.LexString("", line)
	if err != nil {
		return nil, fmt.Errorf("lexing line: %w", err)
	}
	raw, err := plexer.ConsumeAll(lx)
	if err != nil {
		return nil, fmt.Errorf("lexing line: %w", err)
	}

	tokens := make([]Token, 0, len(raw))
	for _, tok := range raw {
		if tok.EOF() {
			break
		}
		kind, ok := symbolKinds[tok.Type]
		if !ok {
			// comments and whitespace
			continue
		}
		if kind == Ident && keywords[tok.Value] {
			kind = Keyword
		}
		tokens = append(tokens, Token{Kind: kind, Text: tok.Value, Col: tok.Pos.Column})
	}
	return tokens, nil
}

// Join concatenates token text without separators. This is the canonical
// whitespace-free rendering used for names, dimensions and references.
func Join(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Text joins token text with single spaces.
func Text(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}
