package extractor

import "github.com/robert-at-pretension-io/svpar/internal/lexer"

// matchModule returns the module name if tokens open a module:
// module <name> ...
func matchModule(tokens []lexer.Token) (string, bool) {
	if len(tokens) < 2 || !tokens[0].IsKeyword("module", "macromodule") {
		return "", false
	}
	if tokens[1].Kind != lexer.Ident {
		return "", false
	}
	return tokens[1].Text, true
}

// isEndModule reports whether tokens close a module.
func isEndModule(tokens []lexer.Token) bool {
	for _, tok := range tokens {
		if tok.IsKeyword("endmodule") {
			return true
		}
	}
	return false
}

// matchInstanceTarget returns the instantiated module name if tokens open a
// parameterized instantiation: <target> #( ...
func matchInstanceTarget(tokens []lexer.Token) (string, bool) {
	if len(tokens) < 3 || tokens[0].Kind != lexer.Ident {
		return "", false
	}
	if !tokens[1].IsPunct("#") || !tokens[2].IsPunct("(") {
		return "", false
	}
	return tokens[0].Text, true
}

// closesInstance reports whether tokens end the current instantiation statement.
func closesInstance(tokens []lexer.Token) bool {
	for _, tok := range tokens {
		if tok.IsPunct(";") || tok.IsKeyword("endmodule") {
			return true
		}
	}
	return false
}
