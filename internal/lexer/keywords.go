package lexer

// Keyword groups used by the declaration classifier.
var (
	ParameterKeywords = []string{"parameter", "localparam"}

	DirectionKeywords = []string{"input", "output", "inout"}

	SignednessKeywords = []string{"signed", "unsigned"}

	// ParameterTypeKeywords may appear between the parameter keyword and its name.
	ParameterTypeKeywords = []string{
		"int", "integer", "string", "bit", "logic", "reg", "byte",
		"shortint", "longint", "real", "realtime", "time", "type",
	}

	// LegacyTypeKeywords are the Verilog-2001 net and variable types.
	LegacyTypeKeywords = []string{
		"wire", "reg", "tri", "wand", "wor", "supply0", "supply1",
		"uwire", "integer", "time", "real",
	}

	// ExtendedTypeKeywords are SystemVerilog data types.
	ExtendedTypeKeywords = []string{
		"logic", "bit", "byte", "int", "shortint", "longint", "var",
	}

	ModuleKeywords = []string{"module", "macromodule", "endmodule"}
)

var keywords = buildKeywords()

func buildKeywords() map[string]bool {
	set := make(map[string]bool)
	groups := [][]string{
		ParameterKeywords,
		DirectionKeywords,
		SignednessKeywords,
		ParameterTypeKeywords,
		LegacyTypeKeywords,
		ExtendedTypeKeywords,
		ModuleKeywords,
	}
	for _, group := range groups {
		for _, w := range group {
			set[w] = true
		}
	}
	return set
}

// IsKeyword reports whether word is in the recognised keyword set.
func IsKeyword(word string) bool {
	return keywords[word]
}
