// Package extractor classifies Verilog/SystemVerilog source lines into
// parameter and port declarations and resolves parameter bindings at
// instantiation sites.
package extractor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/robert-at-pretension-io/svpar/internal/lexer"
)

// Diagnostic kinds.
const (
	DiagnosticConversion = "dimension_conversion"
	DiagnosticMalformed  = "malformed"
)

// Options configures an Extractor.
type Options struct {
	Vocabulary Vocabulary `json:"vocabulary"`
	Match      MatchMode  `json:"match"`
	PerLine    PerLine    `json:"per_line"`
}

// DefaultOptions returns formal matching, one binding per line and the
// built-in vocabulary.
func DefaultOptions() Options {
	return Options{
		Vocabulary: DefaultVocabulary(),
		Match:      MatchFormal,
		PerLine:    PerLineFirst,
	}
}

// Fingerprint identifies the settings that affect extraction output.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("clk=%s;rst=%s;match=%s;per_line=%s",
		strings.Join(o.Vocabulary.ClockFragments, ","),
		strings.Join(o.Vocabulary.ResetFragments, ","),
		o.Match, o.PerLine)
}

// Extractor scans one source file in two passes: declarations first, then
// parameter bindings against the declared names.
type Extractor struct {
	opts       Options
	classifier *Classifier
}

// FileFacts contains all extracted information from a single source file.
// Every collection is in source line order.
type FileFacts struct {
	File         string        `json:"file"`
	Modules      []Module      `json:"modules"`
	HeaderParams []Declaration `json:"header_params"`
	BodyParams   []Declaration `json:"body_params"`
	Ports        []Declaration `json:"ports"`
	Bindings     []Binding     `json:"bindings"`
	Diagnostics  []Diagnostic  `json:"diagnostics"`
}

// Module is a module declaration.
type Module struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// Diagnostic is a non-fatal problem found on a line.
type Diagnostic struct {
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Summary counts the records of each category.
type Summary struct {
	Modules      int `json:"modules"`
	HeaderParams int `json:"header_params"`
	BodyParams   int `json:"body_params"`
	Ports        int `json:"ports"`
	Bindings     int `json:"bindings"`
	Diagnostics  int `json:"diagnostics"`
}

func (f FileFacts) Summary() Summary {
	return Summary{
		Modules:      len(f.Modules),
		HeaderParams: len(f.HeaderParams),
		BodyParams:   len(f.BodyParams),
		Ports:        len(f.Ports),
		Bindings:     len(f.Bindings),
		Diagnostics:  len(f.Diagnostics),
	}
}

// Add accumulates other into s.
func (s *Summary) Add(other Summary) {
	s.Modules += other.Modules
	s.HeaderParams += other.HeaderParams
	s.BodyParams += other.BodyParams
	s.Ports += other.Ports
	s.Bindings += other.Bindings
	s.Diagnostics += other.Diagnostics
}

// Parameters returns header then body parameters.
func (f FileFacts) Parameters() []Declaration {
	out := make([]Declaration, 0, len(f.HeaderParams)+len(f.BodyParams))
	out = append(out, f.HeaderParams...)
	return append(out, f.BodyParams...)
}

// New creates an Extractor; zero fields of opts take their defaults.
func New(opts Options) *Extractor {
	def := DefaultOptions()
	if opts.Vocabulary.ClockFragments == nil {
		opts.Vocabulary.ClockFragments = def.Vocabulary.ClockFragments
	}
	if opts.Vocabulary.ResetFragments == nil {
		opts.Vocabulary.ResetFragments = def.Vocabulary.ResetFragments
	}
	if opts.Match == "" {
		opts.Match = def.Match
	}
	if opts.PerLine == "" {
		opts.PerLine = def.PerLine
	}
	return &Extractor{opts: opts, classifier: NewClassifier(opts.Vocabulary)}
}

// Options returns the effective options.
func (e *Extractor) Options() Options {
	return e.opts
}

// Extract reads and scans the file at path. Failing to read the file is the
// only error.
func (e *Extractor) Extract(path string) (FileFacts, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileFacts{File: path}, fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()
	return e.ExtractReader(path, f)
}

type scannedLine struct {
	number int
	module string
	tokens []lexer.Token
}

// ExtractReader scans source read from r, reporting it as name.
func (e *Extractor) ExtractReader(name string, r io.Reader) (FileFacts, error) {
	facts := FileFacts{File: name}

	lines, err := readLines(r)
	if err != nil {
		return facts, fmt.Errorf("reading %s: %w", name, err)
	}

	// pass 1: declarations
	scanned := make([]scannedLine, 0, len(lines))
	module := ""
	for i, text := range lines {
		number := i + 1
		tokens, err := lexer.Tokenize(text)
		if err != nil {
			facts.Diagnostics = append(facts.Diagnostics, Diagnostic{Line: number, Kind: DiagnosticMalformed, Message: err.Error()})
			continue
		}
		if name, ok := matchModule(tokens); ok {
			module = name
			facts.Modules = append(facts.Modules, Module{Name: name, Line: number})
		}
		scanned = append(scanned, scannedLine{number: number, module: module, tokens: tokens})

		decl, err := e.classifier.classifyTokens(text, tokens)
		switch {
		case errors.Is(err, ErrNotDeclaration):
		case err != nil:
			facts.Diagnostics = append(facts.Diagnostics, Diagnostic{Line: number, Kind: DiagnosticMalformed, Message: err.Error()})
		default:
			decl.Line = number
			decl.Module = module
			for _, w := range decl.Warnings {
				facts.Diagnostics = append(facts.Diagnostics, Diagnostic{Line: number, Kind: DiagnosticConversion, Message: w})
			}
			switch {
			case decl.Category == CategoryPort:
				facts.Ports = append(facts.Ports, decl)
			case decl.Scope == ScopeBody:
				facts.BodyParams = append(facts.BodyParams, decl)
			default:
				facts.HeaderParams = append(facts.HeaderParams, decl)
			}
		}

		if isEndModule(tokens) {
			module = ""
		}
	}

	// pass 2: bindings against every declared parameter name
	params := facts.Parameters()
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	resolver := NewResolver(names, e.opts.Match, e.opts.PerLine)
	for _, sl := range scanned {
		for _, b := range resolver.resolveTokens(sl.tokens, sl.number) {
			b.Module = sl.module
			facts.Bindings = append(facts.Bindings, b)
		}
	}

	return facts, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
