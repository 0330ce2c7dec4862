// =============================================================================
// svpar - SystemVerilog parameter and port extractor
// =============================================================================
//
// THE PIPELINE:
//   1. Config resolves the source set (doublestar include/exclude)
//   2. Extractor classifies declarations line by line and resolves bindings
//   3. Indexer flattens facts into relational tables, cached per file
//   4. CUE validator enforces the table contract
//   5. OPA evaluates the rego checks against the tables
//   6. Facts and violations are reported as tables or JSON
// =============================================================================

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/robert-at-pretension-io/svpar/internal/config"
	"github.com/robert-at-pretension-io/svpar/internal/indexer"
)

// errViolations makes check exit non-zero without printing an error line.
var errViolations = errors.New("error-severity violations found")

// app holds the global flags and the logger built from them.
type app struct {
	verbose    bool
	configPath string
	jsonOutput bool

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "svpar",
		Short: "Extract SystemVerilog parameters, ports and parameter bindings",
		Long: `svpar scans SystemVerilog and Verilog sources line by line and extracts
module parameters (header and body), ports, and the parameter bindings of
parameterized instantiations. Facts can be printed as tables, exported as
relational JSON tables, or checked against rego rules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if a.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: search svpar.json / svpar.yaml)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "machine-readable JSON output")

	root.AddCommand(
		newScanCmd(a),
		newFactsCmd(a),
		newCheckCmd(a),
		newWatchCmd(a),
		newInitCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errViolations) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads --config when given, otherwise searches from path.
func (a *app) loadConfig(path string) (*config.Config, error) {
	if a.configPath != "" {
		cfg, err := config.LoadFile(a.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", a.configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func (a *app) newIndexer(cfg *config.Config) *indexer.Indexer {
	idx := indexer.NewWithConfig(cfg)
	idx.Logger = a.logger
	return idx
}

func writeJSONTo(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func writeJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return writeJSONTo(f, data)
}
