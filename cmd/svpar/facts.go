package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/svpar/internal/facts"
)

func newFactsCmd(a *app) *cobra.Command {
	var output, deltaFrom, deltaOut string
	var only []string
	cmd := &cobra.Command{
		Use:   "facts <path>",
		Short: "Export the relational fact tables as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (deltaFrom == "") != (deltaOut == "") {
				return fmt.Errorf("--delta-from and --delta-out must be used together")
			}
			path := args[0]
			cfg, err := a.loadConfig(path)
			if err != nil {
				return err
			}
			result, err := a.newIndexer(cfg).Run(cmd.Context(), path)
			if err != nil {
				return err
			}

			tables := result.Tables
			keep := onlyFiles(path, only)
			if keep != nil {
				tables = facts.FilterTablesByFiles(tables, keep)
			}

			if output != "" {
				if err := writeJSON(output, tables); err != nil {
					return fmt.Errorf("writing facts: %w", err)
				}
			} else if err := writeJSONTo(cmd.OutOrStdout(), tables); err != nil {
				return fmt.Errorf("encoding facts: %w", err)
			}

			if deltaFrom != "" {
				prev, err := readTables(deltaFrom)
				if err != nil {
					return fmt.Errorf("reading delta-from: %w", err)
				}
				delta := facts.ComputeDelta(prev, result.Tables)
				if keep != nil {
					delta = facts.FilterDeltaByFiles(delta, keep)
				}
				if err := writeJSON(deltaOut, delta); err != nil {
					return fmt.Errorf("writing delta: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write facts JSON to file (default: stdout)")
	cmd.Flags().StringVar(&deltaFrom, "delta-from", "", "previous facts JSON to compute delta from")
	cmd.Flags().StringVar(&deltaOut, "delta-out", "", "write delta JSON to file (requires --delta-from)")
	cmd.Flags().StringArrayVar(&only, "file", nil, "only emit rows for this file, relative to <path> or the working directory (repeatable)")
	return cmd
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

// onlyFiles turns --file values into the set of row paths to keep. A value
// may name the file as scanned or relative to root. Nil means keep all.
func onlyFiles(root string, values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	keep := make(map[string]bool, 2*len(values))
	for _, v := range values {
		keep[filepath.Clean(v)] = true
		keep[filepath.Join(root, v)] = true
	}
	return keep
}
