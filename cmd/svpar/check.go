package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-at-pretension-io/svpar/internal/indexer"
	"github.com/robert-at-pretension-io/svpar/internal/policy"
	"github.com/robert-at-pretension-io/svpar/internal/report"
)

func newCheckCmd(a *app) *cobra.Command {
	var clearCache bool
	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Run the rule checks; exits non-zero on error-severity violations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cfg, err := a.loadConfig(path)
			if err != nil {
				return err
			}
			if clearCache {
				dir, err := indexer.ClearCache(path, cfg)
				if err != nil {
					return err
				}
				a.logger.Debug("cache cleared", zap.String("dir", dir))
			}

			idx := a.newIndexer(cfg)
			idx.Checks = true
			result, err := idx.Run(cmd.Context(), path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pr := &policy.Result{Violations: result.Violations, Summary: result.Summary}
			if a.jsonOutput {
				if err := writeJSONTo(out, pr); err != nil {
					return fmt.Errorf("encoding violations: %w", err)
				}
			} else if err := report.RenderViolations(out, pr, report.Options{Color: true}); err != nil {
				return err
			}

			if result.HasErrors() {
				return errViolations
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearCache, "clear-cache", false, "remove the cache directory before checking")
	return cmd
}
