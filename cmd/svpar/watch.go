package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-at-pretension-io/svpar/internal/indexer"
	"github.com/robert-at-pretension-io/svpar/internal/policy"
	"github.com/robert-at-pretension-io/svpar/internal/report"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Re-run the checks whenever a source file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cfg, err := a.loadConfig(path)
			if err != nil {
				return err
			}
			idx := a.newIndexer(cfg)
			idx.Checks = true

			out := cmd.OutOrStdout()
			handler := func(result *indexer.Result, impacted []string, err error) {
				if err != nil {
					a.logger.Error("rescan failed", zap.Error(err))
					return
				}
				if len(impacted) > 0 {
					fmt.Fprintf(out, "\nchanged: %s\n", strings.Join(impacted, ", "))
				}
				pr := &policy.Result{Violations: result.Violations, Summary: result.Summary}
				if a.jsonOutput {
					_ = writeJSONTo(out, pr)
					return
				}
				_ = report.RenderViolations(out, pr, report.Options{Color: true})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := indexer.NewWatcher(idx, indexer.WatchOptions{Debounce: debounce}, handler)
			if err != nil {
				return err
			}
			if err := w.Start(ctx, path); err != nil {
				return err
			}
			defer w.Stop()

			select {
			case <-ctx.Done():
			case <-w.Done():
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "quiet period before a rescan")
	return cmd
}
