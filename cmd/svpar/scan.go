package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/svpar/internal/extractor"
	"github.com/robert-at-pretension-io/svpar/internal/report"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		logFile     string
		encoding    string
		allBindings bool
		match       string
	)
	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Print the parameters, ports and bindings found under path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cfg, err := a.loadConfig(path)
			if err != nil {
				return err
			}
			if allBindings {
				cfg.Extract.PerLine = string(extractor.PerLineAll)
			}
			if match != "" {
				cfg.Extract.MatchMode = match
			}
			if logFile != "" {
				cfg.Report.LogFile = logFile
			}
			if encoding != "" {
				cfg.Report.Encoding = encoding
			}

			result, err := a.newIndexer(cfg).Run(cmd.Context(), path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				if err := writeJSONTo(out, result.Facts); err != nil {
					return fmt.Errorf("encoding facts: %w", err)
				}
			} else if err := report.Render(out, result.Facts, report.Options{Color: true}); err != nil {
				return err
			}
			for _, fe := range result.FileErrors {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", fe.File, fe.Message)
			}

			if cfg.Report.LogFile != "" {
				if err := report.WriteLog(cfg.Report.LogFile, cfg.Report.Encoding, result.Facts); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&logFile, "log", "", "also write the report to this file")
	cmd.Flags().StringVar(&encoding, "encoding", "", "log file encoding: utf-8 or utf-16")
	cmd.Flags().BoolVar(&allBindings, "all-bindings", false, "record every binding on an instantiation line, not just the first")
	cmd.Flags().StringVar(&match, "match", "", "binding match mode: formal, actual or either")
	return cmd
}
