package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/svpar/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	var asYAML, force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default svpar.json (or svpar.yaml) configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := "svpar.json"
			if asYAML {
				configPath = "svpar.yaml"
			}
			if a.configPath != "" {
				configPath = a.configPath
			}
			out := cmd.OutOrStdout()

			if _, err := os.Stat(configPath); err == nil && !force {
				fmt.Fprintf(out, "Config file %s already exists. Overwrite? [y/N]: ", configPath)
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.TrimSpace(response)
				if response != "y" && response != "Y" {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			if err := config.DefaultConfig().Save(configPath); err != nil {
				return fmt.Errorf("creating config: %w", err)
			}

			fmt.Fprintf(out, "Created %s\n", configPath)
			fmt.Fprintln(out, "\nEdit this file to configure:")
			fmt.Fprintln(out, "  - Source include/exclude patterns")
			fmt.Fprintln(out, "  - Clock and reset name fragments")
			fmt.Fprintln(out, "  - Rule severities")
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "write svpar.yaml instead of svpar.json")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite without asking")
	return cmd
}
