package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fort2hip/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the fort2hip build fingerprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		colorMode, _ := cmd.Flags().GetString("color")
		info := version.Current()
		switch strings.ToLower(format) {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "pretty", "":
			enabled := colorMode == "on" || (colorMode == "auto" && isTerminal(os.Stdout))
			fmt.Fprintln(cmd.OutOrStdout(), version.Banner(info, enabled))
			return nil
		}
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	},
}
