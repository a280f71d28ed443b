package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"soldef/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "soldef",
	Short: "Definition server over Solidity build artifacts",
	Long:  `soldef indexes a compiler build artifact and answers go-to-definition and hover queries over it`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(diagnosticsCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("artifact", "", "path to the build artifact (overrides soldef.toml)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "bypass the on-disk index cache")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		configureColor(cmd)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configureColor(cmd *cobra.Command) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		mode = "auto"
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(os.Stdout)
	}
}

// isTerminal reports whether the file is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
