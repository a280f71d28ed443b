package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"soldef/internal/driver"
	"soldef/internal/ui"
)

var exploreCmd = &cobra.Command{
	Use:          "explore [artifact.json]",
	Short:        "Browse the position index interactively",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runExplore,
}

func runExplore(cmd *cobra.Command, args []string) error {
	artifactPath, manifest, err := resolveArtifactPath(cmd, args)
	if err != nil {
		return err
	}
	result, err := driver.Build(artifactPath, driver.BuildOptions{Cache: openCache(cmd, manifest)})
	if err != nil {
		return err
	}

	model := ui.NewExplorer(result.Index)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, err = program.Run()
	return err
}
