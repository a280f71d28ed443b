package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"soldef/internal/driver"
)

var indexCmd = &cobra.Command{
	Use:          "index [artifact.json]",
	Short:        "Build the position index and report per-file statistics",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runIndex,
}

func init() {
	indexCmd.Flags().Int("jobs", 0, "max parallel workers for source verification (0=auto)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	artifactPath, manifest, err := resolveArtifactPath(cmd, args)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}

	result, err := driver.Build(artifactPath, driver.BuildOptions{Cache: openCache(cmd, manifest)})
	if err != nil {
		return err
	}

	source := "fresh walk"
	if result.FromCache {
		source = "disk cache"
	}
	maxDepth := 0
	for _, fileID := range result.Index.Files() {
		for _, e := range result.Index.Entries(fileID) {
			if e.Depth > maxDepth {
				maxDepth = e.Depth
			}
		}
	}
	fmt.Printf("artifact: %s\n", artifactPath)
	fmt.Printf("entries:  %d across %d files, deepest node at depth %d (%s)\n",
		result.Index.Len(), len(result.Index.Files()), maxDepth, source)
	if result.Stats.Total() > 0 {
		color.Yellow("dropped:  %d incomplete records (sources=%d diagnostics=%d build_infos=%d)",
			result.Stats.Total(), result.Stats.SourcesDropped,
			result.Stats.DiagnosticsDropped, result.Stats.BuildInfosDropped)
	}
	fmt.Println()

	statuses, err := driver.VerifySources(cmd.Context(), result.Index, jobs)
	if err != nil {
		return err
	}
	okLabel := color.New(color.FgGreen).Sprint("ok     ")
	missingLabel := color.New(color.FgRed).Sprint("missing")
	missing := 0
	for _, status := range statuses {
		if status.Exists {
			fmt.Printf("  %s  file %-4d %6d entries  %8d bytes  %.12s  %s\n",
				okLabel, status.FileID, status.Entries, status.Size, status.Digest, status.Path)
		} else {
			missing++
			fmt.Printf("  %s  file %-4d %6d entries  %s\n",
				missingLabel, status.FileID, status.Entries, status.Path)
		}
	}
	if missing > 0 {
		fmt.Fprintf(os.Stderr, "soldef: %d mapped sources missing on disk; queries against them will fail\n", missing)
	}
	return nil
}
