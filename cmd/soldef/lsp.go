package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"soldef/internal/driver"
	"soldef/internal/lsp"
	"soldef/internal/resolver"
)

var lspCmd = &cobra.Command{
	Use:          "lsp [artifact.json]",
	Short:        "Run the soldef language server over stdio",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runLSP,
}

func runLSP(cmd *cobra.Command, args []string) error {
	artifactPath, manifest, err := resolveArtifactPath(cmd, args)
	if err != nil {
		return err
	}

	result, err := driver.Build(artifactPath, driver.BuildOptions{Cache: openCache(cmd, manifest)})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "soldef: indexed %d nodes across %d files (cached=%v)\n",
		result.Index.Len(), len(result.Index.Files()), result.FromCache)

	server := lsp.NewServer(os.Stdin, os.Stdout, resolver.New(result.Index))
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}
