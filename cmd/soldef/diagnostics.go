package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"soldef/internal/artifact"
)

var diagnosticsCmd = &cobra.Command{
	Use:          "diagnostics [artifact.json]",
	Short:        "Print the diagnostics recorded in a build artifact",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runDiagnostics,
}

func init() {
	diagnosticsCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	diagnosticsCmd.Flags().Bool("no-warnings", false, "show only errors")
}

type diagnosticPayload struct {
	File     string `json:"file"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Kind     string `json:"kind"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	artifactPath, _, err := resolveArtifactPath(cmd, args)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return fmt.Errorf("failed to get no-warnings flag: %w", err)
	}

	root, stats, err := artifact.Load(artifactPath)
	if err != nil {
		return err
	}
	if stats.DiagnosticsDropped > 0 {
		fmt.Fprintf(os.Stderr, "soldef: %d diagnostic records were incomplete and skipped\n", stats.DiagnosticsDropped)
	}

	diagnostics := root.Diagnostics
	if noWarnings {
		kept := diagnostics[:0:0]
		for _, d := range diagnostics {
			if d.Severity == artifact.SevError {
				kept = append(kept, d)
			}
		}
		diagnostics = kept
	}

	switch strings.ToLower(format) {
	case "json":
		payload := make([]diagnosticPayload, 0, len(diagnostics))
		for _, d := range diagnostics {
			payload = append(payload, diagnosticPayload{
				File:     d.Location.File,
				Start:    d.Location.Start,
				End:      d.Location.End,
				Kind:     d.Kind.String(),
				Code:     d.Code,
				Severity: d.Severity.String(),
				Message:  d.Message,
			})
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case "pretty":
		printPrettyDiagnostics(diagnostics)
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected pretty or json)", format)
	}
}

func printPrettyDiagnostics(diagnostics []artifact.Diagnostic) {
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return
	}
	errLabel := color.New(color.FgRed, color.Bold)
	warnLabel := color.New(color.FgYellow, color.Bold)
	errors := 0
	for _, d := range diagnostics {
		label := warnLabel.Sprintf("warning[%s]", d.Code)
		if d.Severity == artifact.SevError {
			label = errLabel.Sprintf("error[%s]", d.Code)
			errors++
		}
		fmt.Printf("%s %s:%d-%d\n    %s\n", label, d.Location.File, d.Location.Start, d.Location.End, d.Message)
	}
	fmt.Printf("\n%d diagnostics, %d errors\n", len(diagnostics), errors)
}
