package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rameshbaboov/docmerger/internal/config"
	"github.com/rameshbaboov/docmerger/internal/ledger"
	"github.com/rameshbaboov/docmerger/internal/status"
)

// runStatus prints the current merge state as a table, or as JSON with
// -json.
func runStatus(cfg config.Settings, asJSON bool) error {
	rep, err := status.Collect(cfg)
	if err != nil {
		return err
	}

	if asJSON {
		out, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		_, err = os.Stdout.Write(append(out, '\n'))
		return err
	}

	fmt.Printf("Input folder: %s\n", rep.InputDir)
	if rep.ArtifactExists {
		fmt.Printf("Artifact:     %s\n", rep.ArtifactPath)
	} else {
		fmt.Printf("Artifact:     %s (not created yet)\n", rep.ArtifactPath)
	}
	if rep.LastMerged != "" {
		fmt.Printf("Last merged:  %s\n", rep.LastMerged)
	}
	fmt.Printf("Ledger:       %s\n", rep.LedgerPath)
	fmt.Println()

	if len(rep.Files) == 0 {
		fmt.Println("No candidate documents found.")
		return nil
	}

	for _, f := range rep.Files {
		marker := "○"
		switch f.Outcome {
		case string(ledger.OutcomeSuccess):
			marker = "✓"
		case string(ledger.OutcomeError):
			marker = "✗"
		}
		fmt.Printf("  %s %-40s [%s]\n", marker, f.Name, f.Outcome)
	}
	fmt.Printf("\n%d pending, %d succeeded, %d failed\n", rep.Pending, rep.Succeeded, rep.Failed)
	return nil
}
