package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"mcqbank-service/internal/config"
)

// NewIngestCmd builds the subcommand that processes one text document into
// question bundles.
func NewIngestCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>",
		Short: "Build question bundles from a text document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), *configPath, args[0])
		},
	}
}

func runIngest(ctx context.Context, configPath, docPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	data, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	text := truncateRunes(string(data), cfg.Pipeline.MaxChars)

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	report, err := buildPipeline(cfg, d).Run(ctx, text)
	if err != nil {
		return err
	}

	log.Printf("ingest: %d chunks, %d extracted, %d generated, %d rejected, %d duplicates",
		report.Chunks, report.Extracted, report.Generated, report.Rejected, report.Duplicates)
	if report.FailedCalls > 0 {
		log.Printf("ingest: %d generation calls failed and were skipped", report.FailedCalls)
	}
	if report.Bundles == 0 {
		log.Printf("ingest: no new questions accepted, nothing bundled")
		return nil
	}
	log.Printf("ingest: %d questions accepted into %d bundle(s) starting at %d",
		report.Accepted, report.Bundles, report.FirstSeq)
	return nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
