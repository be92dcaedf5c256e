package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/ats-tailor/internal/observability"
	"github.com/jonathan/ats-tailor/internal/pipeline"
)

var generateCommand = &cobra.Command{
	Use:   "generate",
	Short: "Generate a tailored one-page résumé",
	Long: `Runs the full pipeline: extraction -> mapping -> scoring -> optimization -> assembly -> rendering.

The rendered PDF and the audit record are stored under the run id in the configured
artifact store (ARTIFACT_DIR, or PostgreSQL when DATABASE_URL is set).`,
	RunE: runGenerate,
}

var (
	generateJob     string
	generateProfile string
	generateRunID   string
	generateOut     string
	generateVerbose bool
)

func init() {
	generateCommand.Flags().StringVarP(&generateJob, "job", "j", "", "Path to job description JSON")
	generateCommand.Flags().StringVarP(&generateProfile, "profile", "p", "", "Path to candidate profile JSON")
	generateCommand.Flags().StringVar(&generateRunID, "run-id", "", "Run id used as the artifact namespace (random UUID if empty)")
	generateCommand.Flags().StringVarP(&generateOut, "out", "o", "", "Write the full result JSON to this file")
	generateCommand.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print stage summaries")

	_ = generateCommand.MarkFlagRequired("job")
	_ = generateCommand.MarkFlagRequired("profile")
	rootCmd.AddCommand(generateCommand)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	job, profile, err := readInputs(generateJob, generateProfile)
	if err != nil {
		return err
	}

	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	p, cleanup, err := pipeline.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer cleanup()
	if generateVerbose {
		p = p.WithPrinter(observability.NewPrinter(os.Stdout))
	}

	result, err := p.Generate(cmd.Context(), job, profile, generateRunID)
	var overflow *pipeline.RenderOverflowError
	if errors.As(err, &overflow) {
		fmt.Fprintf(os.Stderr, "Document still %d pages after %d attempts.\n", overflow.PageCount, len(overflow.Attempts))
		for _, trim := range overflow.Trims {
			fmt.Fprintf(os.Stderr, "  - %s\n", trim)
		}
	}
	if err != nil {
		return err
	}

	if generateOut != "" {
		if err := writeOutput(generateOut, result); err != nil {
			return err
		}
	}

	fmt.Printf("Run:       %s\n", result.RunID)
	fmt.Printf("ATS score: %.2f\n", result.ATSScore)
	if len(result.Gaps) > 0 {
		fmt.Printf("Gaps:      %s\n", strings.Join(result.Gaps, ", "))
	}
	fmt.Printf("PDF:       %s\n", result.PDFPath)
	fmt.Printf("Audit:     %s\n", result.AuditPath)
	return nil
}
