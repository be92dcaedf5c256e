package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/ats-tailor/internal/observability"
	"github.com/jonathan/ats-tailor/internal/pipeline"
)

var scoreCommand = &cobra.Command{
	Use:   "score",
	Short: "Score a candidate profile against a job description",
	Long: `Extracts ranked keywords from the job description, maps them onto the profile
and prints the ATS score with its breakdown. Nothing is optimized, rendered or stored.`,
	RunE: runScore,
}

var (
	scoreJob     string
	scoreProfile string
	scoreOut     string
	scoreVerbose bool
)

func init() {
	scoreCommand.Flags().StringVarP(&scoreJob, "job", "j", "", "Path to job description JSON")
	scoreCommand.Flags().StringVarP(&scoreProfile, "profile", "p", "", "Path to candidate profile JSON")
	scoreCommand.Flags().StringVarP(&scoreOut, "out", "o", "", "Write the score result JSON here instead of stdout")
	scoreCommand.Flags().BoolVarP(&scoreVerbose, "verbose", "v", false, "Print stage summaries")

	_ = scoreCommand.MarkFlagRequired("job")
	_ = scoreCommand.MarkFlagRequired("profile")
	rootCmd.AddCommand(scoreCommand)
}

func runScore(cmd *cobra.Command, _ []string) error {
	job, profile, err := readInputs(scoreJob, scoreProfile)
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
	if scoreVerbose {
		p = p.WithPrinter(observability.NewPrinter(os.Stdout))
	}

	result, err := p.Score(cmd.Context(), job, profile)
	if err != nil {
		return err
	}
	return writeOutput(scoreOut, result)
}
