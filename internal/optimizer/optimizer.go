// Package optimizer iteratively rewrites a profile to raise its ATS score.
package optimizer

import (
	"context"

	"github.com/jonathan/ats-tailor/internal/logging"
	"github.com/jonathan/ats-tailor/internal/scoring"
	"github.com/jonathan/ats-tailor/internal/types"
	"go.uber.org/zap"
)

// Defaults for the optimization loop
const (
	DefaultMaxIterations = 5
	DefaultTargetScore   = 8.5
	// MinImprovement is the smallest per-round gain that keeps the loop going
	MinImprovement = 0.2
)

// NoChanges is logged for a round whose transforms changed nothing
const NoChanges = "No changes"

// Mapper re-maps keywords after each round
type Mapper interface {
	Map(ctx context.Context, ranked []types.RankedKeyword, profile types.CandidateProfile) (types.KeywordMapping, types.ProviderDecision, error)
}

// Optimizer runs the bounded tighten, insert, reorder and trim loop
type Optimizer struct {
	mapper        Mapper
	maxIterations int
	targetScore   float64
	logger        *zap.Logger
}

// New creates an Optimizer. Non-positive limits fall back to the defaults.
func New(mapper Mapper, maxIterations int, targetScore float64, logger *zap.Logger) *Optimizer {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if targetScore <= 0 {
		targetScore = DefaultTargetScore
	}
	return &Optimizer{
		mapper:        mapper,
		maxIterations: maxIterations,
		targetScore:   targetScore,
		logger:        logging.WithFields(logger, zap.String(logging.FieldStage, "optimizer")),
	}
}

// Optimize improves profile starting from its current mapping and score.
// Rounds stop once the target is reached, the gain drops below
// MinImprovement or the iteration budget runs out. A worse round is kept.
func (o *Optimizer) Optimize(
	ctx context.Context,
	job types.JobDescription,
	profile types.CandidateProfile,
	extraction types.KeywordExtraction,
	mapping types.KeywordMapping,
	score types.ATSScore,
) (types.OptimizerResult, error) {
	current := profile.Clone()
	currentScore := score
	currentMapping := mapping
	iterations := []types.OptimizerIteration{}

	for i := 1; i <= o.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return types.OptimizerResult{}, err
		}

		var changes, step []string
		current, step = Tighten(current)
		changes = append(changes, step...)
		current, step = InsertKeywords(current, extraction.RankedKeywords, currentMapping, InsertWeightThreshold)
		changes = append(changes, step...)
		current, step = Reorder(current, extraction.RankedKeywords)
		changes = append(changes, step...)
		current, step = Trim(current)
		changes = append(changes, step...)

		newMapping, decision, err := o.mapper.Map(ctx, extraction.RankedKeywords, current)
		if err != nil {
			return types.OptimizerResult{}, err
		}
		newScore := scoring.Score(job, current, extraction, newMapping)

		if len(changes) == 0 {
			changes = []string{NoChanges}
		}
		iterations = append(iterations, types.OptimizerIteration{
			Iteration:       i,
			Changes:         changes,
			ScoreBefore:     currentScore.Score,
			ScoreAfter:      newScore.Score,
			MappingDecision: decision,
		})
		o.logger.Debug("optimizer round",
			zap.Int("iteration", i),
			zap.Int("changes", len(changes)),
			zap.Float64("score_before", currentScore.Score),
			zap.Float64("score_after", newScore.Score))

		delta := newScore.Score - currentScore.Score
		currentScore = newScore
		currentMapping = newMapping

		if newScore.Score >= o.targetScore || delta < MinImprovement {
			break
		}
	}

	o.logger.Info("optimization finished",
		zap.Int("iterations", len(iterations)),
		zap.Float64("final_score", currentScore.Score))

	return types.OptimizerResult{
		OptimizedProfile: current,
		Iterations:       iterations,
		FinalScore:       currentScore.Score,
		FinalScoreDetail: currentScore,
		FinalMapping:     currentMapping,
	}, nil
}
