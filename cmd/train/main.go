// Command train runs the offline training pipeline: it reads the incident
// CSV, fits the encoders, scaler, and boosted model, and writes the artifact
// bundle. Exit code is non-zero on any data or training failure.
package main

import (
	"flag"
	"os"

	"incidentcast/internal/gbm"
	"incidentcast/internal/train"
	"incidentcast/pkg/log"
)

func main() {
	var (
		dataPath     = flag.String("data", "gt.csv", "path to the incident dataset CSV")
		artifactsDir = flag.String("out", "models", "artifact output directory")
		iterations   = flag.Int("iterations", 200, "boosting rounds")
		learningRate = flag.Float64("learning-rate", 0.1, "shrinkage per round")
		maxDepth     = flag.Int("max-depth", 6, "maximum tree depth")
		minLeaf      = flag.Int("min-leaf", 20, "minimum samples per leaf")
		valFraction  = flag.Float64("val-fraction", 0.2, "held-out validation fraction")
		seed         = flag.Int64("seed", 42, "random seed for the train/validation split")
		logLevel     = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger := log.New(log.Config{Level: *logLevel, Console: true})

	report, err := train.Run(train.Config{
		DatasetPath:  *dataPath,
		ArtifactsDir: *artifactsDir,
		Params: gbm.TrainingParams{
			NumIterations:  *iterations,
			LearningRate:   *learningRate,
			MaxDepth:       *maxDepth,
			MinSamplesLeaf: *minLeaf,
			Seed:           *seed,
		},
		ValidationFraction: *valFraction,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("training failed")
		os.Exit(1)
	}

	logger.Info().
		Str("run_id", report.RunID).
		Int("trees", report.NumTrees).
		Float64("rmse", report.RMSE).
		Float64("mae", report.MAE).
		Msg("pipeline complete")
}
