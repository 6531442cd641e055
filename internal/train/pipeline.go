// Package train implements the offline training pipeline: dataset to fitted
// artifacts. It runs as a batch job and must complete before the inference
// service is started with its output.
package train

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"incidentcast/internal/artifact"
	"incidentcast/internal/dataset"
	"incidentcast/internal/gbm"
	"incidentcast/internal/metrics"
	"incidentcast/internal/preprocessing"
	"incidentcast/pkg/errors"
)

// Config drives one training run.
type Config struct {
	DatasetPath  string
	ArtifactsDir string
	Params       gbm.TrainingParams

	// ValidationFraction is the held-out share of rows, default 0.2.
	ValidationFraction float64
}

// Report summarizes a completed run.
type Report struct {
	RunID     string
	Rows      int
	TrainRows int
	ValidRows int
	NumTrees  int
	RMSE      float64
	MAE       float64
	R2        float64
}

// Run executes the pipeline: load, encode, scale, split, fit, validate, save.
func Run(cfg Config, logger zerolog.Logger) (*Report, error) {
	frac := cfg.ValidationFraction
	if frac <= 0 || frac >= 1 {
		frac = 0.2
	}

	incidents, err := dataset.LoadLabeled(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("rows", len(incidents)).Str("path", cfg.DatasetPath).
		Msg("dataset loaded")

	encoders, err := fitEncoders(incidents)
	if err != nil {
		return nil, err
	}

	X, y, err := featureMatrix(incidents, encoders)
	if err != nil {
		return nil, err
	}

	scaler := preprocessing.NewStandardScaler()
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		return nil, err
	}

	trainX, trainY, validX, validY, err := split(Xs, y, frac, cfg.Params.Seed)
	if err != nil {
		return nil, err
	}
	trainRows, _ := trainX.Dims()
	validRows, _ := validX.Dims()
	logger.Info().Int("train_rows", trainRows).Int("valid_rows", validRows).
		Msg("split complete")

	trainer := gbm.NewTrainer(cfg.Params)
	if err := trainer.Fit(trainX, trainY); err != nil {
		return nil, err
	}
	model := trainer.GetModel()
	logger.Info().Int("trees", model.NumTrees()).Msg("model fitted")

	preds, err := model.PredictBatch(validX)
	if err != nil {
		return nil, err
	}
	rmse, err := metrics.RMSE(validY, preds)
	if err != nil {
		return nil, err
	}
	mae, err := metrics.MAE(validY, preds)
	if err != nil {
		return nil, err
	}
	r2, err := metrics.R2(validY, preds)
	if err != nil {
		return nil, err
	}
	logger.Info().Float64("rmse", rmse).Float64("mae", mae).Float64("r2", r2).
		Msg("validation metrics")

	runID := artifact.NewRunID()
	bundle := &artifact.Bundle{
		Manifest: artifact.Manifest{
			RunID:      runID,
			CreatedAt:  time.Now().UTC(),
			Features:   dataset.FeatureColumns(),
			TrainRows:  trainRows,
			ValidRows:  validRows,
			Validation: artifact.Validation{RMSE: rmse, MAE: mae, R2: r2},
		},
		Encoders: encoders,
		Scaler:   scaler,
		Model:    model,
	}
	if err := artifact.Save(cfg.ArtifactsDir, bundle); err != nil {
		return nil, err
	}
	logger.Info().Str("run_id", runID).Str("dir", cfg.ArtifactsDir).
		Msg("artifacts saved")

	return &Report{
		RunID:     runID,
		Rows:      len(incidents),
		TrainRows: trainRows,
		ValidRows: validRows,
		NumTrees:  model.NumTrees(),
		RMSE:      rmse,
		MAE:       mae,
		R2:        r2,
	}, nil
}

// fitEncoders fits one label encoder per categorical column.
func fitEncoders(incidents []dataset.Incident) (map[string]*preprocessing.LabelEncoder, error) {
	encoders := make(map[string]*preprocessing.LabelEncoder)
	for ci, col := range dataset.CategoricalColumns() {
		values := make([]string, len(incidents))
		for i := range incidents {
			values[i] = incidents[i].Categoricals()[ci]
		}
		enc := preprocessing.NewLabelEncoder(col)
		if err := enc.Fit(values); err != nil {
			return nil, err
		}
		encoders[col] = enc
	}
	return encoders, nil
}

// featureMatrix builds the raw feature matrix and label vector in the fixed
// column order of dataset.FeatureColumns.
func featureMatrix(incidents []dataset.Incident, encoders map[string]*preprocessing.LabelEncoder) (*mat.Dense, *mat.VecDense, error) {
	cols := len(dataset.FeatureColumns())
	X := mat.NewDense(len(incidents), cols, nil)
	y := mat.NewVecDense(len(incidents), nil)

	catCols := dataset.CategoricalColumns()
	for i := range incidents {
		in := &incidents[i]
		X.Set(i, 0, float64(in.Year))
		X.Set(i, 1, float64(in.Month))
		X.Set(i, 2, float64(in.Day))
		X.Set(i, 3, float64(in.CountryID))
		X.Set(i, 4, float64(in.RegionID))

		for ci, col := range catCols {
			code, err := encoders[col].TransformStrict(in.Categoricals()[ci])
			if err != nil {
				return nil, nil, err
			}
			X.Set(i, 5+ci, float64(code))
		}
		y.SetVec(i, in.Fatalities)
	}
	return X, y, nil
}

// split shuffles rows with the seeded generator and carves off the
// validation fraction.
func split(X *mat.Dense, y *mat.VecDense, frac float64, seed int64) (*mat.Dense, *mat.VecDense, *mat.Dense, *mat.VecDense, error) {
	rows, cols := X.Dims()
	nValid := int(float64(rows) * frac)
	nTrain := rows - nValid
	if nValid == 0 {
		return nil, nil, nil, nil, errors.NewTrainingError("split", "validation set is empty")
	}
	if nTrain == 0 {
		return nil, nil, nil, nil, errors.NewTrainingError("split", "training set is empty")
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(rows)

	trainX := mat.NewDense(nTrain, cols, nil)
	trainY := mat.NewVecDense(nTrain, nil)
	validX := mat.NewDense(nValid, cols, nil)
	validY := mat.NewVecDense(nValid, nil)

	for k, idx := range perm {
		if k < nTrain {
			trainX.SetRow(k, X.RawRowView(idx))
			trainY.SetVec(k, y.AtVec(idx))
		} else {
			validX.SetRow(k-nTrain, X.RawRowView(idx))
			validY.SetVec(k-nTrain, y.AtVec(idx))
		}
	}
	return trainX, trainY, validX, validY, nil
}
