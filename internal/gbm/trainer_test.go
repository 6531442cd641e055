package gbm

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func syntheticData(n int) (*mat.Dense, *mat.VecDense) {
	// y = 2*x1 + 3*x2 with a small deterministic wobble.
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x1 := float64(i) / 10.0
		x2 := float64(i%10) / 5.0
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		y.SetVec(i, 2*x1+3*x2+0.1*float64(i%3-1))
	}
	return X, y
}

func testParams() TrainingParams {
	return TrainingParams{
		NumIterations:  30,
		LearningRate:   0.1,
		MaxDepth:       4,
		MinSamplesLeaf: 3,
		MinGainToSplit: 1e-7,
		Seed:           42,
	}
}

func TestTrainerFitReducesError(t *testing.T) {
	X, y := syntheticData(100)

	trainer := NewTrainer(testParams())
	require.NoError(t, trainer.Fit(X, y))

	model := trainer.GetModel()
	require.NotNil(t, model)
	assert.Greater(t, model.NumTrees(), 0, "no trees were built")

	// The fitted model must beat the constant baseline on training data.
	var baselineSSE, modelSSE float64
	for i := 0; i < 100; i++ {
		pred, err := model.Predict(X.RawRowView(i))
		require.NoError(t, err)
		baseDiff := y.AtVec(i) - model.InitScore
		diff := y.AtVec(i) - pred
		baselineSSE += baseDiff * baseDiff
		modelSSE += diff * diff
	}
	assert.Less(t, modelSSE, baselineSSE/2, "boosting barely improved on the mean")
}

func TestTrainerDeterminism(t *testing.T) {
	X, y := syntheticData(80)

	a := NewTrainer(testParams())
	b := NewTrainer(testParams())
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	ma := a.GetModel()
	mb := b.GetModel()
	require.Equal(t, ma.NumTrees(), mb.NumTrees())

	for i := 0; i < 80; i++ {
		pa, err := ma.Predict(X.RawRowView(i))
		require.NoError(t, err)
		pb, err := mb.Predict(X.RawRowView(i))
		require.NoError(t, err)
		assert.Equal(t, pa, pb, "predictions diverge at row %d", i)
	}
}

func TestPredictIdempotent(t *testing.T) {
	X, y := syntheticData(60)
	trainer := NewTrainer(testParams())
	require.NoError(t, trainer.Fit(X, y))
	model := trainer.GetModel()

	features := []float64{3.5, 1.2}
	first, err := model.Predict(features)
	require.NoError(t, err)
	second, err := model.Predict(features)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.False(t, math.IsNaN(first))
	assert.False(t, math.IsInf(first, 0))
}

func TestModelJSONRoundTrip(t *testing.T) {
	X, y := syntheticData(60)
	trainer := NewTrainer(testParams())
	require.NoError(t, trainer.Fit(X, y))
	model := trainer.GetModel()

	data, err := json.Marshal(model)
	require.NoError(t, err)
	var restored Model
	require.NoError(t, json.Unmarshal(data, &restored))

	for i := 0; i < 60; i++ {
		want, err := model.Predict(X.RawRowView(i))
		require.NoError(t, err)
		got, err := restored.Predict(X.RawRowView(i))
		require.NoError(t, err)
		assert.Equal(t, want, got, "restored model diverges at row %d", i)
	}
}

func TestTrainerEmptyData(t *testing.T) {
	trainer := NewTrainer(testParams())
	err := trainer.Fit(mat.NewDense(1, 1, []float64{1}), mat.NewVecDense(2, []float64{1, 2}))
	assert.Error(t, err, "row/label count mismatch must fail")
}

func TestModelDimensionCheck(t *testing.T) {
	X, y := syntheticData(60)
	trainer := NewTrainer(testParams())
	require.NoError(t, trainer.Fit(X, y))

	_, err := trainer.GetModel().Predict([]float64{1})
	assert.Error(t, err)
}
