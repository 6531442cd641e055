package gbm

import (
	"gonum.org/v1/gonum/mat"

	"incidentcast/pkg/errors"
)

// Model is a fitted gradient-boosted ensemble. It is immutable after
// training and safe for concurrent readers.
type Model struct {
	InitScore   float64        `json:"init_score"`
	NumFeatures int            `json:"num_features"`
	Params      TrainingParams `json:"params"`
	Trees       []Tree         `json:"trees"`
}

// Predict returns the ensemble output for one feature vector.
func (m *Model) Predict(features []float64) (float64, error) {
	if len(features) != m.NumFeatures {
		return 0, errors.NewDimensionError("gbm.Model.Predict", m.NumFeatures, len(features), 1)
	}

	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score, nil
}

// PredictBatch returns ensemble outputs for every row of X.
func (m *Model) PredictBatch(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("gbm.Model.PredictBatch", m.NumFeatures, cols, 1)
	}

	out := mat.NewVecDense(rows, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			features[j] = X.At(i, j)
		}
		score, err := m.Predict(features)
		if err != nil {
			return nil, err
		}
		out.SetVec(i, score)
	}
	return out, nil
}

// NumTrees returns the ensemble size.
func (m *Model) NumTrees() int {
	return len(m.Trees)
}
