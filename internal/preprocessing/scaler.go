// Package preprocessing implements the feature encoding and scaling applied
// identically at training and inference time.
package preprocessing

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/mat"

	"incidentcast/internal/model"
	"incidentcast/pkg/errors"
)

// StandardScaler standardizes features to zero mean and unit variance. The
// statistics learned during training are persisted and reapplied unchanged at
// inference time.
type StandardScaler struct {
	model.BaseEstimator

	// Mean holds the per-feature mean.
	Mean []float64 `json:"mean"`

	// Scale holds the per-feature standard deviation.
	Scale []float64 `json:"scale"`

	// NFeatures is the number of features seen during Fit.
	NFeatures int `json:"n_features"`
}

// NewStandardScaler creates an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes the per-feature mean and standard deviation.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "StandardScaler.Fit")
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		s.Mean[j] = sum / float64(r)
	}

	for j := 0; j < c; j++ {
		sumSquares := 0.0
		for i := 0; i < r; i++ {
			diff := X.At(i, j) - s.Mean[j]
			sumSquares += diff * diff
		}
		s.Scale[j] = math.Sqrt(sumSquares / float64(r))

		// Constant columns scale by 1 to avoid division by zero.
		if math.Abs(s.Scale[j]) < 1e-8 {
			s.Scale[j] = 1.0
		}
	}

	s.SetFitted()
	return nil
}

// Transform standardizes X using the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits the scaler and transforms the same data.
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// UnmarshalJSON restores the scaler statistics and the fitted state.
func (s *StandardScaler) UnmarshalJSON(data []byte) error {
	type plain struct {
		Mean      []float64 `json:"mean"`
		Scale     []float64 `json:"scale"`
		NFeatures int       `json:"n_features"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	s.Mean = p.Mean
	s.Scale = p.Scale
	s.NFeatures = p.NFeatures
	if s.NFeatures > 0 {
		s.SetFitted()
	}
	return nil
}

// TransformRow standardizes a single feature vector in place-free form. This
// is the serving-time path: one request, one row.
func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "TransformRow")
	}
	if len(row) != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.TransformRow", s.NFeatures, len(row), 1)
	}

	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}
