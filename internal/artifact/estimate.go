package artifact

import (
	"incidentcast/internal/dataset"
	"incidentcast/pkg/errors"
)

// Observation is one raw feature tuple submitted for prediction.
type Observation struct {
	Year      int
	Month     int
	Day       int
	CountryID int
	RegionID  int

	AttackType string
	TargetType string
	WeaponType string
}

// Estimate applies the exact encoding and scaling learned during training and
// returns the fatality estimate, clamped at zero since fatality counts cannot
// be negative. Categorical values never seen during training encode to the
// reserved sentinel; their column names are returned so callers can surface
// the degraded input.
func (b *Bundle) Estimate(o Observation) (float64, []string, error) {
	raw := []float64{
		float64(o.Year), float64(o.Month), float64(o.Day),
		float64(o.CountryID), float64(o.RegionID),
	}

	values := []string{o.AttackType, o.TargetType, o.WeaponType}
	var unknown []string
	for i, col := range dataset.CategoricalColumns() {
		enc, ok := b.Encoders[col]
		if !ok {
			return 0, nil, errors.NewArtifactError(EncoderFile, "no encoder for column "+col, nil)
		}
		code, seen := enc.Transform(values[i])
		if !seen {
			unknown = append(unknown, col)
		}
		raw = append(raw, float64(code))
	}

	scaled, err := b.Scaler.TransformRow(raw)
	if err != nil {
		return 0, nil, err
	}

	score, err := b.Model.Predict(scaled)
	if err != nil {
		return 0, nil, err
	}
	if score < 0 {
		score = 0
	}
	return score, unknown, nil
}
