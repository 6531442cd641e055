package preprocessing

import (
	"encoding/json"
	"sort"

	"incidentcast/internal/model"
	"incidentcast/pkg/errors"
)

// LabelEncoder maps the string values of one categorical column to stable
// integer codes. Codes are assigned in sorted order of the observed values so
// that repeated training runs over the same data produce the same mapping.
//
// Unknown-category policy: a value not seen during training encodes to the
// reserved sentinel code len(Classes), one past the last learned code. The
// sentinel never aliases a learned class, unlike mapping unknowns to code 0.
// Callers that want to reject unseen values instead use TransformStrict.
type LabelEncoder struct {
	model.BaseEstimator

	// Column is the dataset column this encoder was fitted on.
	Column string `json:"column"`

	// Classes holds the observed values in code order.
	Classes []string `json:"classes"`

	codes map[string]int
}

// NewLabelEncoder creates an unfitted encoder for the named column.
func NewLabelEncoder(column string) *LabelEncoder {
	return &LabelEncoder{Column: column}
}

// Fit learns the value-to-code mapping from the observed values.
func (le *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LabelEncoder.Fit")
	}

	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}

	le.Classes = make([]string, 0, len(seen))
	for v := range seen {
		le.Classes = append(le.Classes, v)
	}
	sort.Strings(le.Classes)

	le.rebuild()
	le.SetFitted()
	return nil
}

// Transform encodes a single value. The second return reports whether the
// value was seen during training; unseen values encode to UnknownCode.
func (le *LabelEncoder) Transform(value string) (int, bool) {
	if code, ok := le.codes[value]; ok {
		return code, true
	}
	return le.UnknownCode(), false
}

// TransformStrict encodes a single value, returning UnknownCategoryError for
// values not seen during training.
func (le *LabelEncoder) TransformStrict(value string) (int, error) {
	if !le.IsFitted() {
		return 0, errors.NewNotFittedError("LabelEncoder", "TransformStrict")
	}
	if code, ok := le.codes[value]; ok {
		return code, nil
	}
	return 0, errors.NewUnknownCategoryError(le.Column, value)
}

// InverseTransform returns the original string for a learned code.
func (le *LabelEncoder) InverseTransform(code int) (string, error) {
	if !le.IsFitted() {
		return "", errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}
	if code < 0 || code >= len(le.Classes) {
		return "", errors.NewValidationError("code", "outside the learned code range", code)
	}
	return le.Classes[code], nil
}

// UnknownCode is the reserved sentinel for values not seen during training.
func (le *LabelEncoder) UnknownCode() int {
	return len(le.Classes)
}

// UnmarshalJSON restores the encoder and rebuilds its lookup table.
func (le *LabelEncoder) UnmarshalJSON(data []byte) error {
	type plain struct {
		Column  string   `json:"column"`
		Classes []string `json:"classes"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	le.Column = p.Column
	le.Classes = p.Classes
	le.rebuild()
	if len(le.Classes) > 0 {
		le.SetFitted()
	}
	return nil
}

func (le *LabelEncoder) rebuild() {
	le.codes = make(map[string]int, len(le.Classes))
	for i, v := range le.Classes {
		le.codes[v] = i
	}
}
