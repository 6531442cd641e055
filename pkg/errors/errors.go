// Package errors provides the error taxonomy shared by the training pipeline
// and the inference service. Error types carry structured fields and marshal
// themselves onto zerolog events; stack traces come from cockroachdb/errors.
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// DataError reports a malformed or incomplete dataset. It is raised at
// training time only; the serving side never reads the raw CSV directly.
type DataError struct {
	Path    string
	Missing []string
	Reason  string
}

func (e *DataError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("incidentcast: dataset %s: missing required columns: %s",
			e.Path, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("incidentcast: dataset %s: %s", e.Path, e.Reason)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DataError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("path", e.Path).
		Strs("missing_columns", e.Missing).
		Str("reason", e.Reason).
		Str("type", "DataError")
}

// NewDataError creates a DataError with a stack trace attached.
func NewDataError(path string, missing []string, reason string) error {
	err := &DataError{Path: path, Missing: missing, Reason: reason}
	return errors.WithStack(err)
}

// TrainingError reports a model fitting failure: an empty validation split,
// no usable training rows, or a non-finite score during boosting.
type TrainingError struct {
	Stage  string
	Reason string
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("incidentcast: training failed in %s: %s", e.Stage, e.Reason)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *TrainingError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("stage", e.Stage).
		Str("reason", e.Reason).
		Str("type", "TrainingError")
}

// NewTrainingError creates a TrainingError with a stack trace attached.
func NewTrainingError(stage, reason string) error {
	err := &TrainingError{Stage: stage, Reason: reason}
	return errors.WithStack(err)
}

// ArtifactError reports a failure to persist or load the trained artifacts,
// including a run-ID mismatch between artifact files. Fatal at service startup.
type ArtifactError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ArtifactError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("incidentcast: artifact %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("incidentcast: artifact %s: %s", e.Path, e.Reason)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ArtifactError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("path", e.Path).
		Str("reason", e.Reason).
		Str("type", "ArtifactError")
	if e.Err != nil {
		ev.AnErr("cause", e.Err)
	}
}

// NewArtifactError creates an ArtifactError with a stack trace attached.
func NewArtifactError(path, reason string, cause error) error {
	err := &ArtifactError{Path: path, Reason: reason, Err: cause}
	return errors.WithStack(err)
}

// ValidationError reports a malformed request field. It is recoverable and is
// returned to the caller as a 4xx response, never crashing the service.
type ValidationError struct {
	Field  string
	Reason string
	Value  interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("incidentcast: invalid field '%s': %s (got: %v)", e.Field, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("field", e.Field).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(field, reason string, value interface{}) error {
	err := &ValidationError{Field: field, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// UnknownCategoryError reports a categorical value that was never observed
// during training. The default encoder policy maps such values to a reserved
// sentinel code instead of raising this error; it is returned only by the
// strict transform path.
type UnknownCategoryError struct {
	Column string
	Value  string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("incidentcast: column '%s': category %q was not seen during training", e.Column, e.Value)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *UnknownCategoryError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("column", e.Column).
		Str("value", e.Value).
		Str("type", "UnknownCategoryError")
}

// NewUnknownCategoryError creates an UnknownCategoryError with a stack trace.
func NewUnknownCategoryError(column, value string) error {
	err := &UnknownCategoryError{Column: column, Value: value}
	return errors.WithStack(err)
}

// NotFittedError is returned when Transform or Predict is called on an
// estimator before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("incidentcast: %s: this estimator is not fitted yet. Call Fit() before using %s()",
		e.ModelName, e.Method)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError is returned when input dimensions do not match what an
// estimator learned during training.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("incidentcast: %s: dimension mismatch on axis %d (%s). Expected %d, got %d",
		e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ErrEmptyData is returned when an estimator receives no rows.
var ErrEmptyData = New("empty data")
