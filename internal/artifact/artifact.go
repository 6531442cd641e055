// Package artifact persists and restores the encoder/scaler/model triple
// produced by a training run. Every file is stamped with the run ID; loading
// verifies that all artifacts came from the same run, since mixing encoders
// and models from different runs silently corrupts predictions.
package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"incidentcast/internal/gbm"
	"incidentcast/internal/preprocessing"
	"incidentcast/pkg/errors"
)

// Artifact file names under the artifacts directory. Saving overwrites any
// previous run; there is no versioning.
const (
	ManifestFile = "manifest.json"
	EncoderFile  = "encoders.json"
	ScalerFile   = "scaler.json"
	ModelFile    = "model.json"
)

// Validation holds the held-out metrics recorded at training time.
type Validation struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// Manifest describes one training run.
type Manifest struct {
	RunID      string     `json:"run_id"`
	CreatedAt  time.Time  `json:"created_at"`
	Features   []string   `json:"features"`
	TrainRows  int        `json:"train_rows"`
	ValidRows  int        `json:"valid_rows"`
	Validation Validation `json:"validation"`
}

// Bundle is the complete set of fitted artifacts. After Load it is treated as
// immutable and is safe for unlimited concurrent readers.
type Bundle struct {
	Manifest Manifest
	Encoders map[string]*preprocessing.LabelEncoder
	Scaler   *preprocessing.StandardScaler
	Model    *gbm.Model
}

// NewRunID mints the identifier stamped into every artifact of one run.
func NewRunID() string {
	return uuid.NewString()
}

// envelope wraps each artifact payload with its run ID.
type envelope struct {
	RunID   string          `json:"run_id"`
	Payload json.RawMessage `json:"payload"`
}

// Save writes the bundle under dir, overwriting any previous artifacts.
func Save(dir string, b *Bundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewArtifactError(dir, "cannot create artifacts directory", err)
	}

	if err := writeJSON(filepath.Join(dir, ManifestFile), b.Manifest); err != nil {
		return err
	}
	if err := writeEnvelope(filepath.Join(dir, EncoderFile), b.Manifest.RunID, b.Encoders); err != nil {
		return err
	}
	if err := writeEnvelope(filepath.Join(dir, ScalerFile), b.Manifest.RunID, b.Scaler); err != nil {
		return err
	}
	return writeEnvelope(filepath.Join(dir, ModelFile), b.Manifest.RunID, b.Model)
}

// Load restores the bundle from dir. Any missing or corrupt file, and any
// run-ID mismatch between files, is an ArtifactError; the caller treats that
// as fatal at startup.
func Load(dir string) (*Bundle, error) {
	b := &Bundle{}

	manifestPath := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, errors.NewArtifactError(manifestPath, "cannot read manifest", err)
	}
	if err := json.Unmarshal(data, &b.Manifest); err != nil {
		return nil, errors.NewArtifactError(manifestPath, "corrupt manifest", err)
	}
	if b.Manifest.RunID == "" {
		return nil, errors.NewArtifactError(manifestPath, "manifest has no run ID", nil)
	}

	if err := readEnvelope(filepath.Join(dir, EncoderFile), b.Manifest.RunID, &b.Encoders); err != nil {
		return nil, err
	}
	if err := readEnvelope(filepath.Join(dir, ScalerFile), b.Manifest.RunID, &b.Scaler); err != nil {
		return nil, err
	}
	if err := readEnvelope(filepath.Join(dir, ModelFile), b.Manifest.RunID, &b.Model); err != nil {
		return nil, err
	}

	if b.Model == nil || b.Model.NumFeatures == 0 {
		return nil, errors.NewArtifactError(filepath.Join(dir, ModelFile), "model is empty", nil)
	}
	if b.Scaler == nil || !b.Scaler.IsFitted() {
		return nil, errors.NewArtifactError(filepath.Join(dir, ScalerFile), "scaler is not fitted", nil)
	}
	if len(b.Manifest.Features) != b.Model.NumFeatures {
		return nil, errors.NewArtifactError(manifestPath, "feature list does not match model width", nil)
	}
	return b, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.NewArtifactError(path, "cannot marshal", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewArtifactError(path, "cannot write", err)
	}
	return nil
}

func writeEnvelope(path, runID string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.NewArtifactError(path, "cannot marshal payload", err)
	}
	return writeJSON(path, envelope{RunID: runID, Payload: raw})
}

func readEnvelope(path, wantRunID string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewArtifactError(path, "cannot read", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.NewArtifactError(path, "corrupt envelope", err)
	}
	if env.RunID != wantRunID {
		return errors.NewArtifactError(path, "run ID mismatch: artifact is from a different training run", nil)
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return errors.NewArtifactError(path, "corrupt payload", err)
	}
	return nil
}
