package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"incidentcast/internal/dataset"
	"incidentcast/internal/gbm"
	"incidentcast/internal/preprocessing"
	"incidentcast/pkg/errors"
)

// testBundle builds a minimal fitted bundle: encoders for the three
// categorical columns, a scaler over the 8 feature columns, and a stump
// ensemble.
func testBundle(t *testing.T) *Bundle {
	t.Helper()

	encoders := make(map[string]*preprocessing.LabelEncoder)
	values := map[string][]string{
		dataset.ColAttackType: {"Armed Assault", "Bombing/Explosion"},
		dataset.ColTargetType: {"Military", "Police"},
		dataset.ColWeaponType: {"Explosives", "Firearms"},
	}
	for _, col := range dataset.CategoricalColumns() {
		enc := preprocessing.NewLabelEncoder(col)
		require.NoError(t, enc.Fit(values[col]))
		encoders[col] = enc
	}

	cols := len(dataset.FeatureColumns())
	X := mat.NewDense(4, cols, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < cols; j++ {
			X.Set(i, j, float64(i+j))
		}
	}
	scaler := preprocessing.NewStandardScaler()
	require.NoError(t, scaler.Fit(X))

	model := &gbm.Model{
		InitScore:   2.5,
		NumFeatures: cols,
		Trees: []gbm.Tree{{
			ShrinkageRate: 0.1,
			Nodes: []gbm.Node{
				{LeftChild: 1, RightChild: 2, SplitFeature: 0, Threshold: 0},
				{LeftChild: -1, RightChild: -1, LeafValue: -1, LeafCount: 2},
				{LeftChild: -1, RightChild: -1, LeafValue: 1, LeafCount: 2},
			},
		}},
	}

	return &Bundle{
		Manifest: Manifest{
			RunID:     NewRunID(),
			CreatedAt: time.Now().UTC(),
			Features:  dataset.FeatureColumns(),
			TrainRows: 4,
			ValidRows: 1,
		},
		Encoders: encoders,
		Scaler:   scaler,
		Model:    model,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	bundle := testBundle(t)
	require.NoError(t, Save(dir, bundle))

	loaded, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, bundle.Manifest.RunID, loaded.Manifest.RunID)
	assert.Equal(t, bundle.Model.NumFeatures, loaded.Model.NumFeatures)
	assert.True(t, loaded.Scaler.IsFitted())
	for _, col := range dataset.CategoricalColumns() {
		require.Contains(t, loaded.Encoders, col)
		assert.True(t, loaded.Encoders[col].IsFitted())
	}
}

func TestLoadRejectsMixedRuns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, testBundle(t)))

	// Swap in a model from a different run.
	modelPath := filepath.Join(dir, ModelFile)
	data, err := os.ReadFile(modelPath)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	env.RunID = NewRunID()
	data, err = json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(modelPath, data, 0o644))

	_, err = Load(dir)
	var artifactErr *errors.ArtifactError
	require.True(t, errors.As(err, &artifactErr), "error = %v, want ArtifactError", err)
	assert.Contains(t, artifactErr.Reason, "run ID mismatch")
}

func TestLoadMissingArtifacts(t *testing.T) {
	_, err := Load(t.TempDir())
	var artifactErr *errors.ArtifactError
	assert.True(t, errors.As(err, &artifactErr))
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	first := testBundle(t)
	require.NoError(t, Save(dir, first))

	second := testBundle(t)
	require.NoError(t, Save(dir, second))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, second.Manifest.RunID, loaded.Manifest.RunID)
}

func TestEstimateClampsNegative(t *testing.T) {
	bundle := testBundle(t)
	bundle.Model.InitScore = -10 // force a negative raw score

	est, _, err := bundle.Estimate(Observation{
		Year: 2015, CountryID: 95, RegionID: 10,
		AttackType: "Armed Assault", TargetType: "Military", WeaponType: "Firearms",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, est, "negative estimates must clamp to zero")
}

func TestEstimateReportsUnknownCategories(t *testing.T) {
	bundle := testBundle(t)

	_, unknown, err := bundle.Estimate(Observation{
		Year: 2015, CountryID: 95, RegionID: 10,
		AttackType: "Orbital Laser", TargetType: "Military", WeaponType: "Firearms",
	})
	require.NoError(t, err, "unknown categories encode to the sentinel, not an error")
	assert.Equal(t, []string{dataset.ColAttackType}, unknown)
}

func TestEstimateDeterministic(t *testing.T) {
	bundle := testBundle(t)
	obs := Observation{
		Year: 2016, Month: 3, Day: 14, CountryID: 92, RegionID: 6,
		AttackType: "Bombing/Explosion", TargetType: "Police", WeaponType: "Explosives",
	}

	first, _, err := bundle.Estimate(obs)
	require.NoError(t, err)
	second, _, err := bundle.Estimate(obs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
