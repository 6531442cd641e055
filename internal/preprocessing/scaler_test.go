package preprocessing

import (
	"encoding/json"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"incidentcast/pkg/errors"
)

func TestStandardScalerFitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	scaler := NewStandardScaler()
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	// Each transformed column has mean 0 and unit variance.
	r, c := Xs.Dims()
	for j := 0; j < c; j++ {
		var sum, sumSq float64
		for i := 0; i < r; i++ {
			sum += Xs.At(i, j)
			sumSq += Xs.At(i, j) * Xs.At(i, j)
		}
		mean := sum / float64(r)
		variance := sumSq/float64(r) - mean*mean
		if math.Abs(mean) > 1e-10 {
			t.Errorf("column %d mean = %g, want 0", j, mean)
		}
		if math.Abs(variance-1) > 1e-10 {
			t.Errorf("column %d variance = %g, want 1", j, variance)
		}
	}
}

func TestStandardScalerConstantColumn(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})
	scaler := NewStandardScaler()
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if v := Xs.At(i, 0); v != 0 {
			t.Errorf("constant column transformed to %g, want 0", v)
		}
	}
}

func TestStandardScalerTransformRow(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 0, 2, 4})
	scaler := NewStandardScaler()
	if err := scaler.Fit(X); err != nil {
		t.Fatal(err)
	}

	row, err := scaler.TransformRow([]float64{1, 2})
	if err != nil {
		t.Fatalf("TransformRow failed: %v", err)
	}
	// (1-1)/1 = 0 and (2-2)/2 = 0 with mean [1 2], std [1 2].
	if math.Abs(row[0]) > 1e-10 || math.Abs(row[1]) > 1e-10 {
		t.Errorf("TransformRow = %v, want [0 0]", row)
	}

	if _, err := scaler.TransformRow([]float64{1}); err == nil {
		t.Error("dimension mismatch not detected")
	}
}

func TestStandardScalerNotFitted(t *testing.T) {
	scaler := NewStandardScaler()
	_, err := scaler.Transform(mat.NewDense(1, 1, []float64{1}))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Fatalf("error = %v, want NotFittedError", err)
	}
}

func TestStandardScalerJSONRestore(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	scaler := NewStandardScaler()
	if err := scaler.Fit(X); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(scaler)
	if err != nil {
		t.Fatal(err)
	}
	var restored StandardScaler
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatal(err)
	}

	if !restored.IsFitted() {
		t.Fatal("restored scaler is not fitted")
	}
	want, err := scaler.TransformRow([]float64{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	got, err := restored.TransformRow([]float64{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if math.Abs(want[i]-got[i]) > 1e-12 {
			t.Errorf("restored transform differs at %d: %g vs %g", i, got[i], want[i])
		}
	}
}
