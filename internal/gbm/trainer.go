package gbm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"incidentcast/pkg/errors"
)

// Trainer fits a gradient-boosted ensemble minimizing squared error. With the
// L2 objective the negative gradient is the residual, so each round fits a
// regression tree to the current residuals and shrinks its leaf values by the
// learning rate.
type Trainer struct {
	params TrainingParams

	x     *mat.Dense
	rows  int
	cols  int
	label []float64

	preds []float64
	grads []float64

	initScore float64
	trees     []Tree
}

// NewTrainer creates a trainer, filling unset hyperparameters with defaults.
func NewTrainer(params TrainingParams) *Trainer {
	return &Trainer{params: params.withDefaults()}
}

// Fit trains the ensemble on X and y.
func (t *Trainer) Fit(X mat.Matrix, y *mat.VecDense) (err error) {
	defer errors.Recover(&err, "gbm.Trainer.Fit")

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewTrainingError("fit", "no training rows")
	}
	if y.Len() != rows {
		return errors.NewDimensionError("gbm.Trainer.Fit", rows, y.Len(), 0)
	}

	t.rows = rows
	t.cols = cols
	t.x = mat.DenseCopyOf(X)
	t.label = make([]float64, rows)
	for i := 0; i < rows; i++ {
		t.label[i] = y.AtVec(i)
	}

	// Initial score is the label mean, the L2-optimal constant.
	sum := 0.0
	for _, v := range t.label {
		sum += v
	}
	t.initScore = sum / float64(rows)
	if !isFinite(t.initScore) {
		return errors.NewTrainingError("init", "non-finite label mean")
	}

	t.preds = make([]float64, rows)
	for i := range t.preds {
		t.preds[i] = t.initScore
	}
	t.grads = make([]float64, rows)
	t.trees = t.trees[:0]

	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}

	for iter := 0; iter < t.params.NumIterations; iter++ {
		for i := 0; i < rows; i++ {
			t.grads[i] = t.label[i] - t.preds[i]
		}

		tree := t.buildTree(indices, iter)

		// A root-only tree means no split cleared the gain threshold;
		// further rounds would produce the same tree.
		if len(tree.Nodes) == 1 && math.Abs(tree.Nodes[0].LeafValue) < 1e-12 {
			break
		}

		for i := 0; i < rows; i++ {
			t.preds[i] += tree.Predict(t.x.RawRowView(i))
			if !isFinite(t.preds[i]) {
				return errors.NewTrainingError("boosting", "non-finite model score")
			}
		}
		t.trees = append(t.trees, tree)
	}

	if len(t.trees) == 0 {
		return errors.NewTrainingError("boosting", "no trees produced; every split was below min gain")
	}
	return nil
}

// GetModel returns the fitted ensemble.
func (t *Trainer) GetModel() *Model {
	return &Model{
		InitScore:   t.initScore,
		NumFeatures: t.cols,
		Params:      t.params,
		Trees:       t.trees,
	}
}

// buildTree grows one depth-limited tree on the current residuals.
func (t *Trainer) buildTree(indices []int, treeIndex int) Tree {
	b := &treeBuilder{trainer: t}
	b.grow(indices, 0)
	return Tree{
		TreeIndex:     treeIndex,
		ShrinkageRate: t.params.LearningRate,
		Nodes:         b.nodes,
	}
}

type treeBuilder struct {
	trainer *Trainer
	nodes   []Node
}

// grow recursively builds the subtree over the given sample indices and
// returns the node ID of its root.
func (b *treeBuilder) grow(indices []int, depth int) int {
	t := b.trainer

	sum := 0.0
	for _, i := range indices {
		sum += t.grads[i]
	}
	n := len(indices)
	leafValue := sum / float64(n)

	nodeID := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		LeftChild:  -1,
		RightChild: -1,
		LeafValue:  leafValue,
		LeafCount:  n,
	})

	if depth >= t.params.MaxDepth || n < 2*t.params.MinSamplesLeaf {
		return nodeID
	}

	split, ok := t.bestSplit(indices, sum)
	if !ok || split.gain < t.params.MinGainToSplit {
		return nodeID
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range indices {
		if t.x.At(i, split.feature) <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	leftID := b.grow(left, depth+1)
	rightID := b.grow(right, depth+1)

	node := &b.nodes[nodeID]
	node.LeftChild = leftID
	node.RightChild = rightID
	node.SplitFeature = split.feature
	node.Threshold = split.threshold
	node.Gain = split.gain
	node.LeafValue = 0
	return nodeID
}

type splitInfo struct {
	feature   int
	threshold float64
	gain      float64
}

// bestSplit scans every feature with an exact pre-sorted sweep and returns
// the split maximizing the reduction in residual sum of squares.
func (t *Trainer) bestSplit(indices []int, totalSum float64) (splitInfo, bool) {
	n := len(indices)
	minLeaf := t.params.MinSamplesLeaf
	baseScore := totalSum * totalSum / float64(n)

	best := splitInfo{gain: math.Inf(-1)}
	found := false

	values := make([]float64, n)
	grads := make([]float64, n)
	order := make([]int, n)

	for j := 0; j < t.cols; j++ {
		for k, i := range indices {
			values[k] = t.x.At(i, j)
			order[k] = k
		}
		sort.Slice(order, func(a, c int) bool {
			return values[order[a]] < values[order[c]]
		})
		for k, o := range order {
			grads[k] = t.grads[indices[o]]
		}

		leftSum := 0.0
		for k := 0; k < n-1; k++ {
			leftSum += grads[k]

			vLo := values[order[k]]
			vHi := values[order[k+1]]
			if vLo == vHi {
				continue
			}

			nL := k + 1
			nR := n - nL
			if nL < minLeaf || nR < minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			gain := leftSum*leftSum/float64(nL) + rightSum*rightSum/float64(nR) - baseScore
			if gain > best.gain {
				best = splitInfo{feature: j, threshold: (vLo + vHi) / 2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
