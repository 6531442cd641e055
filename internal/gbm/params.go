package gbm

// TrainingParams contains the boosting hyperparameters.
type TrainingParams struct {
	NumIterations  int     `json:"num_iterations"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	MinGainToSplit float64 `json:"min_gain_to_split"`

	// Seed drives the train/validation split in the pipeline. The boosting
	// loop itself is deterministic: exact greedy splits, no sampling.
	Seed int64 `json:"seed"`
}

// DefaultParams returns the production configuration: 200 rounds at learning
// rate 0.1 with depth-6 trees.
func DefaultParams() TrainingParams {
	return TrainingParams{
		NumIterations:  200,
		LearningRate:   0.1,
		MaxDepth:       6,
		MinSamplesLeaf: 20,
		MinGainToSplit: 1e-7,
		Seed:           42,
	}
}

// withDefaults fills unset fields so a partially populated TrainingParams is
// still usable.
func (p TrainingParams) withDefaults() TrainingParams {
	d := DefaultParams()
	if p.NumIterations <= 0 {
		p.NumIterations = d.NumIterations
	}
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinSamplesLeaf <= 0 {
		p.MinSamplesLeaf = d.MinSamplesLeaf
	}
	if p.MinGainToSplit <= 0 {
		p.MinGainToSplit = d.MinGainToSplit
	}
	return p
}
