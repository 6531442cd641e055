// Package gbm implements gradient-boosted regression trees for the fatality
// model: squared-error boosting over depth-limited trees grown by exact
// greedy variance-reduction splits.
package gbm

// Node is a single node in a flattened decision tree. Children are indices
// into the tree's node slice; -1 marks a leaf.
type Node struct {
	LeftChild  int `json:"left"`
	RightChild int `json:"right"`

	// Split information, for internal nodes.
	SplitFeature int     `json:"feature"`
	Threshold    float64 `json:"threshold"`
	Gain         float64 `json:"gain"`

	// Leaf information.
	LeafValue float64 `json:"value"`
	LeafCount int     `json:"count"`
}

// IsLeaf reports whether the node is a terminal node.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is one regression tree in the ensemble.
type Tree struct {
	TreeIndex     int     `json:"index"`
	ShrinkageRate float64 `json:"shrinkage"`
	Nodes         []Node  `json:"nodes"`
}

// Predict walks the tree for one sample and returns the shrunken leaf value.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0
}

// NumLeaves counts the terminal nodes.
func (t *Tree) NumLeaves() int {
	leaves := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			leaves++
		}
	}
	return leaves
}
