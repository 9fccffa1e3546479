package ml

import (
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node of a CART tree. Exported fields keep the whole tree
// JSON-serializable for artifacts. Leaves carry a class probability
// (classification) or an additive value (boosting).
type TreeNode struct {
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Left      *TreeNode `json:"l,omitempty"`
	Right     *TreeNode `json:"r,omitempty"`
	Leaf      bool      `json:"leaf,omitempty"`
	Value     float64   `json:"v"`
}

// Eval walks the tree for one feature row.
func (n *TreeNode) Eval(x []float64) float64 {
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

type treeConfig struct {
	maxDepth    int
	minLeaf     int
	featureFrac float64 // fraction of features considered per split; 0 = all
	rng         *rand.Rand
}

// buildClassTree grows a gini-impurity classification tree on binary targets.
// Leaf value is the positive-class fraction.
func buildClassTree(X [][]float64, y []float64, idx []int, depth int, cfg treeConfig) *TreeNode {
	pos := 0.0
	for _, i := range idx {
		pos += y[i]
	}
	prob := pos / float64(len(idx))

	if depth >= cfg.maxDepth || len(idx) < 2*cfg.minLeaf || prob == 0 || prob == 1 {
		return &TreeNode{Leaf: true, Value: prob}
	}

	feat, thr, ok := bestGiniSplit(X, y, idx, cfg)
	if !ok {
		return &TreeNode{Leaf: true, Value: prob}
	}

	left, right := partition(X, idx, feat, thr)
	if len(left) < cfg.minLeaf || len(right) < cfg.minLeaf {
		return &TreeNode{Leaf: true, Value: prob}
	}
	return &TreeNode{
		Feature:   feat,
		Threshold: thr,
		Left:      buildClassTree(X, y, left, depth+1, cfg),
		Right:     buildClassTree(X, y, right, depth+1, cfg),
	}
}

// buildGradTree grows a regression tree on gradient/hessian statistics with
// Newton leaf values, the usual second-order boosting formulation.
func buildGradTree(X [][]float64, grad, hess []float64, idx []int, depth int, cfg treeConfig) *TreeNode {
	const lambda = 1.0

	var g, h float64
	for _, i := range idx {
		g += grad[i]
		h += hess[i]
	}
	leaf := &TreeNode{Leaf: true, Value: -g / (h + lambda)}

	if depth >= cfg.maxDepth || len(idx) < 2*cfg.minLeaf {
		return leaf
	}

	feat, thr, ok := bestGainSplit(X, grad, hess, idx, cfg, lambda)
	if !ok {
		return leaf
	}
	left, right := partition(X, idx, feat, thr)
	if len(left) < cfg.minLeaf || len(right) < cfg.minLeaf {
		return leaf
	}
	return &TreeNode{
		Feature:   feat,
		Threshold: thr,
		Left:      buildGradTree(X, grad, hess, left, depth+1, cfg),
		Right:     buildGradTree(X, grad, hess, right, depth+1, cfg),
	}
}

func bestGiniSplit(X [][]float64, y []float64, idx []int, cfg treeConfig) (int, float64, bool) {
	bestFeat, bestThr := -1, 0.0
	bestScore := math.Inf(1)

	for _, feat := range candidateFeatures(len(X[0]), cfg) {
		order := sortedByFeature(X, idx, feat)
		total := float64(len(order))
		var posLeft, posTotal float64
		for _, i := range order {
			posTotal += y[i]
		}
		for k := 0; k < len(order)-1; k++ {
			posLeft += y[order[k]]
			a, b := X[order[k]][feat], X[order[k+1]][feat]
			if a == b {
				continue
			}
			nl := float64(k + 1)
			nr := total - nl
			pl := posLeft / nl
			pr := (posTotal - posLeft) / nr
			score := nl*gini(pl) + nr*gini(pr)
			if score < bestScore {
				bestScore = score
				bestFeat = feat
				bestThr = (a + b) / 2
			}
		}
	}
	return bestFeat, bestThr, bestFeat >= 0
}

func bestGainSplit(X [][]float64, grad, hess []float64, idx []int, cfg treeConfig, lambda float64) (int, float64, bool) {
	var gTot, hTot float64
	for _, i := range idx {
		gTot += grad[i]
		hTot += hess[i]
	}
	parent := gTot * gTot / (hTot + lambda)

	bestFeat, bestThr := -1, 0.0
	bestGain := 1e-9

	for _, feat := range candidateFeatures(len(X[0]), cfg) {
		order := sortedByFeature(X, idx, feat)
		var gl, hl float64
		for k := 0; k < len(order)-1; k++ {
			gl += grad[order[k]]
			hl += hess[order[k]]
			a, b := X[order[k]][feat], X[order[k+1]][feat]
			if a == b {
				continue
			}
			gr := gTot - gl
			hr := hTot - hl
			gain := gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parent
			if gain > bestGain {
				bestGain = gain
				bestFeat = feat
				bestThr = (a + b) / 2
			}
		}
	}
	return bestFeat, bestThr, bestFeat >= 0
}

func candidateFeatures(d int, cfg treeConfig) []int {
	if cfg.featureFrac <= 0 || cfg.featureFrac >= 1 || cfg.rng == nil {
		all := make([]int, d)
		for i := range all {
			all[i] = i
		}
		return all
	}
	k := int(math.Ceil(cfg.featureFrac * float64(d)))
	if k < 1 {
		k = 1
	}
	perm := cfg.rng.Perm(d)
	feats := perm[:k]
	sort.Ints(feats)
	return feats
}

func sortedByFeature(X [][]float64, idx []int, feat int) []int {
	order := make([]int, len(idx))
	copy(order, idx)
	sort.SliceStable(order, func(a, b int) bool {
		return X[order[a]][feat] < X[order[b]][feat]
	})
	return order
}

func partition(X [][]float64, idx []int, feat int, thr float64) (left, right []int) {
	for _, i := range idx {
		if X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func gini(p float64) float64 {
	return 2 * p * (1 - p)
}
