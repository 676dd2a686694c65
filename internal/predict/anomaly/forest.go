package anomaly

import (
	"math"
	"math/rand"
)

// IsolationForest is an ensemble of random isolation trees. Outliers need
// fewer random splits to isolate, so short average path lengths mean high
// anomaly scores. Trees are plain exported structs so a trained forest
// round-trips through the JSON model artifact.
type IsolationForest struct {
	Trees          []*TreeNode `json:"trees"`
	SubSampleSize  int         `json:"sub_sample_size"`
	ScoreThreshold float64     `json:"score_threshold"`
}

// TreeNode is one node of an isolation tree. A node with no children is a
// leaf; Size records how many training points reached it.
type TreeNode struct {
	SplitFeature int       `json:"split_feature"`
	SplitValue   float64   `json:"split_value"`
	Size         int       `json:"size"`
	Left         *TreeNode `json:"left,omitempty"`
	Right        *TreeNode `json:"right,omitempty"`
}

// ForestConfig controls training.
type ForestConfig struct {
	NumTrees      int
	SubSampleSize int
	MaxDepth      int
	// ScoreThreshold marks a point as an outlier when its score exceeds it.
	ScoreThreshold float64
	// Seed fixes the random source; 0 keeps results reproducible too, the
	// zero seed is as valid as any other.
	Seed int64
}

// DefaultForestConfig returns the standard training parameters.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:       100,
		SubSampleSize:  256,
		MaxDepth:       8,
		ScoreThreshold: 0.6,
	}
}

// FitForest trains an isolation forest on the scaled feature rows.
func FitForest(rows [][]float64, cfg ForestConfig) *IsolationForest {
	if cfg.NumTrees <= 0 {
		cfg.NumTrees = DefaultForestConfig().NumTrees
	}
	if cfg.SubSampleSize <= 0 {
		cfg.SubSampleSize = DefaultForestConfig().SubSampleSize
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultForestConfig().MaxDepth
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = DefaultForestConfig().ScoreThreshold
	}

	forest := &IsolationForest{
		Trees:          make([]*TreeNode, 0, cfg.NumTrees),
		SubSampleSize:  cfg.SubSampleSize,
		ScoreThreshold: cfg.ScoreThreshold,
	}
	if len(rows) == 0 {
		return forest
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	for i := 0; i < cfg.NumTrees; i++ {
		sample := sampleRows(rows, cfg.SubSampleSize, rng)
		forest.Trees = append(forest.Trees, buildTree(sample, 0, cfg.MaxDepth, rng))
	}
	return forest
}

// Score returns the anomaly score in [0,1] for one scaled feature vector and
// whether it crosses the outlier threshold. An untrained forest scores
// everything as a borderline inlier.
func (f *IsolationForest) Score(features []float64) (float64, bool) {
	if len(f.Trees) == 0 {
		return 0.5, false
	}

	var total float64
	for _, tree := range f.Trees {
		total += pathLength(tree, features, 0)
	}
	avg := total / float64(len(f.Trees))

	// score = 2^(-avg / c(n)) with c(n) the expected unsuccessful-search
	// path length in a BST of n nodes.
	c := expectedPathLength(f.SubSampleSize)
	if c == 0 {
		return 0.5, false
	}
	score := math.Pow(2, -avg/c)
	return score, score > f.ScoreThreshold
}

func sampleRows(rows [][]float64, size int, rng *rand.Rand) [][]float64 {
	if size > len(rows) {
		size = len(rows)
	}
	shuffled := make([][]float64, len(rows))
	copy(shuffled, rows)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:size]
}

func buildTree(rows [][]float64, depth, maxDepth int, rng *rand.Rand) *TreeNode {
	if len(rows) <= 1 || depth >= maxDepth || allIdentical(rows) {
		return &TreeNode{Size: len(rows)}
	}

	feature := rng.Intn(len(rows[0]))
	lo, hi := featureRange(rows, feature)
	if lo == hi {
		return &TreeNode{Size: len(rows)}
	}
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range rows {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &TreeNode{Size: len(rows)}
	}

	return &TreeNode{
		SplitFeature: feature,
		SplitValue:   split,
		Size:         len(rows),
		Left:         buildTree(left, depth+1, maxDepth, rng),
		Right:        buildTree(right, depth+1, maxDepth, rng),
	}
}

func pathLength(node *TreeNode, features []float64, depth int) float64 {
	if node.Left == nil && node.Right == nil {
		return float64(depth) + expectedPathLength(node.Size)
	}
	if node.SplitFeature < len(features) && features[node.SplitFeature] < node.SplitValue {
		return pathLength(node.Left, features, depth+1)
	}
	return pathLength(node.Right, features, depth+1)
}

// expectedPathLength is c(n) = 2H(n-1) - 2(n-1)/n, the average path length of
// an unsuccessful BST search over n points.
func expectedPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	harmonic := math.Log(float64(n-1)) + 0.5772156649
	return 2*harmonic - 2*float64(n-1)/float64(n)
}

func allIdentical(rows [][]float64) bool {
	if len(rows) <= 1 {
		return true
	}
	first := rows[0]
	for _, row := range rows[1:] {
		for i := range first {
			if math.Abs(row[i]-first[i]) > 1e-10 {
				return false
			}
		}
	}
	return true
}

func featureRange(rows [][]float64, feature int) (float64, float64) {
	lo, hi := rows[0][feature], rows[0][feature]
	for _, row := range rows {
		if row[feature] < lo {
			lo = row[feature]
		}
		if row[feature] > hi {
			hi = row[feature]
		}
	}
	return lo, hi
}
