package ml

import (
	"math"
	"math/rand"
	"sort"
	"sync"
)

// Forest implements the isolation forest algorithm. Points that are easy to
// isolate in feature space receive scores near 1; the bulk of the data
// scores near or below 0.5.
type Forest struct {
	numTrees      int
	subsampleSize int
	trees         []*isolationTree
	avgPathLength float64
	threshold     float64
	trained       bool
}

// NewForest creates an isolation forest. Zero arguments select the
// defaults: 100 trees over subsamples of 256 points.
func NewForest(numTrees, subsampleSize int) *Forest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if subsampleSize <= 0 {
		subsampleSize = 256
	}
	return &Forest{
		numTrees:      numTrees,
		subsampleSize: subsampleSize,
		trees:         make([]*isolationTree, numTrees),
	}
}

// Fit builds the ensemble on the feature matrix and derives the anomaly
// threshold as the (1-contamination) quantile of the training scores.
// Trees are built concurrently; each goroutine owns one index-disjoint slot.
func (f *Forest) Fit(data [][]float64, contamination float64) {
	if len(data) == 0 {
		return
	}

	f.avgPathLength = averagePathLength(len(data))
	maxHeight := int(math.Ceil(math.Log2(float64(minInt(f.subsampleSize, len(data))))))
	if maxHeight < 1 {
		maxHeight = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < f.numTrees; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(idx) + 1))
			tree := &isolationTree{maxHeight: maxHeight}
			tree.fit(subsample(data, f.subsampleSize, rng), 0, rng)
			f.trees[idx] = tree
		}(i)
	}
	wg.Wait()
	f.trained = true

	scores := f.Score(data)
	f.threshold = quantile(scores, 1-contamination)
}

// Score returns the anomaly score per sample: s(x,n) = 2^(-E(h(x))/c(n)).
func (f *Forest) Score(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	if !f.trained {
		return scores
	}
	for i, sample := range data {
		scores[i] = f.scoreOne(sample)
	}
	return scores
}

// Threshold returns the score above which a point counts as anomalous.
func (f *Forest) Threshold() float64 {
	return f.threshold
}

func (f *Forest) scoreOne(sample []float64) float64 {
	if f.avgPathLength == 0 {
		return 0.5
	}

	var totalPath float64
	for _, tree := range f.trees {
		if tree != nil {
			totalPath += tree.pathLength(sample, 0)
		}
	}

	avgPath := totalPath / float64(f.numTrees)
	return math.Pow(2, -avgPath/f.avgPathLength)
}

// subsample draws up to size rows without replacement.
func subsample(data [][]float64, size int, rng *rand.Rand) [][]float64 {
	n := len(data)
	if size > n {
		size = n
	}

	indices := rng.Perm(n)[:size]
	sample := make([][]float64, size)
	for i, idx := range indices {
		sample[i] = data[idx]
	}
	return sample
}

// quantile returns the q-th quantile of the values (nearest rank).
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// BST search, used to normalize tree depths.
func averagePathLength(n int) float64 {
	switch {
	case n > 2:
		fn := float64(n)
		return 2.0*(math.Log(fn-1)+0.5772156649) - 2.0*(fn-1)/fn
	case n == 2:
		return 1.0
	default:
		return 0
	}
}

type isolationTree struct {
	maxHeight    int
	splitFeature int
	splitValue   float64
	left         *isolationTree
	right        *isolationTree
	size         int
	isLeaf       bool
}

func (t *isolationTree) fit(data [][]float64, depth int, rng *rand.Rand) {
	t.size = len(data)

	if len(data) <= 1 || depth >= t.maxHeight {
		t.isLeaf = true
		return
	}

	numFeatures := len(data[0])
	if numFeatures == 0 {
		t.isLeaf = true
		return
	}

	t.splitFeature = rng.Intn(numFeatures)

	minVal, maxVal := data[0][t.splitFeature], data[0][t.splitFeature]
	for _, row := range data[1:] {
		if row[t.splitFeature] < minVal {
			minVal = row[t.splitFeature]
		}
		if row[t.splitFeature] > maxVal {
			maxVal = row[t.splitFeature]
		}
	}

	if minVal == maxVal {
		t.isLeaf = true
		return
	}

	t.splitValue = minVal + rng.Float64()*(maxVal-minVal)

	var leftData, rightData [][]float64
	for _, row := range data {
		if row[t.splitFeature] < t.splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	if len(leftData) == 0 || len(rightData) == 0 {
		t.isLeaf = true
		return
	}

	t.left = &isolationTree{maxHeight: t.maxHeight}
	t.right = &isolationTree{maxHeight: t.maxHeight}
	t.left.fit(leftData, depth+1, rng)
	t.right.fit(rightData, depth+1, rng)
}

func (t *isolationTree) pathLength(sample []float64, depth int) float64 {
	if t.isLeaf {
		// Adjustment for unbuilt branches.
		return float64(depth) + averagePathLength(t.size)
	}

	if len(sample) <= t.splitFeature {
		return float64(depth)
	}

	if sample[t.splitFeature] < t.splitValue {
		if t.left != nil {
			return t.left.pathLength(sample, depth+1)
		}
	} else if t.right != nil {
		return t.right.pathLength(sample, depth+1)
	}

	return float64(depth)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
