// Package model implements the random forest classifier used to learn
// congestion labels from accident features, together with the train/test
// split, accuracy scoring and the JSON model artifact.
package model

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrEmptyTrainingSet is returned by Fit when there is nothing to learn from.
var ErrEmptyTrainingSet = errors.New("empty training set")

// Defaults match the reference training run.
const (
	DefaultTrees = 100
	DefaultSeed  = 42
)

// Option configures a Forest.
type Option func(*Forest)

// WithTrees sets the number of trees in the ensemble.
func WithTrees(n int) Option {
	return func(f *Forest) { f.NumTrees = n }
}

// WithSeed sets the seed for bootstrap sampling and feature selection.
func WithSeed(seed uint64) Option {
	return func(f *Forest) { f.Seed = seed }
}

// WithMaxDepth limits tree depth. Zero grows trees until leaves are pure.
func WithMaxDepth(d int) Option {
	return func(f *Forest) { f.MaxDepth = d }
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(f *Forest) { f.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number of candidate features per split. Zero
// selects the square root of the feature count.
func WithMaxFeatures(n int) Option {
	return func(f *Forest) { f.MaxFeatures = n }
}

// Forest is a bagged ensemble of CART trees. Prediction averages the class
// distributions of the leaves reached in every tree.
type Forest struct {
	NumTrees       int      `json:"n_estimators"`
	Seed           uint64   `json:"seed"`
	MaxDepth       int      `json:"max_depth"`
	MinSamplesLeaf int      `json:"min_samples_leaf"`
	MaxFeatures    int      `json:"max_features"`
	Features       []string `json:"features"`
	Classes        []string `json:"classes"`
	Trees          []tree   `json:"trees"`
}

// NewForest creates an untrained forest with the given options applied over
// the defaults.
func NewForest(opts ...Option) *Forest {
	f := &Forest{
		NumTrees:       DefaultTrees,
		Seed:           DefaultSeed,
		MinSamplesLeaf: 1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fit trains the forest on rows x with integer class labels y in
// [0, len(classes)). features and classes name the columns and labels and are
// stored in the artifact.
func (f *Forest) Fit(x [][]float64, y []int, features, classes []string) error {
	if len(x) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return fmt.Errorf("fit: %d rows but %d labels", len(x), len(y))
	}
	if f.NumTrees < 1 {
		return fmt.Errorf("fit: need at least one tree, got %d", f.NumTrees)
	}
	if f.MinSamplesLeaf < 1 {
		return fmt.Errorf("fit: min samples per leaf must be positive, got %d", f.MinSamplesLeaf)
	}
	width := len(features)
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("fit: row %d has %d features, want %d", i, len(row), width)
		}
	}
	for i, label := range y {
		if label < 0 || label >= len(classes) {
			return fmt.Errorf("fit: label %d at row %d out of range", label, i)
		}
	}

	maxFeatures := f.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > width {
		maxFeatures = sqrtFeatures(width)
	}

	rng := rand.New(rand.NewPCG(f.Seed, f.Seed^0x9e3779b97f4a7c15))
	b := &treeBuilder{
		x:           x,
		y:           y,
		classes:     len(classes),
		maxFeatures: maxFeatures,
		maxDepth:    f.MaxDepth,
		minLeaf:     f.MinSamplesLeaf,
		rng:         rng,
	}

	trees := make([]tree, f.NumTrees)
	sample := make([]int, len(x))
	for t := range trees {
		for i := range sample {
			sample[i] = rng.IntN(len(x))
		}
		trees[t] = b.build(sample)
	}

	f.Features = append([]string(nil), features...)
	f.Classes = append([]string(nil), classes...)
	f.Trees = trees
	return nil
}

// Fitted reports whether the forest has been trained or loaded.
func (f *Forest) Fitted() bool { return len(f.Trees) > 0 }

// PredictProba returns the averaged class distribution for x, or nil for an
// untrained forest.
func (f *Forest) PredictProba(x []float64) []float64 {
	if !f.Fitted() {
		return nil
	}
	proba := make([]float64, len(f.Classes))
	for i := range f.Trees {
		for k, p := range f.Trees[i].predict(x) {
			proba[k] += p
		}
	}
	for k := range proba {
		proba[k] /= float64(len(f.Trees))
	}
	return proba
}

// Predict returns the most probable class index for x. Ties go to the lower
// index. An untrained forest predicts -1.
func (f *Forest) Predict(x []float64) int {
	proba := f.PredictProba(x)
	if len(proba) == 0 {
		return -1
	}
	best := 0
	for k, p := range proba {
		if p > proba[best] {
			best = k
		}
	}
	return best
}

// PredictAll predicts every row of x.
func (f *Forest) PredictAll(x [][]float64) []int {
	out := make([]int, len(x))
	for i, row := range x {
		out[i] = f.Predict(row)
	}
	return out
}
