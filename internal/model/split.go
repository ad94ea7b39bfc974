package model

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// DefaultTestFraction is the share of rows held out for evaluation.
const DefaultTestFraction = 0.2

// Split shuffles the indices [0, n) with seed and cuts them into a training
// and a test set. The test set holds ceil(n * testFraction) indices. The
// result depends only on n, testFraction and seed.
func Split(n int, testFraction float64, seed uint64) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("split: test fraction %v not in (0, 1)", testFraction)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))
	perm := rng.Perm(n)

	nTest := int(math.Ceil(float64(n) * testFraction))
	return perm[nTest:], perm[:nTest], nil
}

// Accuracy returns the fraction of predictions equal to the truth. Empty
// input scores 0.
func Accuracy(predicted, truth []int) (float64, error) {
	if len(predicted) != len(truth) {
		return 0, fmt.Errorf("accuracy: %d predictions for %d labels", len(predicted), len(truth))
	}
	if len(truth) == 0 {
		return 0, nil
	}
	correct := 0
	for i := range truth {
		if predicted[i] == truth[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth)), nil
}
