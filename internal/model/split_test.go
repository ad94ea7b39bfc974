package model

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		n         int
		wantTest  int
		wantTrain int
	}{
		{10, 2, 8},
		{11, 3, 8},
		{1, 1, 0},
		{0, 0, 0},
		{1000, 200, 800},
	}

	for _, tt := range tests {
		train, test, err := Split(tt.n, DefaultTestFraction, DefaultSeed)
		require.NoError(t, err)
		assert.Len(t, test, tt.wantTest, "n=%d", tt.n)
		assert.Len(t, train, tt.wantTrain, "n=%d", tt.n)

		all := append(slices.Clone(train), test...)
		slices.Sort(all)
		for i, v := range all {
			assert.Equal(t, i, v, "indices must cover [0,%d) exactly once", tt.n)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	trainA, testA, err := Split(100, 0.2, 42)
	require.NoError(t, err)
	trainB, testB, err := Split(100, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, trainA, trainB)
	assert.Equal(t, testA, testB)

	_, testC, err := Split(100, 0.2, 43)
	require.NoError(t, err)
	assert.NotEqual(t, testA, testC)
}

func TestSplit_InvalidFraction(t *testing.T) {
	for _, frac := range []float64{0, 1, -0.1, 1.5} {
		_, _, err := Split(10, frac, 1)
		assert.Error(t, err, "fraction %v", frac)
	}
}

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]int{0, 1, 2, 2}, []int{0, 1, 1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-9)

	acc, err = Accuracy(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, acc)

	_, err = Accuracy([]int{1}, nil)
	assert.Error(t, err)
}
