package model

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficlens/congestion-predictor/internal/domain"
)

var (
	testFeatures = []string{"Hour", "IsRushHour", "Noise"}
	testClasses  = []string{"Low", "Moderate", "High"}
)

// rushHourData labels rows High during rush hour and Low otherwise, with an
// uninformative noise column.
func rushHourData(n int, seed uint64) ([][]float64, []int) {
	rng := rand.New(rand.NewPCG(seed, 1))
	x := make([][]float64, n)
	y := make([]int, n)
	for i := range x {
		hour := rng.IntN(24)
		rush := 0.0
		if domain.IsRushHour(hour) {
			rush = 1
			y[i] = 2
		}
		x[i] = []float64{float64(hour), rush, rng.Float64()}
	}
	return x, y
}

func TestForest_LearnsSeparableData(t *testing.T) {
	x, y := rushHourData(400, 7)
	f := NewForest(WithTrees(15))
	require.NoError(t, f.Fit(x, y, testFeatures, testClasses))

	testX, testY := rushHourData(200, 99)
	acc, err := Accuracy(f.PredictAll(testX), testY)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.95)
}

func TestForest_Deterministic(t *testing.T) {
	x, y := rushHourData(200, 3)

	a := NewForest(WithTrees(5), WithSeed(11))
	require.NoError(t, a.Fit(x, y, testFeatures, testClasses))
	b := NewForest(WithTrees(5), WithSeed(11))
	require.NoError(t, b.Fit(x, y, testFeatures, testClasses))

	assert.Equal(t, a.Trees, b.Trees)
}

func TestForest_PredictProbaSumsToOne(t *testing.T) {
	x, y := rushHourData(100, 5)
	f := NewForest(WithTrees(4), WithMaxDepth(2))
	require.NoError(t, f.Fit(x, y, testFeatures, testClasses))

	for _, row := range x[:10] {
		proba := f.PredictProba(row)
		require.Len(t, proba, len(testClasses))
		sum := 0.0
		for _, p := range proba {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestForest_MaxDepthLimitsTree(t *testing.T) {
	x, y := rushHourData(300, 8)
	f := NewForest(WithTrees(1), WithMaxDepth(1))
	require.NoError(t, f.Fit(x, y, testFeatures, testClasses))

	// A depth-1 tree has at most a root and two leaves.
	assert.LessOrEqual(t, len(f.Trees[0].Nodes), 3)
}

func TestForest_SingleClass(t *testing.T) {
	x := [][]float64{{1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	y := []int{1, 1, 1}
	f := NewForest(WithTrees(3))
	require.NoError(t, f.Fit(x, y, testFeatures, testClasses))

	assert.Equal(t, 1, f.Predict([]float64{10, 1, 1}))
}

func TestForest_FitErrors(t *testing.T) {
	tests := []struct {
		name string
		f    *Forest
		x    [][]float64
		y    []int
		msg  string
	}{
		{"empty", NewForest(), nil, nil, "empty training set"},
		{"length mismatch", NewForest(), [][]float64{{1, 2, 3}}, []int{0, 1}, "1 rows but 2 labels"},
		{"ragged row", NewForest(), [][]float64{{1, 2}}, []int{0}, "has 2 features"},
		{"label out of range", NewForest(), [][]float64{{1, 2, 3}}, []int{3}, "out of range"},
		{"no trees", NewForest(WithTrees(0)), [][]float64{{1, 2, 3}}, []int{0}, "at least one tree"},
		{"bad leaf size", NewForest(WithMinSamplesLeaf(0)), [][]float64{{1, 2, 3}}, []int{0}, "min samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Fit(tt.x, tt.y, testFeatures, testClasses)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	err := NewForest().Fit(nil, nil, testFeatures, testClasses)
	assert.True(t, errors.Is(err, ErrEmptyTrainingSet))
}

func TestForest_UntrainedPredict(t *testing.T) {
	f := NewForest()
	assert.False(t, f.Fitted())
	assert.Nil(t, f.PredictProba([]float64{1, 2, 3}))
	assert.Equal(t, -1, f.Predict([]float64{1, 2, 3}))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	x, y := rushHourData(150, 21)
	f := NewForest(WithTrees(6))
	require.NoError(t, f.Fit(x, y, testFeatures, testClasses))

	path := filepath.Join(t.TempDir(), "traffic_model.json")
	require.NoError(t, Save(path, f))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testFeatures, loaded.Features)
	assert.Equal(t, testClasses, loaded.Classes)
	assert.Equal(t, f.PredictAll(x), loaded.PredictAll(x))
}

func TestSave_Untrained(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "m.json"), NewForest())
	assert.ErrorContains(t, err, "not trained")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, domain.ErrMissingArtifact))
}

func TestLoad_RejectsMalformedTrees(t *testing.T) {
	const head = `{"version":1,"forest":{"features":["Hour","Junction"],"classes":["Low","High"],"trees":[{"nodes":`
	const tail = `}]}}`

	tests := []struct {
		name  string
		nodes string
		msg   string
	}{
		{"no nodes", `[]`, "no nodes"},
		{"internal node without children", `[{"f":0,"t":8.5}]`, "child 0 out of range"},
		{"child points back to parent", `[{"f":0,"t":8.5,"l":1,"r":0},{"f":-1,"d":[1,0]}]`, "child 0 out of range"},
		{"child past the end", `[{"f":0,"t":8.5,"l":1,"r":5},{"f":-1,"d":[1,0]}]`, "child 5 out of range"},
		{"feature past row width", `[{"f":7,"t":8.5,"l":1,"r":2},{"f":-1,"d":[1,0]},{"f":-1,"d":[0,1]}]`, "feature 7 out of range"},
		{"leaf with wrong class count", `[{"f":-1,"d":[1]}]`, "leaf has 1 classes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "traffic_model.json")
			require.NoError(t, os.WriteFile(path, []byte(head+tt.nodes+tail), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_AcceptsWellFormedTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic_model.json")
	data := `{"version":1,"forest":{"features":["Hour","Junction"],"classes":["Low","High"],` +
		`"trees":[{"nodes":[{"f":1,"t":0.5,"l":1,"r":2},{"f":-1,"d":[1,0]},{"f":-1,"d":[0,1]}]}]}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Predict([]float64{8, 0}))
	assert.Equal(t, 1, f.Predict([]float64{8, 1}))
}
