package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		hour     int
		weather  string
		junction bool
		expected Congestion
	}{
		{"rush hour rain at junction", 8, "Rain", true, CongestionHigh},
		{"midday clear no junction", 13, "Clear", false, CongestionLow},
		{"rush hour clear no junction", 8, "Clear", false, CongestionModerate},
		{"midday snow no junction", 13, "Snow", false, CongestionModerate},
		{"midday fog at junction", 13, "Fog", true, CongestionHigh},
		{"rush hour clear at junction", 17, "Clear", true, CongestionHigh},
		{"rush hour fog no junction", 7, "Fog", false, CongestionHigh},
		{"night clear at junction", 2, "Clear", true, CongestionModerate},
		{"light rain is not bad weather", 13, "Light Rain", false, CongestionLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(IsRushHour(tt.hour), IsBadWeather(tt.weather), tt.junction)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestClassify_TruthTable(t *testing.T) {
	for _, rush := range []bool{false, true} {
		for _, bad := range []bool{false, true} {
			for _, junction := range []bool{false, true} {
				factors := 0
				for _, f := range []bool{rush, bad, junction} {
					if f {
						factors++
					}
				}
				want := CongestionLow
				switch {
				case factors >= 2:
					want = CongestionHigh
				case factors == 1:
					want = CongestionModerate
				}
				assert.Equal(t, want, Classify(rush, bad, junction), "rush=%v bad=%v junction=%v", rush, bad, junction)
			}
		}
	}
}

func TestAdvisory(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Congestions {
		s := Advisory(c)
		assert.NotEmpty(t, s)
		seen[s] = true
	}
	assert.Len(t, seen, 3, "each label has its own advisory")
	assert.Contains(t, Advisory(CongestionHigh), "alternative routes")
	assert.Equal(t, Advisory(CongestionLow), Advisory("Gridlock"))
}

// fixedSource replays a fixed sequence of uniform values.
type fixedSource struct {
	values []float64
	i      int
}

func (f *fixedSource) Float64() float64 {
	v := f.values[f.i%len(f.values)]
	f.i++
	return v
}

func TestSampleHistory_PartitionBoundaries(t *testing.T) {
	src := &fixedSource{values: []float64{0, 0.19, 0.2, 0.49, 0.5, 0.99}}
	got := SampleHistory(CongestionHigh, 6, src)
	assert.Equal(t, []Congestion{
		CongestionLow, CongestionLow,
		CongestionModerate, CongestionModerate,
		CongestionHigh, CongestionHigh,
	}, got)
}

func TestSampleHistory_Length(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	assert.Len(t, SampleHistory(CongestionModerate, 20, rng), 20)
	assert.Empty(t, SampleHistory(CongestionModerate, 0, rng))
}

func TestSampleHistory_Deterministic(t *testing.T) {
	a := SampleHistory(CongestionLow, 50, rand.New(rand.NewPCG(42, 7)))
	b := SampleHistory(CongestionLow, 50, rand.New(rand.NewPCG(42, 7)))
	assert.Equal(t, a, b)
}

func TestSampleHistory_Distribution(t *testing.T) {
	const n = 10_000
	const tolerance = 0.03

	expected := map[Congestion][3]float64{
		CongestionLow:      {0.5, 0.3, 0.2},
		CongestionModerate: {0.3, 0.5, 0.2},
		CongestionHigh:     {0.2, 0.3, 0.5},
	}

	for label, want := range expected {
		t.Run(string(label), func(t *testing.T) {
			samples := SampleHistory(label, n, rand.New(rand.NewPCG(2024, 4)))
			var counts [3]int
			for _, s := range samples {
				idx := s.Index()
				require.GreaterOrEqual(t, idx, 0)
				counts[idx]++
			}
			for i, w := range want {
				assert.InDelta(t, w, float64(counts[i])/n, tolerance, "class %s", Congestions[i])
			}
		})
	}
}
