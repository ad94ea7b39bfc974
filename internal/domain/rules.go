package domain

// badWeather are the conditions that raise congestion in the rule cascade.
var badWeather = map[string]bool{
	"Rain": true,
	"Snow": true,
	"Fog":  true,
}

// advisories holds the fixed driver advice for each label.
var advisories = map[Congestion]string{
	CongestionHigh:     "Maintain extra distance between vehicles. Consider alternative routes. Stay alert for sudden stops.",
	CongestionModerate: "Stay within speed limits. Be cautious at intersections. Allow for slightly longer travel times.",
	CongestionLow:      "Follow normal driving procedures. Maintain safe speed and distance. Stay alert for changing conditions.",
}

// historyWeights gives, per predicted label, the probabilities of each
// history label in [Low, Moderate, High] order. Each row sums to 1.
var historyWeights = map[Congestion][3]float64{
	CongestionHigh:     {0.2, 0.3, 0.5},
	CongestionModerate: {0.3, 0.5, 0.2},
	CongestionLow:      {0.5, 0.3, 0.2},
}

// IsBadWeather reports whether label is one of Rain, Snow or Fog. The match
// is exact: "Light Rain" is not bad weather.
func IsBadWeather(label string) bool {
	return badWeather[label]
}

// Classify runs the congestion rule cascade:
//   - High when rush hour coincides with bad weather or a junction, or when
//     bad weather coincides with a junction;
//   - Moderate when any single factor is present;
//   - Low otherwise.
func Classify(rushHour, badWeather, junction bool) Congestion {
	switch {
	case (rushHour && (badWeather || junction)) || (badWeather && junction):
		return CongestionHigh
	case rushHour || badWeather || junction:
		return CongestionModerate
	default:
		return CongestionLow
	}
}

// Advisory returns the driver advice for c. Unknown labels get the Low text.
func Advisory(c Congestion) string {
	if s, ok := advisories[c]; ok {
		return s
	}
	return advisories[CongestionLow]
}

// RandomSource yields uniform values in [0, 1). *rand.Rand from math/rand/v2
// satisfies it.
type RandomSource interface {
	Float64() float64
}

// SampleHistory draws n synthetic history labels for c. Each draw maps one
// uniform value through the cumulative weights of c.
func SampleHistory(c Congestion, n int, rng RandomSource) []Congestion {
	w, ok := historyWeights[c]
	if !ok {
		w = historyWeights[CongestionLow]
	}

	out := make([]Congestion, n)
	for i := range out {
		out[i] = pickWeighted(w, rng.Float64())
	}
	return out
}

func pickWeighted(w [3]float64, u float64) Congestion {
	switch {
	case u < w[0]:
		return CongestionLow
	case u < w[0]+w[1]:
		return CongestionModerate
	default:
		return CongestionHigh
	}
}
