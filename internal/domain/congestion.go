package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Congestion is the three-level traffic classification.
type Congestion string

const (
	CongestionLow      Congestion = "Low"
	CongestionModerate Congestion = "Moderate"
	CongestionHigh     Congestion = "High"
)

// Congestions lists every label in class-index order.
var Congestions = []Congestion{CongestionLow, CongestionModerate, CongestionHigh}

// Index returns the class index of c, or -1 for an unknown label.
func (c Congestion) Index() int {
	for i, v := range Congestions {
		if v == c {
			return i
		}
	}
	return -1
}

func (c Congestion) String() string { return string(c) }

// ParseCongestion converts a label string back into a Congestion.
func ParseCongestion(s string) (Congestion, error) {
	c := Congestion(strings.TrimSpace(s))
	if c.Index() < 0 {
		return "", fmt.Errorf("unknown congestion label %q", s)
	}
	return c, nil
}

// CongestionFromSeverity maps an accident severity to a congestion label:
// 1 is Low, 2 and 3 are Moderate, 4 is High. Missing, non-numeric and
// out-of-range severities fall back to Low.
func CongestionFromSeverity(severity string) Congestion {
	v, err := strconv.ParseFloat(strings.TrimSpace(severity), 64)
	if err != nil {
		return CongestionLow
	}
	switch v {
	case 1:
		return CongestionLow
	case 2, 3:
		return CongestionModerate
	case 4:
		return CongestionHigh
	default:
		return CongestionLow
	}
}
