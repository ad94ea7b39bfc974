package model

import (
	"math"
	"math/rand/v2"
	"slices"
)

// leaf marks a node without a split.
const leaf = -1

// node is one entry of a flattened decision tree. Internal nodes route
// x[Feature] <= Threshold to Left and everything else to Right. Leaves carry
// the class distribution of their training samples.
type node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Dist      []float64 `json:"d,omitempty"`
}

// tree is a CART classifier stored as a node slice rooted at index 0.
type tree struct {
	Nodes []node `json:"nodes"`
}

// treeBuilder grows a single tree on a bootstrap sample.
type treeBuilder struct {
	x           [][]float64
	y           []int
	classes     int
	maxFeatures int
	maxDepth    int
	minLeaf     int
	rng         *rand.Rand
	nodes       []node
}

func (b *treeBuilder) build(samples []int) tree {
	b.nodes = b.nodes[:0]
	b.grow(samples, 0)
	return tree{Nodes: slices.Clone(b.nodes)}
}

// grow appends the subtree for samples and returns its root index.
func (b *treeBuilder) grow(samples []int, depth int) int {
	counts := b.classCounts(samples)
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{Feature: leaf})

	if b.isPure(counts) || len(samples) < 2*b.minLeaf || (b.maxDepth > 0 && depth >= b.maxDepth) {
		b.nodes[idx].Dist = normalize(counts)
		return idx
	}

	feature, threshold, ok := b.bestSplit(samples, counts)
	if !ok {
		b.nodes[idx].Dist = normalize(counts)
		return idx
	}

	var left, right []int
	for _, s := range samples {
		if b.x[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx] = node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return idx
}

// bestSplit searches a random subset of features for the threshold with the
// lowest weighted Gini impurity. Features constant within samples are skipped
// and do not count against maxFeatures, so a split is found whenever one
// exists.
func (b *treeBuilder) bestSplit(samples []int, counts []int) (int, float64, bool) {
	nFeatures := len(b.x[0])
	order := b.rng.Perm(nFeatures)

	bestGini := gini(counts, len(samples))
	bestFeature, bestThreshold, found := 0, 0.0, false

	sorted := slices.Clone(samples)
	left := make([]int, b.classes)
	tried := 0
	for _, f := range order {
		if tried >= b.maxFeatures && found {
			break
		}
		slices.SortFunc(sorted, func(a, c int) int {
			return cmpFloat(b.x[a][f], b.x[c][f])
		})
		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue
		}
		tried++

		clear(left)
		n := len(sorted)
		for i := 0; i < n-1; i++ {
			left[b.y[sorted[i]]]++
			lo, hi := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := i+1, n-i-1
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			g := weightedGini(left, counts, nl, nr)
			if g < bestGini-1e-12 {
				bestGini = g
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func (b *treeBuilder) classCounts(samples []int) []int {
	counts := make([]int, b.classes)
	for _, s := range samples {
		counts[b.y[s]]++
	}
	return counts
}

func (b *treeBuilder) isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// predict walks the tree and returns the leaf distribution for x.
func (t *tree) predict(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature == leaf {
			return n.Dist
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sum += p * p
	}
	return 1 - sum
}

// weightedGini scores a split given the left class counts and the parent
// totals.
func weightedGini(left, total []int, nl, nr int) float64 {
	var sl, sr float64
	for k := range total {
		pl := float64(left[k]) / float64(nl)
		pr := float64(total[k]-left[k]) / float64(nr)
		sl += pl * pl
		sr += pr * pr
	}
	n := float64(nl + nr)
	return float64(nl)/n*(1-sl) + float64(nr)/n*(1-sr)
}

func normalize(counts []int) []float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	dist := make([]float64, len(counts))
	if total == 0 {
		return dist
	}
	for i, c := range counts {
		dist[i] = float64(c) / float64(total)
	}
	return dist
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// sqrtFeatures is the default number of candidate features per split.
func sqrtFeatures(n int) int {
	return max(1, int(math.Sqrt(float64(n))))
}
