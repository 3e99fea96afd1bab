package classify

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// RandomForest is an ensemble of CART trees split on Gini impurity. Each
// split considers a random subset of sqrt(features) columns. With Bootstrap
// false every tree sees the full training set and trees differ only by the
// feature subsets drawn.
type RandomForest struct {
	Trees     int // 0 selects 10
	MaxDepth  int // 0 is unlimited
	Bootstrap bool
	Seed      uint64

	dims  int
	roots []*treeNode
}

type treeNode struct {
	leaf      bool
	label     int
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// Name implements Classifier.
func (m *RandomForest) Name() string { return fmt.Sprintf("random_forest(trees=%d)", m.trees()) }

func (m *RandomForest) trees() int {
	if m.Trees <= 0 {
		return 10
	}
	return m.Trees
}

// Fit implements Classifier.
func (m *RandomForest) Fit(X [][]float64, y []int) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	m.dims = len(X[0])
	mtry := max(1, int(math.Sqrt(float64(m.dims))))
	rng := rand.New(rand.NewPCG(m.Seed, 0x5eed))

	m.roots = make([]*treeNode, m.trees())
	for t := range m.roots {
		idx := make([]int, len(y))
		for i := range idx {
			if m.Bootstrap {
				idx[i] = rng.IntN(len(y))
			} else {
				idx[i] = i
			}
		}
		b := &treeBuilder{X: X, y: y, mtry: mtry, maxDepth: m.MaxDepth, rng: rng}
		m.roots[t] = b.grow(idx, 0)
	}
	return nil
}

// Predict implements Classifier. Trees vote; ties go to the lowest label.
func (m *RandomForest) Predict(X [][]float64) ([]int, error) {
	if m.roots == nil {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, m.dims); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i, x := range X {
		votes := map[int]int{}
		for _, root := range m.roots {
			votes[root.predict(x)]++
		}
		out[i] = majority(votes)
	}
	return out, nil
}

func (n *treeNode) predict(x []float64) int {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.label
}

type treeBuilder struct {
	X        [][]float64
	y        []int
	mtry     int
	maxDepth int
	rng      *rand.Rand
}

func (b *treeBuilder) grow(idx []int, depth int) *treeNode {
	counts := map[int]int{}
	for _, i := range idx {
		counts[b.y[i]]++
	}
	leaf := &treeNode{leaf: true, label: majority(counts)}
	if len(counts) == 1 || len(idx) < 2 || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return leaf
	}

	feature, threshold, ok := b.bestSplit(idx, gini(counts, len(idx)))
	if !ok {
		return leaf
	}
	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}

// bestSplit scans mtry random features for the threshold with the largest
// impurity decrease. ok is false when no split improves on parent.
func (b *treeBuilder) bestSplit(idx []int, parent float64) (feature int, threshold float64, ok bool) {
	d := len(b.X[0])
	features := b.rng.Perm(d)[:b.mtry]
	best := parent
	n := float64(len(idx))

	sorted := make([]int, len(idx))
	for _, f := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		left := map[int]int{}
		right := map[int]int{}
		for _, i := range sorted {
			right[b.y[i]]++
		}
		for k := 0; k < len(sorted)-1; k++ {
			label := b.y[sorted[k]]
			left[label]++
			right[label]--
			lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			impurity := nl/n*gini(left, k+1) + nr/n*gini(right, len(sorted)-k-1)
			if impurity < best-1e-12 {
				best, feature, threshold, ok = impurity, f, (lo+hi)/2, true
			}
		}
	}
	return feature, threshold, ok
}

func gini(counts map[int]int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}
