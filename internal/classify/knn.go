package classify

import (
	"fmt"
	"math"
	"sort"
)

// KNN is a k-nearest-neighbours classifier over Euclidean distance.
// Votes are by majority; ties go to the lowest label.
type KNN struct {
	K int

	x [][]float64
	y []int
}

// Name implements Classifier.
func (m *KNN) Name() string { return fmt.Sprintf("knn(k=%d)", m.K) }

// Fit implements Classifier. It stores the training set.
func (m *KNN) Fit(X [][]float64, y []int) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	if m.K <= 0 {
		return fmt.Errorf("knn: k must be positive, got %d", m.K)
	}
	m.x, m.y = X, y
	return nil
}

// Predict implements Classifier.
func (m *KNN) Predict(X [][]float64) ([]int, error) {
	if m.x == nil {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, len(m.x[0])); err != nil {
		return nil, err
	}

	type neighbour struct {
		dist float64
		idx  int
	}
	k := min(m.K, len(m.x))
	out := make([]int, len(X))
	nb := make([]neighbour, len(m.x))
	for i, q := range X {
		for j, p := range m.x {
			nb[j] = neighbour{dist: euclidean(q, p), idx: j}
		}
		sort.Slice(nb, func(a, b int) bool {
			if nb[a].dist != nb[b].dist {
				return nb[a].dist < nb[b].dist
			}
			return nb[a].idx < nb[b].idx
		})
		votes := map[int]int{}
		for _, n := range nb[:k] {
			votes[m.y[n.idx]]++
		}
		out[i] = majority(votes)
	}
	return out, nil
}

func euclidean(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

// CrossValidate returns the mean accuracy of newModel over contiguous folds.
// folds is capped at the number of rows.
func CrossValidate(newModel func() Classifier, X [][]float64, y []int, folds int) (float64, error) {
	if err := checkShape(X, y); err != nil {
		return 0, err
	}
	n := len(y)
	folds = min(folds, n)
	if folds < 2 {
		return 0, fmt.Errorf("cross-validate: need at least 2 folds, have %d rows", n)
	}

	var total float64
	for f := 0; f < folds; f++ {
		lo, hi := f*n/folds, (f+1)*n/folds
		var trX, teX [][]float64
		var trY, teY []int
		for i := range n {
			if i >= lo && i < hi {
				teX, teY = append(teX, X[i]), append(teY, y[i])
			} else {
				trX, trY = append(trX, X[i]), append(trY, y[i])
			}
		}
		m := newModel()
		if err := m.Fit(trX, trY); err != nil {
			return 0, fmt.Errorf("fold %d: %w", f, err)
		}
		pred, err := m.Predict(teX)
		if err != nil {
			return 0, fmt.Errorf("fold %d: %w", f, err)
		}
		total += Accuracy(teY, pred)
	}
	return total / float64(folds), nil
}

// SelectK picks k in [1, maxK] with the best cross-validated accuracy; the
// smallest k wins ties. scores[i] is the accuracy for k=i+1.
func SelectK(X [][]float64, y []int, maxK, folds int) (best int, scores []float64, err error) {
	if maxK < 1 {
		return 0, nil, fmt.Errorf("select k: maxK must be positive, got %d", maxK)
	}
	best = 1
	for k := 1; k <= maxK; k++ {
		acc, err := CrossValidate(func() Classifier { return &KNN{K: k} }, X, y, folds)
		if err != nil {
			return 0, nil, fmt.Errorf("k=%d: %w", k, err)
		}
		scores = append(scores, acc)
		if acc > scores[best-1] {
			best = k
		}
	}
	return best, scores, nil
}
