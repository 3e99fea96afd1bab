// Package classify trains and evaluates small classifiers on the per-player
// feature table.
package classify

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/pable/go-subchurn/internal/model"
)

var (
	// ErrNotFitted is returned by Predict before Fit.
	ErrNotFitted = errors.New("classify: model not fitted")
	// ErrEmptyDataset is returned when fitting or splitting zero rows.
	ErrEmptyDataset = errors.New("classify: empty dataset")
	// ErrShape is returned for ragged rows or mismatched X/y lengths.
	ErrShape = errors.New("classify: shape mismatch")
)

// Classifier is the fit/predict boundary.
type Classifier interface {
	Name() string
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) ([]int, error)
}

// FeatureColumns are the PlayerFeatureRow fields used as model inputs.
var FeatureColumns = []string{
	"score", "points", "degree", "flair", "win",
	"win_count", "lose_count", "winning_streak", "losing_streak",
}

// Dataset is a feature matrix with integer labels.
type Dataset struct {
	Columns []string
	X       [][]float64
	Y       []int
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.Y) }

// FromFeatures builds a Dataset from feature rows, labelled by Label.
func FromFeatures(rows []model.PlayerFeatureRow) Dataset {
	ds := Dataset{Columns: FeatureColumns, X: make([][]float64, len(rows)), Y: make([]int, len(rows))}
	for i, r := range rows {
		ds.X[i] = []float64{
			r.Score, r.Points, r.Degree, float64(r.Flair), r.Win,
			float64(r.WinCount), float64(r.LoseCount),
			float64(r.WinningStreak), float64(r.LosingStreak),
		}
		ds.Y[i] = r.Label
	}
	return ds
}

// Split shuffles with a seeded RNG and holds out ceil(n*testSize) rows,
// keeping at least one row on each side.
func Split(ds Dataset, testSize float64, seed uint64) (train, test Dataset, err error) {
	n := ds.Len()
	if n < 2 {
		return Dataset{}, Dataset{}, fmt.Errorf("split %d rows: %w", n, ErrEmptyDataset)
	}
	if testSize <= 0 || testSize >= 1 {
		return Dataset{}, Dataset{}, fmt.Errorf("split: test size must be in (0,1), got %v", testSize)
	}
	if err := checkShape(ds.X, ds.Y); err != nil {
		return Dataset{}, Dataset{}, err
	}

	nTest := int(math.Ceil(float64(n) * testSize))
	nTest = min(max(nTest, 1), n-1)

	perm := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Perm(n)
	take := func(idx []int) Dataset {
		d := Dataset{Columns: ds.Columns, X: make([][]float64, len(idx)), Y: make([]int, len(idx))}
		for i, j := range idx {
			d.X[i] = ds.X[j]
			d.Y[i] = ds.Y[j]
		}
		return d
	}
	return take(perm[nTest:]), take(perm[:nTest]), nil
}

func checkShape(X [][]float64, y []int) error {
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrShape, len(X), len(y))
	}
	if len(X) == 0 {
		return ErrEmptyDataset
	}
	d := len(X[0])
	for i, row := range X {
		if len(row) != d {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(row), d)
		}
	}
	return nil
}

func checkPredict(X [][]float64, dims int) error {
	for i, row := range X {
		if len(row) != dims {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(row), dims)
		}
	}
	return nil
}

// classesOf returns the distinct labels in ascending order.
func classesOf(y []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// majority returns the most frequent label, lowest label on ties.
func majority(votes map[int]int) int {
	best, bestN := 0, -1
	for label, n := range votes {
		if n > bestN || (n == bestN && label < best) {
			best, bestN = label, n
		}
	}
	return best
}

// New returns a classifier by short name: knn, rf, nb or svm.
func New(name string, seed uint64) (Classifier, error) {
	switch name {
	case "knn":
		return &KNN{K: 5}, nil
	case "rf":
		return &RandomForest{Trees: 10, Seed: seed}, nil
	case "nb":
		return &GaussianNB{}, nil
	case "svm":
		return &LinearSVM{Seed: seed}, nil
	}
	return nil, fmt.Errorf("classify: unknown model %q (want knn, rf, nb or svm)", name)
}
