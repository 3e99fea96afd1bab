package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-subchurn/internal/model"
)

// clusters returns two well-separated 2-D blobs, class 0 first.
func clusters() ([][]float64, []int) {
	X := [][]float64{
		{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}, {0.2, 0.8},
		{10, 10}, {11, 10}, {10, 11}, {11, 11}, {10.5, 10.5}, {10.2, 10.8},
	}
	y := []int{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1}
	return X, y
}

var probe = [][]float64{{0.3, 0.3}, {10.7, 10.4}, {0.9, 0.1}, {10.1, 10.9}}
var probeY = []int{0, 1, 0, 1}

func TestClassifiersSeparateClusters(t *testing.T) {
	X, y := clusters()
	models := []Classifier{
		&KNN{K: 3},
		&GaussianNB{},
		&LinearSVM{Seed: 4},
		&RandomForest{Trees: 10, Seed: 4},
	}
	for _, m := range models {
		t.Run(m.Name(), func(t *testing.T) {
			require.NoError(t, m.Fit(X, y))
			got, err := m.Predict(probe)
			require.NoError(t, err)
			assert.Equal(t, probeY, got)
		})
	}
}

func TestClassifiersRequireFit(t *testing.T) {
	for _, m := range []Classifier{&KNN{K: 1}, &GaussianNB{}, &LinearSVM{}, &RandomForest{}} {
		_, err := m.Predict(probe)
		assert.ErrorIs(t, err, ErrNotFitted, m.Name())
	}
}

func TestFitShapeErrors(t *testing.T) {
	m := &KNN{K: 1}
	assert.ErrorIs(t, m.Fit([][]float64{{1}, {2}}, []int{0}), ErrShape)
	assert.ErrorIs(t, m.Fit([][]float64{{1}, {2, 3}}, []int{0, 1}), ErrShape)
	assert.ErrorIs(t, m.Fit(nil, nil), ErrEmptyDataset)

	require.NoError(t, m.Fit([][]float64{{1}, {2}}, []int{0, 1}))
	_, err := m.Predict([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrShape)
}

func TestKNN_TiesGoToLowestLabel(t *testing.T) {
	m := &KNN{K: 2}
	require.NoError(t, m.Fit([][]float64{{0}, {2}}, []int{1, 0}))
	got, err := m.Predict([][]float64{{1}})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got)
}

func TestSelectK(t *testing.T) {
	X, y := clusters()
	best, scores, err := SelectK(X, y, 4, 3)
	require.NoError(t, err)
	assert.Len(t, scores, 4)
	assert.Equal(t, 1, best)
	assert.Equal(t, 1.0, scores[0])

	_, _, err = SelectK(X, y, 0, 3)
	assert.Error(t, err)
}

func TestCrossValidate(t *testing.T) {
	X, y := clusters()
	acc, err := CrossValidate(func() Classifier { return &GaussianNB{} }, X, y, 7)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, acc, 1e-9)

	_, err = CrossValidate(func() Classifier { return &GaussianNB{} }, X[:1], y[:1], 7)
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	X, y := clusters()
	ds := Dataset{X: X[:10], Y: y[:10]}
	train, test, err := Split(ds, 0.3, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, train.Len())
	assert.Equal(t, 3, test.Len())

	again, _, err := Split(ds, 0.3, 4)
	require.NoError(t, err)
	assert.Equal(t, train.X, again.X, "same seed gives the same split")

	seen := map[float64]int{}
	for _, row := range append(append([][]float64{}, train.X...), test.X...) {
		seen[row[0]*100+row[1]]++
	}
	assert.Len(t, seen, 10)

	_, _, err = Split(Dataset{X: X[:1], Y: y[:1]}, 0.3, 4)
	assert.ErrorIs(t, err, ErrEmptyDataset)
	_, _, err = Split(ds, 1.5, 4)
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	r := Evaluate([]int{0, 0, 1, 1}, []int{0, 1, 1, 1})
	assert.Equal(t, 0.75, r.Accuracy)
	require.Len(t, r.Classes, 2)

	c0, c1 := r.Classes[0], r.Classes[1]
	assert.Equal(t, 1.0, c0.Precision)
	assert.Equal(t, 0.5, c0.Recall)
	assert.InDelta(t, 2.0/3.0, c0.F1, 1e-9)
	assert.Equal(t, 2, c0.Support)
	assert.InDelta(t, 2.0/3.0, c1.Precision, 1e-9)
	assert.Equal(t, 1.0, c1.Recall)
	assert.InDelta(t, 0.8, c1.F1, 1e-9)
	assert.Equal(t, 4, r.Macro.Support)
	assert.InDelta(t, (2.0/3.0+0.8)/2, r.Macro.F1, 1e-9)
}

func TestFromFeatures(t *testing.T) {
	ds := FromFeatures([]model.PlayerFeatureRow{
		{Name: "a", Score: 1, Points: 2, Degree: 3, Flair: 1, Win: 0.5, WinCount: 2, LoseCount: 2, WinningStreak: 1, LosingStreak: 2, Label: 1},
	})
	assert.Equal(t, FeatureColumns, ds.Columns)
	assert.Equal(t, []float64{1, 2, 3, 1, 0.5, 2, 2, 1, 2}, ds.X[0])
	assert.Equal(t, []int{1}, ds.Y)
}

func TestNewByName(t *testing.T) {
	for _, name := range []string{"knn", "rf", "nb", "svm"} {
		c, err := New(name, 4)
		require.NoError(t, err)
		assert.NotEmpty(t, c.Name())
	}
	_, err := New("xgboost", 4)
	assert.Error(t, err)
}

func TestTrainEvaluate(t *testing.T) {
	X, y := clusters()
	r, err := TrainEvaluate(&KNN{K: 1}, Dataset{X: X, Y: y}, Dataset{X: probe, Y: probeY})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Accuracy)
	assert.Equal(t, "knn(k=1)", r.Model)
}
