package classify

import (
	"math"
)

// varSmoothing is added to every variance, scaled by the largest feature variance.
const varSmoothing = 1e-9

// GaussianNB is a Gaussian naive Bayes classifier.
type GaussianNB struct {
	classes  []int
	logPrior []float64
	mean     [][]float64
	variance [][]float64
}

// Name implements Classifier.
func (m *GaussianNB) Name() string { return "naive_bayes" }

// Fit implements Classifier.
func (m *GaussianNB) Fit(X [][]float64, y []int) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	d := len(X[0])

	// epsilon = varSmoothing * max feature variance over the whole set.
	_, allVar := meanVar(X, d)
	maxVar := 0.0
	for _, v := range allVar {
		maxVar = max(maxVar, v)
	}
	eps := varSmoothing * maxVar
	if eps == 0 {
		eps = varSmoothing
	}

	m.classes = classesOf(y)
	m.logPrior = make([]float64, len(m.classes))
	m.mean = make([][]float64, len(m.classes))
	m.variance = make([][]float64, len(m.classes))
	for ci, c := range m.classes {
		var rows [][]float64
		for i, label := range y {
			if label == c {
				rows = append(rows, X[i])
			}
		}
		mu, v := meanVar(rows, d)
		for j := range v {
			v[j] += eps
		}
		m.mean[ci], m.variance[ci] = mu, v
		m.logPrior[ci] = math.Log(float64(len(rows)) / float64(len(y)))
	}
	return nil
}

// Predict implements Classifier.
func (m *GaussianNB) Predict(X [][]float64) ([]int, error) {
	if m.classes == nil {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, len(m.mean[0])); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i, x := range X {
		best, bestLL := 0, math.Inf(-1)
		for ci := range m.classes {
			ll := m.logPrior[ci]
			for j, v := range x {
				variance := m.variance[ci][j]
				diff := v - m.mean[ci][j]
				ll -= 0.5*math.Log(2*math.Pi*variance) + diff*diff/(2*variance)
			}
			if ll > bestLL {
				best, bestLL = ci, ll
			}
		}
		out[i] = m.classes[best]
	}
	return out, nil
}

// meanVar returns per-column mean and population variance.
func meanVar(rows [][]float64, d int) (mean, variance []float64) {
	mean = make([]float64, d)
	variance = make([]float64, d)
	if len(rows) == 0 {
		return mean, variance
	}
	n := float64(len(rows))
	for _, r := range rows {
		for j, v := range r {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, r := range rows {
		for j, v := range r {
			diff := v - mean[j]
			variance[j] += diff * diff
		}
	}
	for j := range variance {
		variance[j] /= n
	}
	return mean, variance
}
