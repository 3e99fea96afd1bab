package classify

import (
	"math"
	"math/rand/v2"
)

// LinearSVM is a linear support vector machine trained with Pegasos
// (stochastic sub-gradient descent on the hinge loss) over standardised
// features. The bias is regularised with the weights. More than two
// classes are handled one-vs-rest.
type LinearSVM struct {
	Lambda float64 // regularisation; 0 selects 1e-3
	Epochs int     // passes over the data; 0 selects 100
	Seed   uint64

	classes []int
	mean    []float64
	scale   []float64
	weights [][]float64 // per class; last element is the bias
}

// Name implements Classifier.
func (m *LinearSVM) Name() string { return "linear_svm" }

// Fit implements Classifier.
func (m *LinearSVM) Fit(X [][]float64, y []int) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	lambda := m.Lambda
	if lambda <= 0 {
		lambda = 1e-3
	}
	epochs := m.Epochs
	if epochs <= 0 {
		epochs = 100
	}

	d := len(X[0])
	mean, variance := meanVar(X, d)
	m.mean = mean
	m.scale = make([]float64, d)
	for j, v := range variance {
		m.scale[j] = 1
		if v > 0 {
			m.scale[j] = math.Sqrt(v)
		}
	}
	Z := make([][]float64, len(X))
	for i, x := range X {
		Z[i] = m.standardise(x)
	}

	m.classes = classesOf(y)
	targets := m.classes
	if len(m.classes) == 2 {
		// One weight vector separates the positive (larger) label.
		targets = m.classes[1:]
	}
	m.weights = make([][]float64, len(targets))
	for ti, c := range targets {
		rng := rand.New(rand.NewPCG(m.Seed, uint64(c)))
		w := make([]float64, d+1)
		t := 0
		for range epochs {
			for _, i := range rng.Perm(len(Z)) {
				t++
				eta := 1 / (lambda * float64(t))
				yi := -1.0
				if y[i] == c {
					yi = 1
				}
				margin := yi * dot(w, Z[i])
				for j := range w {
					w[j] *= 1 - eta*lambda
				}
				if margin < 1 {
					for j := 0; j < d; j++ {
						w[j] += eta * yi * Z[i][j]
					}
					w[d] += eta * yi
				}
			}
		}
		m.weights[ti] = w
	}
	return nil
}

// Predict implements Classifier.
func (m *LinearSVM) Predict(X [][]float64) ([]int, error) {
	if m.weights == nil {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, len(m.mean)); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i, x := range X {
		z := m.standardise(x)
		switch len(m.classes) {
		case 1:
			out[i] = m.classes[0]
		case 2:
			if dot(m.weights[0], z) >= 0 {
				out[i] = m.classes[1]
			} else {
				out[i] = m.classes[0]
			}
		default:
			best, bestScore := 0, math.Inf(-1)
			for ci, w := range m.weights {
				if s := dot(w, z); s > bestScore {
					best, bestScore = ci, s
				}
			}
			out[i] = m.classes[best]
		}
	}
	return out, nil
}

func (m *LinearSVM) standardise(x []float64) []float64 {
	z := make([]float64, len(x))
	for j, v := range x {
		z[j] = (v - m.mean[j]) / m.scale[j]
	}
	return z
}

// dot computes w·x + bias, with the bias stored as w's last element.
func dot(w, x []float64) float64 {
	s := w[len(w)-1]
	for j, v := range x {
		s += w[j] * v
	}
	return s
}
