package classify

// ClassMetrics holds precision, recall and F1 for one label.
type ClassMetrics struct {
	Label     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarises predictions against ground truth.
type Report struct {
	Model    string
	Accuracy float64
	Classes  []ClassMetrics
	Macro    ClassMetrics // Label is unused; Support is the total
}

// Accuracy returns the fraction of equal labels. Empty input gives 0.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	hit := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(yTrue))
}

// Evaluate computes accuracy and per-class metrics over the labels present
// in either slice. Undefined ratios are reported as 0.
func Evaluate(yTrue, yPred []int) Report {
	r := Report{Accuracy: Accuracy(yTrue, yPred)}
	labels := classesOf(append(append([]int(nil), yTrue...), yPred...))
	for _, c := range labels {
		var tp, fp, fn, support int
		for i := range yTrue {
			t, p := yTrue[i] == c, i < len(yPred) && yPred[i] == c
			switch {
			case t && p:
				tp++
			case !t && p:
				fp++
			case t && !p:
				fn++
			}
			if t {
				support++
			}
		}
		m := ClassMetrics{Label: c, Support: support}
		m.Precision = ratio(tp, tp+fp)
		m.Recall = ratio(tp, tp+fn)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes = append(r.Classes, m)
	}

	if n := len(r.Classes); n > 0 {
		for _, m := range r.Classes {
			r.Macro.Precision += m.Precision
			r.Macro.Recall += m.Recall
			r.Macro.F1 += m.F1
			r.Macro.Support += m.Support
		}
		r.Macro.Precision /= float64(n)
		r.Macro.Recall /= float64(n)
		r.Macro.F1 /= float64(n)
	}
	return r
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// TrainEvaluate fits c on train and evaluates it on test.
func TrainEvaluate(c Classifier, train, test Dataset) (Report, error) {
	if err := c.Fit(train.X, train.Y); err != nil {
		return Report{}, err
	}
	pred, err := c.Predict(test.X)
	if err != nil {
		return Report{}, err
	}
	r := Evaluate(test.Y, pred)
	r.Model = c.Name()
	return r, nil
}
