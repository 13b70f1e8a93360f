package model

// Metrics summarizes binary-classification quality. F1Weighted is the model
// selection criterion.
type Metrics struct {
	Accuracy   float64 `json:"accuracy"`
	Precision  float64 `json:"precision"`
	Recall     float64 `json:"recall"`
	F1         float64 `json:"f1"`
	F1Weighted float64 `json:"f1_weighted"`
}

// Evaluate computes metrics from true and predicted labels. Precision,
// recall, and F1 are for the positive (malicious) class; F1Weighted averages
// both classes by support.
func Evaluate(yTrue, yPred []int) Metrics {
	var m Metrics
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return m
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	m.Accuracy = float64(correct) / float64(len(yTrue))

	m.Precision, m.Recall, m.F1 = classPRF(yTrue, yPred, 1)
	_, _, f1Neg := classPRF(yTrue, yPred, 0)

	support1 := 0
	for _, v := range yTrue {
		if v == 1 {
			support1++
		}
	}
	w1 := float64(support1) / float64(len(yTrue))
	m.F1Weighted = w1*m.F1 + (1-w1)*f1Neg
	return m
}

func classPRF(yTrue, yPred []int, class int) (precision, recall, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		switch {
		case yPred[i] == class && yTrue[i] == class:
			tp++
		case yPred[i] == class && yTrue[i] != class:
			fp++
		case yPred[i] != class && yTrue[i] == class:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
