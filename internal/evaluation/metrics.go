// Package evaluation measures retrieval quality. Evaluate computes
// precision, recall and F1 for one ranked list; Run benchmarks scorers over
// a set of queries with known relevant documents.
package evaluation

// Metrics holds the scores of one predicted list against one judgment set.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Evaluate scores predicted against relevant.
//
// True positives count distinct predicted ids that are relevant. Precision
// divides by the full length of predicted, so duplicate predictions lower
// it. Recall divides by the number of distinct relevant ids. Empty inputs
// give zero rather than an error.
func Evaluate[T comparable](predicted []T, relevant []T) Metrics {
	relevantSet := make(map[T]struct{}, len(relevant))
	for _, id := range relevant {
		relevantSet[id] = struct{}{}
	}
	seen := make(map[T]struct{}, len(predicted))
	truePositives := 0
	for _, id := range predicted {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := relevantSet[id]; ok {
			truePositives++
		}
	}

	var m Metrics
	if len(predicted) > 0 {
		m.Precision = float64(truePositives) / float64(len(predicted))
	}
	if len(relevantSet) > 0 {
		m.Recall = float64(truePositives) / float64(len(relevantSet))
	}
	if sum := m.Precision + m.Recall; sum != 0 {
		m.F1 = 2 * m.Precision * m.Recall / sum
	}
	return m
}

// Mean averages metrics component-wise. An empty slice gives zero.
func Mean(all []Metrics) Metrics {
	if len(all) == 0 {
		return Metrics{}
	}
	var sum Metrics
	for _, m := range all {
		sum.Precision += m.Precision
		sum.Recall += m.Recall
		sum.F1 += m.F1
	}
	n := float64(len(all))
	return Metrics{
		Precision: sum.Precision / n,
		Recall:    sum.Recall / n,
		F1:        sum.F1 / n,
	}
}
