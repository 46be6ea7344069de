package services

// CategoryQuestions is the checklist structure the aggregator scores against:
// one category name with the ids of its questions, in display order.
type CategoryQuestions struct {
	Name        string
	QuestionIDs []string
}

// ScoreSummary is the output of one aggregation pass.
type ScoreSummary struct {
	Overall        float64
	CategoryScores map[string]float64
	Answered       int
	Total          int
}

// Aggregator computes per-category and overall score averages. It is pure:
// the same structure and scores always yield the same summary.
//
// Overall is the mean of all individual recorded scores, not the mean of
// per-category averages; the two differ when categories have unequal
// question counts. Categories without any recorded score are excluded from
// CategoryScores and contribute nothing to the overall denominator.
type Aggregator struct {
	// EmptyOverall is reported as Overall when no question has a recorded
	// score. Zero keeps the historical convention.
	EmptyOverall float64
}

func (a Aggregator) Aggregate(structure []CategoryQuestions, scores map[string]int) ScoreSummary {
	out := ScoreSummary{CategoryScores: map[string]float64{}}
	sum := 0
	for _, cat := range structure {
		catSum, catCount := 0, 0
		for _, qid := range cat.QuestionIDs {
			out.Total++
			score, ok := scores[qid]
			if !ok {
				continue
			}
			catSum += score
			catCount++
			sum += score
			out.Answered++
		}
		if catCount > 0 {
			out.CategoryScores[cat.Name] = float64(catSum) / float64(catCount)
		}
	}
	if out.Answered == 0 {
		out.Overall = a.EmptyOverall
		return out
	}
	out.Overall = float64(sum) / float64(out.Answered)
	return out
}
