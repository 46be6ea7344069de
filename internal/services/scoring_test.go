package services

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool { return math.Abs(a-b) < epsilon }

func TestAggregateCategoryAndOverall(t *testing.T) {
	structure := []CategoryQuestions{
		{Name: "A", QuestionIDs: []string{"Q1", "Q2"}},
		{Name: "B", QuestionIDs: []string{"Q3"}},
	}
	scores := map[string]int{"Q1": 8, "Q2": 6, "Q3": 10}

	sum := Aggregator{}.Aggregate(structure, scores)
	if !almostEqual(sum.CategoryScores["A"], 7.0) {
		t.Fatalf("category A = %v, want 7.0", sum.CategoryScores["A"])
	}
	if !almostEqual(sum.CategoryScores["B"], 10.0) {
		t.Fatalf("category B = %v, want 10.0", sum.CategoryScores["B"])
	}
	// Overall is the mean of raw scores (8,6,10), not of category averages.
	if !almostEqual(sum.Overall, 8.0) {
		t.Fatalf("overall = %v, want 8.0", sum.Overall)
	}
	if sum.Answered != 3 || sum.Total != 3 {
		t.Fatalf("answered/total = %d/%d, want 3/3", sum.Answered, sum.Total)
	}
}

func TestAggregatePartialCategory(t *testing.T) {
	structure := []CategoryQuestions{
		{Name: "A", QuestionIDs: []string{"Q1", "Q2", "Q3"}},
	}
	scores := map[string]int{"Q1": 4, "Q2": 8}

	sum := Aggregator{}.Aggregate(structure, scores)
	// The unanswered question does not contribute a zero.
	if !almostEqual(sum.CategoryScores["A"], 6.0) {
		t.Fatalf("category A = %v, want 6.0", sum.CategoryScores["A"])
	}
	if sum.Answered != 2 || sum.Total != 3 {
		t.Fatalf("answered/total = %d/%d, want 2/3", sum.Answered, sum.Total)
	}
}

func TestAggregateUnansweredCategoryExcluded(t *testing.T) {
	structure := []CategoryQuestions{
		{Name: "A", QuestionIDs: []string{"Q1"}},
		{Name: "B", QuestionIDs: []string{"Q2", "Q3"}},
	}
	scores := map[string]int{"Q1": 9}

	sum := Aggregator{}.Aggregate(structure, scores)
	if _, ok := sum.CategoryScores["B"]; ok {
		t.Fatalf("category without answers must be excluded, got %v", sum.CategoryScores)
	}
	if !almostEqual(sum.Overall, 9.0) {
		t.Fatalf("overall = %v, want 9.0", sum.Overall)
	}
}

func TestAggregateEmpty(t *testing.T) {
	structure := []CategoryQuestions{{Name: "A", QuestionIDs: []string{"Q1"}}}

	sum := Aggregator{}.Aggregate(structure, nil)
	if sum.Overall != 0 {
		t.Fatalf("overall = %v, want 0", sum.Overall)
	}
	if len(sum.CategoryScores) != 0 {
		t.Fatalf("category scores should be empty, got %v", sum.CategoryScores)
	}

	custom := Aggregator{EmptyOverall: -1}.Aggregate(structure, nil)
	if custom.Overall != -1 {
		t.Fatalf("configured empty overall = %v, want -1", custom.Overall)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	structure := []CategoryQuestions{
		{Name: "A", QuestionIDs: []string{"Q1", "Q2", "Q3", "Q4", "Q5"}},
	}
	scores := map[string]int{"Q1": 1, "Q2": 3, "Q3": 7, "Q4": 9, "Q5": 10}

	first := Aggregator{}.Aggregate(structure, scores)
	for i := 0; i < 50; i++ {
		again := Aggregator{}.Aggregate(structure, scores)
		if !almostEqual(first.Overall, again.Overall) {
			t.Fatalf("aggregation not deterministic: %v vs %v", first.Overall, again.Overall)
		}
	}
}
