package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// FallbackRecommendations is returned whenever the model cannot produce
// recommendation text. Callers can rely on Generate never failing.
const FallbackRecommendations = "Unable to generate AI recommendations at this time. Please review low-scoring areas and consult with compliance experts."

const recommendationSystemPrompt = "You are an expert compliance consultant. Provide specific, actionable recommendations."

// RecommendationService asks the text generator for improvement
// recommendations based on aggregated category scores.
type RecommendationService struct {
	gen         TextGenerator
	maxTokens   int
	temperature float32
}

func NewRecommendationService(gen TextGenerator) *RecommendationService {
	return &RecommendationService{gen: gen, maxTokens: 1500, temperature: 0.7}
}

// BuildRecommendationPrompt renders the audit context and one line per
// category average (one decimal place), in stable name order.
func BuildRecommendationPrompt(a *Audit, categoryScores map[string]float64) string {
	names := make([]string, 0, len(categoryScores))
	for name := range categoryScores {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the audit results for %s (%s industry, %s standard):\n\n", a.CompanyName, a.Industry, a.Standard)
	sb.WriteString("Scores by category:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "%s: %.1f/10\n", name, categoryScores[name])
	}
	sb.WriteString(`
Provide specific, actionable recommendations to improve compliance. Focus on:
1. Areas with scores below 7
2. Industry-specific best practices
`)
	fmt.Fprintf(&sb, "3. %s requirements\n", a.Standard)
	sb.WriteString("4. Priority actions (immediate vs long-term)\n\nFormat as clear, numbered recommendations.\n")
	return sb.String()
}

// Generate returns recommendation text for the audit. It is total: any
// upstream failure (no generator, error, empty response) yields the fixed
// fallback string instead of an error.
func (s *RecommendationService) Generate(ctx context.Context, a *Audit, categoryScores map[string]float64) string {
	if s == nil || s.gen == nil {
		return FallbackRecommendations
	}
	text, err := s.gen.GenerateText(ctx, recommendationSystemPrompt, BuildRecommendationPrompt(a, categoryScores), s.maxTokens, s.temperature)
	if err != nil || strings.TrimSpace(text) == "" {
		return FallbackRecommendations
	}
	return text
}
