package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubGenerator struct {
	text       string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (g *stubGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	g.calls++
	g.lastSystem = systemPrompt
	g.lastUser = userPrompt
	return g.text, g.err
}

func TestGenerateReturnsModelText(t *testing.T) {
	gen := &stubGenerator{text: "1. Improve documentation."}
	svc := NewRecommendationService(gen)
	a := &Audit{CompanyName: "Acme", Industry: "finance", Standard: "sox"}

	got := svc.Generate(context.Background(), a, map[string]float64{"Controls": 5.5})
	if got != "1. Improve documentation." {
		t.Fatalf("expected model text verbatim, got %q", got)
	}
	if !strings.Contains(gen.lastUser, "Controls: 5.5/10") {
		t.Fatalf("summary line missing from prompt:\n%s", gen.lastUser)
	}
	if !strings.Contains(gen.lastUser, "Acme") || !strings.Contains(gen.lastUser, "sox") {
		t.Fatalf("audit context missing from prompt:\n%s", gen.lastUser)
	}
}

func TestGenerateFallbackOnError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("rate limited")}
	svc := NewRecommendationService(gen)
	a := &Audit{CompanyName: "Acme"}

	for i := 0; i < 3; i++ {
		if got := svc.Generate(context.Background(), a, map[string]float64{"A": 3}); got != FallbackRecommendations {
			t.Fatalf("expected fixed fallback, got %q", got)
		}
	}
}

func TestGenerateFallbackOnEmptyText(t *testing.T) {
	gen := &stubGenerator{text: "   "}
	svc := NewRecommendationService(gen)
	if got := svc.Generate(context.Background(), &Audit{}, nil); got != FallbackRecommendations {
		t.Fatalf("expected fallback for blank model output, got %q", got)
	}
}

func TestGenerateFallbackWithoutGenerator(t *testing.T) {
	svc := NewRecommendationService(nil)
	if got := svc.Generate(context.Background(), &Audit{}, nil); got != FallbackRecommendations {
		t.Fatalf("expected fallback without generator, got %q", got)
	}
}

func TestBuildRecommendationPromptStableOrder(t *testing.T) {
	a := &Audit{CompanyName: "Acme", Industry: "retail", Standard: "gdpr"}
	scores := map[string]float64{"Zeta": 9.25, "Alpha": 4.0}
	p := BuildRecommendationPrompt(a, scores)

	alpha := strings.Index(p, "Alpha: 4.0/10")
	zeta := strings.Index(p, "Zeta: 9.2/10")
	if alpha < 0 || zeta < 0 {
		t.Fatalf("category lines missing or misformatted:\n%s", p)
	}
	if alpha > zeta {
		t.Fatalf("category lines not in name order:\n%s", p)
	}
}
