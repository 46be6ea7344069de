package services

import (
	"context"
	"time"
)

type AuditStatus string

const (
	StatusCreated    AuditStatus = "created"
	StatusInProgress AuditStatus = "in_progress"
	StatusCompleted  AuditStatus = "completed"
)

// Industries, Standards and CompanySizes are the accepted classification
// values for an audit. Unknown values are rejected at creation time.
var (
	Industries = []string{
		"manufacturing", "healthcare", "retail", "technology", "finance",
		"education", "construction", "transportation", "energy", "agriculture", "other",
	}
	Standards    = []string{"iso9001", "iso14001", "iso45001", "iso27001", "sox", "gdpr", "hipaa", "other"}
	CompanySizes = []string{"small", "medium", "large", "enterprise"}
)

// Audit is one engagement tracked from creation through scored completion.
type Audit struct {
	ID             string
	Title          string
	CompanyName    string
	Industry       string
	Standard       string
	CompanySize    string
	Country        string
	CreatedBy      string
	Status         AuditStatus
	IsCompleted    bool
	CompletionDate *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ChecklistCategory groups the questions generated for one audit.
// Order is 1-based and contiguous within the audit.
type ChecklistCategory struct {
	ID          string
	AuditID     string
	Name        string
	Description string
	Order       int
	Questions   []*ChecklistQuestion
}

// ChecklistQuestion is a single checklist entry. Order is 1-based and
// contiguous within its category.
type ChecklistQuestion struct {
	ID         string
	CategoryID string
	Text       string
	Order      int
}

// Response is one submitted score for a (audit, question) pair.
// Resubmission overwrites the previous score.
type Response struct {
	AuditID    string
	QuestionID string
	Score      int
	CreatedAt  time.Time
}

// Result holds the aggregated scores and recommendation text for an audit.
// There is at most one per audit and it is only written by the scoring step.
type Result struct {
	AuditID         string
	OverallScore    float64
	CategoryScores  map[string]float64
	Recommendations string
	GeneratedAt     time.Time
}

type User struct {
	ID        string
	Email     string
	PassHash  []byte
	Admin     bool
	CreatedAt time.Time
}

// AdminInvitation lets an existing admin invite another one. Registration
// with a valid token grants the admin role and consumes the token.
type AdminInvitation struct {
	Email     string
	Token     string
	InvitedBy string
	Used      bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// TextGenerator is the external generative-text collaborator. Both checklist
// and recommendation generation go through this single operation; callers
// treat any error as an upstream failure and fall back to fixed content.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error)
}

func validChoice(v string, choices []string) bool {
	for _, c := range choices {
		if v == c {
			return true
		}
	}
	return false
}
