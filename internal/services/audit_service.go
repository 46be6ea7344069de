package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuditStore abstracts persistence operations required by AuditService.
// InsertChecklist and SaveSubmission are multi-entity writes and must be
// atomic: either every row lands or none do.
type AuditStore interface {
	InsertAudit(a *Audit) error
	GetAudit(id string) (*Audit, error)
	ListAudits() ([]*Audit, error)
	ListAuditsByUser(uid string) ([]*Audit, error)

	CountCategories(auditID string) (int, error)
	InsertChecklist(a *Audit, cats []*ChecklistCategory) error
	ListChecklist(auditID string) ([]*ChecklistCategory, error)

	ListResponses(auditID string) ([]*Response, error)
	GetResult(auditID string) (*Result, error)
	SaveSubmission(a *Audit, rs []*Response, res *Result) error
}

// AuditService drives the audit lifecycle: create, generate checklist once,
// accept scored responses, aggregate, and mark complete.
type AuditService struct {
	store AuditStore
	gen   TextGenerator
	recs  *RecommendationService
	agg   Aggregator
	now   func() time.Time
	idGen func() string

	checklistMaxTokens   int
	checklistTemperature float32
}

func NewAuditService(store AuditStore, gen TextGenerator) *AuditService {
	return &AuditService{
		store:                store,
		gen:                  gen,
		recs:                 NewRecommendationService(gen),
		now:                  func() time.Time { return time.Now().UTC() },
		idGen:                func() string { return shortID(8) },
		checklistMaxTokens:   2000,
		checklistTemperature: 0.7,
	}
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

func (s *AuditService) CreateAudit(uid string, in *Audit) (*Audit, error) {
	if uid == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	if in == nil {
		return nil, NewInvalidError("audit required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, NewInvalidError("title required")
	}
	if strings.TrimSpace(in.CompanyName) == "" {
		return nil, NewInvalidError("company_name required")
	}
	if in.Industry == "" {
		in.Industry = "other"
	}
	if !validChoice(in.Industry, Industries) {
		return nil, NewInvalidError("unknown industry")
	}
	if in.Standard == "" {
		in.Standard = "other"
	}
	if !validChoice(in.Standard, Standards) {
		return nil, NewInvalidError("unknown standard")
	}
	if in.CompanySize == "" {
		in.CompanySize = "small"
	}
	if !validChoice(in.CompanySize, CompanySizes) {
		return nil, NewInvalidError("unknown company_size")
	}
	now := s.now()
	in.ID = s.idGen()
	in.CreatedBy = uid
	in.Status = StatusCreated
	in.IsCompleted = false
	in.CompletionDate = nil
	in.CreatedAt = now
	in.UpdatedAt = now
	if err := s.store.InsertAudit(in); err != nil {
		return nil, err
	}
	return in, nil
}

// getOwned fetches an audit and enforces that uid is its creator or an admin.
func (s *AuditService) getOwned(uid string, admin bool, auditID string) (*Audit, error) {
	a, err := s.store.GetAudit(auditID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError("audit not found")
	}
	if a.CreatedBy != uid && !admin {
		return nil, NewForbiddenError("forbidden")
	}
	return a, nil
}

func (s *AuditService) GetAudit(uid string, admin bool, auditID string) (*Audit, error) {
	return s.getOwned(uid, admin, auditID)
}

func (s *AuditService) ListAudits(uid string, admin bool) ([]*Audit, error) {
	if admin {
		return s.store.ListAudits()
	}
	return s.store.ListAuditsByUser(uid)
}

// GenerateChecklist runs the one-time checklist generation pass. A second
// call for the same audit fails with a conflict and mutates nothing.
func (s *AuditService) GenerateChecklist(ctx context.Context, uid string, admin bool, auditID string) ([]*ChecklistCategory, error) {
	a, err := s.getOwned(uid, admin, auditID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountCategories(auditID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewConflictError("checklist already exists for this audit")
	}

	var parsed []ParsedCategory
	if s.gen != nil {
		text, genErr := s.gen.GenerateText(ctx, ChecklistSystemPrompt, BuildChecklistPrompt(a), s.checklistMaxTokens, s.checklistTemperature)
		if genErr == nil {
			parsed = ParseChecklist(text)
		}
	}
	if len(parsed) == 0 {
		parsed = FallbackChecklist()
	}

	cats := make([]*ChecklistCategory, 0, len(parsed))
	for i, pc := range parsed {
		cat := &ChecklistCategory{
			ID:          s.idGen(),
			AuditID:     auditID,
			Name:        pc.Name,
			Description: pc.Description,
			Order:       i + 1,
		}
		for j, q := range pc.Questions {
			cat.Questions = append(cat.Questions, &ChecklistQuestion{
				ID:         s.idGen(),
				CategoryID: cat.ID,
				Text:       q,
				Order:      j + 1,
			})
		}
		cats = append(cats, cat)
	}

	a.Status = StatusInProgress
	a.UpdatedAt = s.now()
	if err := s.store.InsertChecklist(a, cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (s *AuditService) GetChecklist(uid string, admin bool, auditID string) ([]*ChecklistCategory, error) {
	if _, err := s.getOwned(uid, admin, auditID); err != nil {
		return nil, err
	}
	return s.store.ListChecklist(auditID)
}

// SubmitResponses upserts the given scores, re-aggregates over every
// persisted response for the audit, asks for recommendations, and writes
// responses, result and the completion flags in one atomic commit.
func (s *AuditService) SubmitResponses(ctx context.Context, uid string, admin bool, auditID string, scores map[string]int) (*Result, error) {
	a, err := s.getOwned(uid, admin, auditID)
	if err != nil {
		return nil, err
	}
	cats, err := s.store.ListChecklist(auditID)
	if err != nil {
		return nil, err
	}

	known := map[string]bool{}
	structure := make([]CategoryQuestions, 0, len(cats))
	for _, cat := range cats {
		cq := CategoryQuestions{Name: cat.Name}
		for _, q := range cat.Questions {
			known[q.ID] = true
			cq.QuestionIDs = append(cq.QuestionIDs, q.ID)
		}
		structure = append(structure, cq)
	}

	for qid, score := range scores {
		if !known[qid] {
			return nil, NewInvalidError("unknown question: " + qid)
		}
		if score < 1 || score > 10 {
			return nil, NewInvalidError("score must be between 1 and 10")
		}
	}

	existing, err := s.store.ListResponses(auditID)
	if err != nil {
		return nil, err
	}
	all := make(map[string]int, len(existing)+len(scores))
	for _, r := range existing {
		all[r.QuestionID] = r.Score
	}
	for qid, score := range scores {
		all[qid] = score
	}

	summary := s.agg.Aggregate(structure, all)
	recommendations := s.recs.Generate(ctx, a, summary.CategoryScores)

	now := s.now()
	rs := make([]*Response, 0, len(scores))
	for qid, score := range scores {
		rs = append(rs, &Response{AuditID: auditID, QuestionID: qid, Score: score, CreatedAt: now})
	}
	result := &Result{
		AuditID:         auditID,
		OverallScore:    summary.Overall,
		CategoryScores:  summary.CategoryScores,
		Recommendations: recommendations,
		GeneratedAt:     now,
	}

	a.IsCompleted = true
	a.Status = StatusCompleted
	a.CompletionDate = &now
	a.UpdatedAt = now
	if err := s.store.SaveSubmission(a, rs, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AuditService) GetResults(uid string, admin bool, auditID string) (*Result, error) {
	if _, err := s.getOwned(uid, admin, auditID); err != nil {
		return nil, err
	}
	res, err := s.store.GetResult(auditID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, NewNotFoundError("results not available")
	}
	return res, nil
}
