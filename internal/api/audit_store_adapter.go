package api

import "github.com/auditforge/auditforge/internal/services"

type auditStoreAdapter struct{ store Store }

func newAuditStoreAdapter(store Store) services.AuditStore {
	return &auditStoreAdapter{store: store}
}

func (a *auditStoreAdapter) InsertAudit(audit *services.Audit) error {
	return a.store.AddAudit(convertServiceAudit(audit))
}

func (a *auditStoreAdapter) GetAudit(id string) (*services.Audit, error) {
	stored, err := a.store.GetAudit(id)
	if err != nil {
		return nil, err
	}
	return convertAPIAudit(stored), nil
}

func (a *auditStoreAdapter) ListAudits() ([]*services.Audit, error) {
	stored, err := a.store.ListAudits()
	if err != nil {
		return nil, err
	}
	return convertAPIAudits(stored), nil
}

func (a *auditStoreAdapter) ListAuditsByUser(uid string) ([]*services.Audit, error) {
	stored, err := a.store.ListAuditsByUser(uid)
	if err != nil {
		return nil, err
	}
	return convertAPIAudits(stored), nil
}

func (a *auditStoreAdapter) CountCategories(auditID string) (int, error) {
	return a.store.CountCategories(auditID)
}

func (a *auditStoreAdapter) InsertChecklist(audit *services.Audit, cats []*services.ChecklistCategory) error {
	apiCats := make([]*ChecklistCategory, 0, len(cats))
	for _, cat := range cats {
		apiCats = append(apiCats, convertServiceCategory(cat))
	}
	return a.store.InsertChecklist(convertServiceAudit(audit), apiCats)
}

func (a *auditStoreAdapter) ListChecklist(auditID string) ([]*services.ChecklistCategory, error) {
	stored, err := a.store.ListChecklist(auditID)
	if err != nil {
		return nil, err
	}
	out := make([]*services.ChecklistCategory, 0, len(stored))
	for _, cat := range stored {
		out = append(out, convertAPICategory(cat))
	}
	return out, nil
}

func (a *auditStoreAdapter) ListResponses(auditID string) ([]*services.Response, error) {
	stored, err := a.store.ListResponses(auditID)
	if err != nil {
		return nil, err
	}
	out := make([]*services.Response, 0, len(stored))
	for _, r := range stored {
		out = append(out, &services.Response{AuditID: r.AuditID, QuestionID: r.QuestionID, Score: r.Score, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (a *auditStoreAdapter) GetResult(auditID string) (*services.Result, error) {
	stored, err := a.store.GetResult(auditID)
	if err != nil {
		return nil, err
	}
	return convertAPIResult(stored), nil
}

func (a *auditStoreAdapter) SaveSubmission(audit *services.Audit, rs []*services.Response, res *services.Result) error {
	apiRs := make([]*Response, 0, len(rs))
	for _, r := range rs {
		apiRs = append(apiRs, &Response{AuditID: r.AuditID, QuestionID: r.QuestionID, Score: r.Score, CreatedAt: r.CreatedAt})
	}
	return a.store.SaveSubmission(convertServiceAudit(audit), apiRs, convertServiceResult(res))
}

func convertServiceAudit(a *services.Audit) *Audit {
	if a == nil {
		return nil
	}
	return &Audit{
		ID:             a.ID,
		Title:          a.Title,
		CompanyName:    a.CompanyName,
		Industry:       a.Industry,
		Standard:       a.Standard,
		CompanySize:    a.CompanySize,
		Country:        a.Country,
		CreatedBy:      a.CreatedBy,
		Status:         string(a.Status),
		IsCompleted:    a.IsCompleted,
		CompletionDate: a.CompletionDate,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func convertAPIAudit(a *Audit) *services.Audit {
	if a == nil {
		return nil
	}
	return &services.Audit{
		ID:             a.ID,
		Title:          a.Title,
		CompanyName:    a.CompanyName,
		Industry:       a.Industry,
		Standard:       a.Standard,
		CompanySize:    a.CompanySize,
		Country:        a.Country,
		CreatedBy:      a.CreatedBy,
		Status:         services.AuditStatus(a.Status),
		IsCompleted:    a.IsCompleted,
		CompletionDate: a.CompletionDate,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func convertAPIAudits(audits []*Audit) []*services.Audit {
	out := make([]*services.Audit, 0, len(audits))
	for _, a := range audits {
		out = append(out, convertAPIAudit(a))
	}
	return out
}

func convertServiceCategory(cat *services.ChecklistCategory) *ChecklistCategory {
	if cat == nil {
		return nil
	}
	out := &ChecklistCategory{
		ID:          cat.ID,
		AuditID:     cat.AuditID,
		Name:        cat.Name,
		Description: cat.Description,
		Order:       cat.Order,
		Questions:   make([]*ChecklistQuestion, 0, len(cat.Questions)),
	}
	for _, q := range cat.Questions {
		out.Questions = append(out.Questions, &ChecklistQuestion{ID: q.ID, CategoryID: q.CategoryID, Text: q.Text, Order: q.Order})
	}
	return out
}

func convertAPICategory(cat *ChecklistCategory) *services.ChecklistCategory {
	if cat == nil {
		return nil
	}
	out := &services.ChecklistCategory{
		ID:          cat.ID,
		AuditID:     cat.AuditID,
		Name:        cat.Name,
		Description: cat.Description,
		Order:       cat.Order,
		Questions:   make([]*services.ChecklistQuestion, 0, len(cat.Questions)),
	}
	for _, q := range cat.Questions {
		out.Questions = append(out.Questions, &services.ChecklistQuestion{ID: q.ID, CategoryID: q.CategoryID, Text: q.Text, Order: q.Order})
	}
	return out
}

func convertServiceResult(res *services.Result) *Result {
	if res == nil {
		return nil
	}
	return &Result{
		AuditID:         res.AuditID,
		OverallScore:    res.OverallScore,
		CategoryScores:  res.CategoryScores,
		Recommendations: res.Recommendations,
		GeneratedAt:     res.GeneratedAt,
	}
}

func convertAPIResult(res *Result) *services.Result {
	if res == nil {
		return nil
	}
	return &services.Result{
		AuditID:         res.AuditID,
		OverallScore:    res.OverallScore,
		CategoryScores:  res.CategoryScores,
		Recommendations: res.Recommendations,
		GeneratedAt:     res.GeneratedAt,
	}
}

var _ services.AuditStore = (*auditStoreAdapter)(nil)
