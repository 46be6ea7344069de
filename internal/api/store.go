package api

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
}

type AdminInvitation struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	InvitedBy string    `json:"invited_by"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Audit struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	CompanyName    string     `json:"company_name"`
	Industry       string     `json:"industry"`
	Standard       string     `json:"standard"`
	CompanySize    string     `json:"company_size"`
	Country        string     `json:"country,omitempty"`
	CreatedBy      string     `json:"created_by"`
	Status         string     `json:"status"`
	IsCompleted    bool       `json:"is_completed"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type ChecklistCategory struct {
	ID          string               `json:"id"`
	AuditID     string               `json:"audit_id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Order       int                  `json:"order"`
	Questions   []*ChecklistQuestion `json:"questions"`
}

type ChecklistQuestion struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Text       string `json:"question_text"`
	Order      int    `json:"order"`
}

type Response struct {
	AuditID    string    `json:"audit_id"`
	QuestionID string    `json:"question_id"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

type Result struct {
	AuditID         string             `json:"audit_id"`
	OverallScore    float64            `json:"overall_score"`
	CategoryScores  map[string]float64 `json:"category_scores"`
	Recommendations string             `json:"recommendations"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

type memoryStore struct {
	mu           sync.RWMutex
	usersByEmail map[string]*User
	invitations  map[string]*AdminInvitation // keyed by token
	audits       map[string]*Audit
	checklists   map[string][]*ChecklistCategory // keyed by audit id, display order
	responses    map[string]map[string]*Response // audit id -> question id
	results      map[string]*Result
}

// NewMemoryStore returns an in-process Store. It backs tests and the
// AUDITFORGE_DB=memory development mode.
func NewMemoryStore() Store {
	return &memoryStore{
		usersByEmail: map[string]*User{},
		invitations:  map[string]*AdminInvitation{},
		audits:       map[string]*Audit{},
		checklists:   map[string][]*ChecklistCategory{},
		responses:    map[string]map[string]*Response{},
		results:      map[string]*Result{},
	}
}

func (s *memoryStore) AddUser(u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.usersByEmail[strings.ToLower(u.Email)] = &cp
	return nil
}

func (s *memoryStore) FindUserByEmail(email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.usersByEmail[strings.ToLower(email)]
	if u == nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *memoryStore) AddInvitation(inv *AdminInvitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inv
	s.invitations[inv.Token] = &cp
	return nil
}

func (s *memoryStore) GetInvitationByToken(token string) (*AdminInvitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv := s.invitations[token]
	if inv == nil {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

// FindInvitationByEmail returns the most recent invitation for the email.
func (s *memoryStore) FindInvitationByEmail(email string) (*AdminInvitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *AdminInvitation
	for _, inv := range s.invitations {
		if !strings.EqualFold(inv.Email, email) {
			continue
		}
		if latest == nil || inv.CreatedAt.After(latest.CreatedAt) {
			latest = inv
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memoryStore) MarkInvitationUsed(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv := s.invitations[token]; inv != nil {
		inv.Used = true
	}
	return nil
}

func (s *memoryStore) AddAudit(a *Audit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.audits[a.ID] = &cp
	return nil
}

// GetAudit returns a copy so callers can stage changes without mutating the
// committed row.
func (s *memoryStore) GetAudit(id string) (*Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.audits[id]
	if a == nil {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *memoryStore) ListAudits() ([]*Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Audit, 0, len(s.audits))
	for _, a := range s.audits {
		cp := *a
		out = append(out, &cp)
	}
	sortAudits(out)
	return out, nil
}

func (s *memoryStore) ListAuditsByUser(uid string) ([]*Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Audit{}
	for _, a := range s.audits {
		if a.CreatedBy == uid {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortAudits(out)
	return out, nil
}

func sortAudits(audits []*Audit) {
	sort.Slice(audits, func(i, j int) bool {
		if audits[i].CreatedAt.Equal(audits[j].CreatedAt) {
			return audits[i].ID < audits[j].ID
		}
		return audits[i].CreatedAt.Before(audits[j].CreatedAt)
	})
}

func (s *memoryStore) CountCategories(auditID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checklists[auditID]), nil
}

func (s *memoryStore) InsertChecklist(a *Audit, cats []*ChecklistCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklists[a.ID] = copyChecklist(cats)
	cp := *a
	s.audits[a.ID] = &cp
	return nil
}

func (s *memoryStore) ListChecklist(auditID string) ([]*ChecklistCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyChecklist(s.checklists[auditID]), nil
}

func copyChecklist(cats []*ChecklistCategory) []*ChecklistCategory {
	out := make([]*ChecklistCategory, 0, len(cats))
	for _, cat := range cats {
		cp := *cat
		cp.Questions = make([]*ChecklistQuestion, 0, len(cat.Questions))
		for _, q := range cat.Questions {
			qc := *q
			cp.Questions = append(cp.Questions, &qc)
		}
		out = append(out, &cp)
	}
	return out
}

func (s *memoryStore) ListResponses(auditID string) ([]*Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.responses[auditID]
	out := make([]*Response, 0, len(m))
	for _, r := range m {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (s *memoryStore) GetResult(auditID string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := s.results[auditID]
	if res == nil {
		return nil, nil
	}
	cp := *res
	return &cp, nil
}

// SaveSubmission commits responses, the result row and the audit completion
// flags under one lock: all or nothing, matching the SQLite transaction.
func (s *memoryStore) SaveSubmission(a *Audit, rs []*Response, res *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.responses[a.ID]
	if m == nil {
		m = map[string]*Response{}
		s.responses[a.ID] = m
	}
	for _, r := range rs {
		cp := *r
		m[r.QuestionID] = &cp
	}
	resCp := *res
	s.results[a.ID] = &resCp
	aCp := *a
	s.audits[a.ID] = &aCp
	return nil
}
