package api

// Store is the persistence boundary for the API layer. InsertChecklist and
// SaveSubmission span multiple entities and must commit atomically.
type Store interface {
	AddUser(u *User) error
	FindUserByEmail(email string) (*User, error)

	AddInvitation(inv *AdminInvitation) error
	GetInvitationByToken(token string) (*AdminInvitation, error)
	FindInvitationByEmail(email string) (*AdminInvitation, error)
	MarkInvitationUsed(token string) error

	AddAudit(a *Audit) error
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

var _ Store = (*memoryStore)(nil)
