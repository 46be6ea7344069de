package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/auditforge/auditforge/internal/api"
)

// SQLiteStore implements api.Store over a sqlite3 database. Multi-entity
// writes (checklist insertion, response submission) run inside a single
// transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func encodeScores(scores map[string]float64) (string, error) {
	if scores == nil {
		scores = map[string]float64{}
	}
	b, err := json.Marshal(scores)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeScores(raw string) map[string]float64 {
	out := map[string]float64{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func (s *SQLiteStore) AddUser(u *api.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, pass_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PassHash, boolToInt64(u.Admin), u.CreatedAt,
	)
	return err
}

func (s *SQLiteStore) FindUserByEmail(email string) (*api.User, error) {
	row := s.db.QueryRow(
		`SELECT id, email, pass_hash, is_admin, created_at FROM users WHERE email = ? COLLATE NOCASE`,
		email,
	)
	var u api.User
	var admin int64
	if err := row.Scan(&u.ID, &u.Email, &u.PassHash, &admin, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Admin = admin != 0
	return &u, nil
}

func (s *SQLiteStore) AddInvitation(inv *api.AdminInvitation) error {
	_, err := s.db.Exec(
		`INSERT INTO admin_invitations (token, email, invited_by, is_used, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		inv.Token, inv.Email, inv.InvitedBy, boolToInt64(inv.Used), inv.CreatedAt, inv.ExpiresAt,
	)
	return err
}

func (s *SQLiteStore) scanInvitation(row *sql.Row) (*api.AdminInvitation, error) {
	var inv api.AdminInvitation
	var used int64
	if err := row.Scan(&inv.Token, &inv.Email, &inv.InvitedBy, &used, &inv.CreatedAt, &inv.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	inv.Used = used != 0
	return &inv, nil
}

func (s *SQLiteStore) GetInvitationByToken(token string) (*api.AdminInvitation, error) {
	return s.scanInvitation(s.db.QueryRow(
		`SELECT token, email, invited_by, is_used, created_at, expires_at FROM admin_invitations WHERE token = ?`,
		token,
	))
}

func (s *SQLiteStore) FindInvitationByEmail(email string) (*api.AdminInvitation, error) {
	return s.scanInvitation(s.db.QueryRow(
		`SELECT token, email, invited_by, is_used, created_at, expires_at FROM admin_invitations
		 WHERE email = ? COLLATE NOCASE ORDER BY created_at DESC LIMIT 1`,
		email,
	))
}

func (s *SQLiteStore) MarkInvitationUsed(token string) error {
	_, err := s.db.Exec(`UPDATE admin_invitations SET is_used = 1 WHERE token = ?`, token)
	return err
}

const auditColumns = `id, title, company_name, industry, standard, company_size, country, created_by, status, is_completed, completion_date, created_at, updated_at`

func (s *SQLiteStore) AddAudit(a *api.Audit) error {
	_, err := s.db.Exec(
		`INSERT INTO audits (`+auditColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.CompanyName, a.Industry, a.Standard, a.CompanySize, a.Country,
		a.CreatedBy, a.Status, boolToInt64(a.IsCompleted), toNullTime(a.CompletionDate), a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func scanAudit(scanner interface{ Scan(...any) error }) (*api.Audit, error) {
	var a api.Audit
	var completed int64
	var completionDate sql.NullTime
	if err := scanner.Scan(
		&a.ID, &a.Title, &a.CompanyName, &a.Industry, &a.Standard, &a.CompanySize, &a.Country,
		&a.CreatedBy, &a.Status, &completed, &completionDate, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.IsCompleted = completed != 0
	a.CompletionDate = fromNullTime(completionDate)
	return &a, nil
}

func (s *SQLiteStore) GetAudit(id string) (*api.Audit, error) {
	a, err := scanAudit(s.db.QueryRow(`SELECT `+auditColumns+` FROM audits WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *SQLiteStore) listAudits(query string, args ...any) ([]*api.Audit, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*api.Audit{}
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListAudits() ([]*api.Audit, error) {
	return s.listAudits(`SELECT ` + auditColumns + ` FROM audits ORDER BY created_at, id`)
}

func (s *SQLiteStore) ListAuditsByUser(uid string) ([]*api.Audit, error) {
	return s.listAudits(`SELECT `+auditColumns+` FROM audits WHERE created_by = ? ORDER BY created_at, id`, uid)
}

func (s *SQLiteStore) CountCategories(auditID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM checklist_categories WHERE audit_id = ?`, auditID).Scan(&n)
	return n, err
}

func updateAuditTx(tx *sql.Tx, a *api.Audit) error {
	_, err := tx.Exec(
		`UPDATE audits SET status = ?, is_completed = ?, completion_date = ?, updated_at = ? WHERE id = ?`,
		a.Status, boolToInt64(a.IsCompleted), toNullTime(a.CompletionDate), a.UpdatedAt, a.ID,
	)
	return err
}

func (s *SQLiteStore) InsertChecklist(a *api.Audit, cats []*api.ChecklistCategory) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, cat := range cats {
		if _, err := tx.Exec(
			`INSERT INTO checklist_categories (id, audit_id, name, description, display_order) VALUES (?, ?, ?, ?, ?)`,
			cat.ID, cat.AuditID, cat.Name, cat.Description, cat.Order,
		); err != nil {
			return err
		}
		for _, q := range cat.Questions {
			if _, err := tx.Exec(
				`INSERT INTO checklist_questions (id, category_id, question_text, display_order) VALUES (?, ?, ?, ?)`,
				q.ID, q.CategoryID, q.Text, q.Order,
			); err != nil {
				return err
			}
		}
	}
	if err := updateAuditTx(tx, a); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListChecklist(auditID string) ([]*api.ChecklistCategory, error) {
	rows, err := s.db.Query(
		`SELECT id, audit_id, name, description, display_order FROM checklist_categories WHERE audit_id = ? ORDER BY display_order`,
		auditID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := []*api.ChecklistCategory{}
	byID := map[string]*api.ChecklistCategory{}
	for rows.Next() {
		var cat api.ChecklistCategory
		if err := rows.Scan(&cat.ID, &cat.AuditID, &cat.Name, &cat.Description, &cat.Order); err != nil {
			return nil, err
		}
		cat.Questions = []*api.ChecklistQuestion{}
		cats = append(cats, &cat)
		byID[cat.ID] = &cat
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qRows, err := s.db.Query(
		`SELECT q.id, q.category_id, q.question_text, q.display_order
		 FROM checklist_questions q
		 JOIN checklist_categories c ON c.id = q.category_id
		 WHERE c.audit_id = ?
		 ORDER BY c.display_order, q.display_order`,
		auditID,
	)
	if err != nil {
		return nil, err
	}
	defer qRows.Close()
	for qRows.Next() {
		var q api.ChecklistQuestion
		if err := qRows.Scan(&q.ID, &q.CategoryID, &q.Text, &q.Order); err != nil {
			return nil, err
		}
		if cat := byID[q.CategoryID]; cat != nil {
			cat.Questions = append(cat.Questions, &q)
		}
	}
	return cats, qRows.Err()
}

func (s *SQLiteStore) ListResponses(auditID string) ([]*api.Response, error) {
	rows, err := s.db.Query(
		`SELECT audit_id, question_id, score, created_at FROM responses WHERE audit_id = ? ORDER BY question_id`,
		auditID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*api.Response{}
	for rows.Next() {
		var r api.Response
		if err := rows.Scan(&r.AuditID, &r.QuestionID, &r.Score, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetResult(auditID string) (*api.Result, error) {
	row := s.db.QueryRow(
		`SELECT audit_id, overall_score, category_scores, recommendations, generated_at FROM results WHERE audit_id = ?`,
		auditID,
	)
	var res api.Result
	var rawScores string
	if err := row.Scan(&res.AuditID, &res.OverallScore, &rawScores, &res.Recommendations, &res.GeneratedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	res.CategoryScores = decodeScores(rawScores)
	return &res, nil
}

// SaveSubmission upserts the submitted responses, replaces the result row
// and flips the audit's completion flags in one transaction.
func (s *SQLiteStore) SaveSubmission(a *api.Audit, rs []*api.Response, res *api.Result) error {
	rawScores, err := encodeScores(res.CategoryScores)
	if err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range rs {
		if _, err := tx.Exec(
			`INSERT INTO responses (audit_id, question_id, score, created_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (audit_id, question_id) DO UPDATE SET score = excluded.score, created_at = excluded.created_at`,
			r.AuditID, r.QuestionID, r.Score, r.CreatedAt,
		); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO results (audit_id, overall_score, category_scores, recommendations, generated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (audit_id) DO UPDATE SET overall_score = excluded.overall_score, category_scores = excluded.category_scores,
		 recommendations = excluded.recommendations, generated_at = excluded.generated_at`,
		res.AuditID, res.OverallScore, rawScores, res.Recommendations, res.GeneratedAt,
	); err != nil {
		return err
	}
	if err := updateAuditTx(tx, a); err != nil {
		return err
	}
	return tx.Commit()
}

var _ api.Store = (*SQLiteStore)(nil)
