package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/auditforge/auditforge/internal/middleware"
	"github.com/auditforge/auditforge/internal/services"
)

type Router struct {
	store   Store
	auth    *services.AuthService
	audits  *services.AuditService
	invites *services.InvitationService
}

// NewRouter wires the services against the given store. gen may be nil, in
// which case checklist generation and recommendations use their fixed
// fallbacks.
func NewRouter(store Store, gen services.TextGenerator) *Router {
	return &Router{
		store:   store,
		auth:    services.NewAuthService(newAuthStoreAdapter(store), middleware.SignToken),
		audits:  services.NewAuditService(newAuditStoreAdapter(store), gen),
		invites: services.NewInvitationService(newInvitationStoreAdapter(store), nil),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister)             // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)                   // POST
	mux.Handle("/api/audits", middleware.RequireAuth(http.HandlerFunc(rt.handleAudits)))            // GET, POST
	mux.Handle("/api/audits/", middleware.RequireAuth(http.HandlerFunc(rt.handleAuditScoped)))      // audit actions
	mux.Handle("/api/admin/invitations", middleware.RequireAuth(http.HandlerFunc(rt.handleInvitations))) // POST
	mux.HandleFunc("/api/admin/invitations/validate", rt.handleValidateInvitation)                  // GET
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		writeJSON(w, statusForCode(se.Code), map[string]string{"error": se.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func statusForCode(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorBadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		InviteToken string `json:"invite_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	res, err := rt.auth.Register(req.Email, req.Password, req.InviteToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"token": res.Token, "user_id": res.UserID, "admin": res.Admin})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "user_id": res.UserID, "admin": res.Admin})
}

// GET/POST /api/audits
func (rt *Router) handleAudits(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		audits, err := rt.audits.ListAudits(claims.UID, claims.Admin)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]*Audit, 0, len(audits))
		for _, a := range audits {
			out = append(out, convertServiceAudit(a))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req struct {
			Title       string `json:"title"`
			CompanyName string `json:"company_name"`
			Industry    string `json:"industry"`
			Standard    string `json:"standard"`
			CompanySize string `json:"company_size"`
			Country     string `json:"country"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, services.NewInvalidError(err.Error()))
			return
		}
		created, err := rt.audits.CreateAudit(claims.UID, &services.Audit{
			Title:       req.Title,
			CompanyName: req.CompanyName,
			Industry:    req.Industry,
			Standard:    req.Standard,
			CompanySize: req.CompanySize,
			Country:     req.Country,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, convertServiceAudit(created))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Audit-scoped actions:
//
//	GET  /api/audits/{id}
//	POST /api/audits/{id}/generate_checklist
//	GET  /api/audits/{id}/checklist
//	POST /api/audits/{id}/submit_responses
//	GET  /api/audits/{id}/results
//	GET  /api/audits/{id}/export?format=responses|checklist
func (rt *Router) handleAuditScoped(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/audits/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	auditID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		a, err := rt.audits.GetAudit(claims.UID, claims.Admin, auditID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, convertServiceAudit(a))
		return
	}
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}

	switch parts[1] {
	case "generate_checklist":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cats, err := rt.audits.GenerateChecklist(r.Context(), claims.UID, claims.Admin, auditID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Checklist generated successfully", "categories": len(cats)})
	case "checklist":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cats, err := rt.audits.GetChecklist(claims.UID, claims.Admin, auditID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]*ChecklistCategory, 0, len(cats))
		for _, cat := range cats {
			out = append(out, convertServiceCategory(cat))
		}
		writeJSON(w, http.StatusOK, out)
	case "submit_responses":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Responses map[string]int `json:"responses"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, services.NewInvalidError(err.Error()))
			return
		}
		if _, err := rt.audits.SubmitResponses(r.Context(), claims.UID, claims.Admin, auditID, req.Responses); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Audit completed successfully"})
	case "results":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		res, err := rt.audits.GetResults(claims.UID, claims.Admin, auditID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, convertServiceResult(res))
	case "export":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rt.handleExport(w, r, claims, auditID)
	default:
		http.NotFound(w, r)
	}
}

// GET /api/audits/{id}/export?format=responses|checklist
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request, claims *middleware.Claims, auditID string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "responses"
	}
	cats, err := rt.audits.GetChecklist(claims.UID, claims.Admin, auditID)
	if err != nil {
		writeError(w, err)
		return
	}
	switch format {
	case "checklist":
		b, err := services.ExportChecklistCSV(cats)
		if err != nil {
			writeError(w, err)
			return
		}
		serveCSV(w, "checklist.csv", b)
	case "responses":
		stored, err := rt.store.ListResponses(auditID)
		if err != nil {
			writeError(w, err)
			return
		}
		byQuestion := make(map[string]*Response, len(stored))
		for _, resp := range stored {
			byQuestion[resp.QuestionID] = resp
		}
		rows := []services.ResponseRow{}
		for _, cat := range cats {
			for _, q := range cat.Questions {
				resp, ok := byQuestion[q.ID]
				if !ok {
					continue
				}
				rows = append(rows, services.ResponseRow{
					Category:    cat.Name,
					Question:    q.Text,
					Score:       resp.Score,
					SubmittedAt: resp.CreatedAt.Format(time.RFC3339),
				})
			}
		}
		b, err := services.ExportResponsesCSV(rows)
		if err != nil {
			writeError(w, err)
			return
		}
		serveCSV(w, "responses.csv", b)
	default:
		writeError(w, services.NewInvalidError("unsupported format"))
	}
}

func serveCSV(w http.ResponseWriter, filename string, b []byte) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(b)
}

// POST /api/admin/invitations
func (rt *Router) handleInvitations(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError(err.Error()))
		return
	}
	inv, err := rt.invites.Create(claims.UID, claims.Admin, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, convertServiceInvitation(inv))
}

// GET /api/admin/invitations/validate?token=...
func (rt *Router) handleValidateInvitation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	inv, err := rt.invites.Validate(r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": inv.Email})
}
