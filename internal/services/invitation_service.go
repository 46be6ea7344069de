package services

import (
	"log"
	"strings"
	"time"
)

type InvitationStore interface {
	AddInvitation(inv *AdminInvitation) error
	GetInvitationByToken(token string) (*AdminInvitation, error)
	FindInvitationByEmail(email string) (*AdminInvitation, error)
}

// Mailer delivers invitation notifications. Actual transport is outside the
// core; the default implementation only logs.
type Mailer interface {
	SendInvitation(email, token string) error
}

type LogMailer struct{}

func (LogMailer) SendInvitation(email, token string) error {
	log.Printf("admin invitation for %s (token %s...)", email, token[:8])
	return nil
}

const invitationTTL = 7 * 24 * time.Hour

type InvitationService struct {
	store    InvitationStore
	mailer   Mailer
	now      func() time.Time
	tokenGen func() string
}

func NewInvitationService(store InvitationStore, mailer Mailer) *InvitationService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &InvitationService{
		store:    store,
		mailer:   mailer,
		now:      func() time.Time { return time.Now().UTC() },
		tokenGen: func() string { return shortID(32) + shortID(32) },
	}
}

// Create issues a 7-day invitation for email. Only admins may invite.
func (s *InvitationService) Create(inviterID string, admin bool, email string) (*AdminInvitation, error) {
	if !admin {
		return nil, NewForbiddenError("admin required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, NewInvalidError("email required")
	}
	existing, err := s.store.FindInvitationByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.Used && s.now().Before(existing.ExpiresAt) {
		return nil, NewConflictError("invitation already exists for this email")
	}
	now := s.now()
	inv := &AdminInvitation{
		Email:     email,
		Token:     s.tokenGen(),
		InvitedBy: inviterID,
		CreatedAt: now,
		ExpiresAt: now.Add(invitationTTL),
	}
	if err := s.store.AddInvitation(inv); err != nil {
		return nil, err
	}
	if err := s.mailer.SendInvitation(inv.Email, inv.Token); err != nil {
		return nil, NewBadGatewayError("invitation mail failed")
	}
	return inv, nil
}

// Validate resolves a token to the invited email, rejecting unknown, used
// and expired tokens.
func (s *InvitationService) Validate(token string) (*AdminInvitation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewInvalidError("token required")
	}
	inv, err := s.store.GetInvitationByToken(token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, NewInvalidError("invalid invitation token")
	}
	if inv.Used || s.now().After(inv.ExpiresAt) {
		return nil, NewInvalidError("invalid or expired invitation")
	}
	return inv, nil
}
