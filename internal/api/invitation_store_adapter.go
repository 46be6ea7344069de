package api

import "github.com/auditforge/auditforge/internal/services"

type invitationStoreAdapter struct{ store Store }

func newInvitationStoreAdapter(store Store) services.InvitationStore {
	return &invitationStoreAdapter{store: store}
}

func (a *invitationStoreAdapter) AddInvitation(inv *services.AdminInvitation) error {
	return a.store.AddInvitation(convertServiceInvitation(inv))
}

func (a *invitationStoreAdapter) GetInvitationByToken(token string) (*services.AdminInvitation, error) {
	inv, err := a.store.GetInvitationByToken(token)
	if err != nil {
		return nil, err
	}
	return convertAPIInvitation(inv), nil
}

func (a *invitationStoreAdapter) FindInvitationByEmail(email string) (*services.AdminInvitation, error) {
	inv, err := a.store.FindInvitationByEmail(email)
	if err != nil {
		return nil, err
	}
	return convertAPIInvitation(inv), nil
}

var _ services.InvitationStore = (*invitationStoreAdapter)(nil)
