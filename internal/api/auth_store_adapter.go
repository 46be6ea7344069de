package api

import "github.com/auditforge/auditforge/internal/services"

type authStoreAdapter struct{ store Store }

func newAuthStoreAdapter(store Store) services.AuthStore {
	return &authStoreAdapter{store: store}
}

func (a *authStoreAdapter) FindUserByEmail(email string) (*services.User, error) {
	u, err := a.store.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	return convertAPIUser(u), nil
}

func (a *authStoreAdapter) AddUser(u *services.User) error {
	return a.store.AddUser(convertServiceUser(u))
}

func (a *authStoreAdapter) GetInvitationByToken(token string) (*services.AdminInvitation, error) {
	inv, err := a.store.GetInvitationByToken(token)
	if err != nil {
		return nil, err
	}
	return convertAPIInvitation(inv), nil
}

func (a *authStoreAdapter) MarkInvitationUsed(token string) error {
	return a.store.MarkInvitationUsed(token)
}

func convertServiceUser(u *services.User) *User {
	if u == nil {
		return nil
	}
	return &User{ID: u.ID, Email: u.Email, PassHash: u.PassHash, Admin: u.Admin, CreatedAt: u.CreatedAt}
}

func convertAPIUser(u *User) *services.User {
	if u == nil {
		return nil
	}
	return &services.User{ID: u.ID, Email: u.Email, PassHash: u.PassHash, Admin: u.Admin, CreatedAt: u.CreatedAt}
}

func convertServiceInvitation(inv *services.AdminInvitation) *AdminInvitation {
	if inv == nil {
		return nil
	}
	return &AdminInvitation{Email: inv.Email, Token: inv.Token, InvitedBy: inv.InvitedBy, Used: inv.Used, CreatedAt: inv.CreatedAt, ExpiresAt: inv.ExpiresAt}
}

func convertAPIInvitation(inv *AdminInvitation) *services.AdminInvitation {
	if inv == nil {
		return nil
	}
	return &services.AdminInvitation{Email: inv.Email, Token: inv.Token, InvitedBy: inv.InvitedBy, Used: inv.Used, CreatedAt: inv.CreatedAt, ExpiresAt: inv.ExpiresAt}
}

var _ services.AuthStore = (*authStoreAdapter)(nil)
