package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohamedzameer33/blogapp/internal/auth"
	"github.com/mohamedzameer33/blogapp/internal/authz"
	"github.com/mohamedzameer33/blogapp/internal/identity"
	"github.com/mohamedzameer33/blogapp/internal/store"
)

// ListUsers returns every registered profile, newest first. Admin only.
func (s *Service) ListUsers(ctx context.Context, principal *auth.Principal) ([]UserView, error) {
	if !s.policy.Can(principal, authz.ActionListAllUsers, "") {
		return nil, errForbidden("only the administrator can list users")
	}
	docs, err := s.store.List(ctx, identity.UsersPath, "createdAt", true)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]UserView, 0, len(docs))
	for _, doc := range docs {
		users = append(users, UserView{
			UID:         doc.ID,
			DisplayName: store.StringField(doc.Fields, "displayName"),
			Email:       store.StringField(doc.Fields, "email"),
			PhotoURL:    store.StringField(doc.Fields, "photoURL"),
			IsVerified:  store.BoolField(doc.Fields, "isVerified"),
		})
	}
	return users, nil
}

// SetVerification flips a user's verified badge. Admin only. The write
// lands on the users collection, so open comment views pick it up on
// their next snapshot.
func (s *Service) SetVerification(ctx context.Context, principal *auth.Principal, uid string, verified bool) (UserView, error) {
	if !s.policy.Can(principal, authz.ActionToggleVerification, "") {
		return UserView{}, errForbidden("only the administrator can verify users")
	}
	err := s.store.Update(ctx, identity.UsersPath, uid, store.Fields{"isVerified": verified})
	if errors.Is(err, store.ErrNotFound) {
		return UserView{}, errNotFound("user not found")
	}
	if err != nil {
		return UserView{}, fmt.Errorf("set verification: %w", err)
	}
	doc, err := s.store.Get(ctx, identity.UsersPath, uid)
	if err != nil {
		return UserView{}, fmt.Errorf("read back user: %w", err)
	}
	return UserView{
		UID:         uid,
		DisplayName: store.StringField(doc.Fields, "displayName"),
		Email:       store.StringField(doc.Fields, "email"),
		PhotoURL:    store.StringField(doc.Fields, "photoURL"),
		IsVerified:  store.BoolField(doc.Fields, "isVerified"),
	}, nil
}

// DeleteUser removes a profile. Admin only. Credentials keyed by the
// profile's email are removed with it so the address can register
// again; the user's past comments stay, their badge degrading to
// unverified once the profile is gone.
func (s *Service) DeleteUser(ctx context.Context, principal *auth.Principal, uid string) error {
	if !s.policy.Can(principal, authz.ActionDeleteUser, "") {
		return errForbidden("only the administrator can delete users")
	}
	doc, err := s.store.Get(ctx, identity.UsersPath, uid)
	if errors.Is(err, store.ErrNotFound) {
		return errNotFound("user not found")
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if email := store.StringField(doc.Fields, "email"); email != "" {
		if err := s.store.Delete(ctx, "credentials", email); err != nil &&
			!errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete credentials: %w", err)
		}
	}
	if err := s.store.Delete(ctx, identity.UsersPath, uid); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// UpdateProfile lets a signed-in user change their display name. The
// avatar is regenerated from the email; the verified flag is untouched.
func (s *Service) UpdateProfile(ctx context.Context, principal *auth.Principal, displayName string) (identity.Profile, error) {
	if principal == nil || principal.UID == "" {
		return identity.Profile{}, errForbidden("sign in to update your profile")
	}
	if strings.TrimSpace(displayName) == "" {
		return identity.Profile{}, errValidation("display name is required")
	}
	profile, err := s.resolver.UpdateProfile(ctx, principal.UID, displayName)
	if err != nil {
		return identity.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

// Profile returns the caller's current stored profile.
func (s *Service) Profile(ctx context.Context, principal *auth.Principal) (identity.Profile, error) {
	if principal == nil || principal.UID == "" {
		return identity.Profile{}, errForbidden("sign in to view your profile")
	}
	return s.resolver.Resolve(ctx, principal.UID)
}
