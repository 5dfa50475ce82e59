package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mohamedzameer33/blogapp/internal/auth"
	"github.com/mohamedzameer33/blogapp/internal/config"
	"github.com/mohamedzameer33/blogapp/internal/identity"
	"github.com/mohamedzameer33/blogapp/internal/live"
	"github.com/mohamedzameer33/blogapp/internal/session"
	"github.com/mohamedzameer33/blogapp/internal/store"
)

const testAdminEmail = "admin@example.com"

type fakeSessions struct {
	mu      sync.Mutex
	tokens  map[string]*auth.Principal
	revoked map[string]bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		tokens:  make(map[string]*auth.Principal),
		revoked: make(map[string]bool),
	}
}

func (f *fakeSessions) Save(_ context.Context, tokenHash string, p *auth.Principal, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *p
	f.tokens[tokenHash] = &copied
	return nil
}

func (f *fakeSessions) Lookup(_ context.Context, tokenHash string) (*auth.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.tokens[tokenHash]
	if !ok {
		return nil, session.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeSessions) Revoke(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[tokenHash]; !ok {
		return session.ErrNotFound
	}
	delete(f.tokens, tokenHash)
	return nil
}

func (f *fakeSessions) RevokeAccess(_ context.Context, jti string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeSessions) IsAccessRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

type testEnv struct {
	service  *Service
	store    *store.MemoryStore
	watched  *live.WatchedStore
	sessions *fakeSessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	memory := store.NewMemoryStore()
	watched := live.NewWatchedStore(memory, live.NewLocalNotifier())
	logger := slog.New(slog.DiscardHandler)
	sessions := newFakeSessions()
	cfg := config.Config{
		AdminEmail:  testAdminEmail,
		TokenSecret: "test-secret",
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  24 * time.Hour,
	}
	service := New(Deps{
		Config:   cfg,
		Store:    watched,
		Watcher:  live.NewWatcher(watched, logger),
		Resolver: identity.NewResolver(watched),
		Creds:    auth.NewCredentials(watched),
		Sessions: sessions,
		Logger:   logger,
	})
	return &testEnv{service: service, store: memory, watched: watched, sessions: sessions}
}

// signUp registers a user and returns the session principal.
func (e *testEnv) signUp(t *testing.T, email, name string) *auth.Principal {
	t.Helper()
	sess, err := e.service.SignUp(context.Background(), email, "password123", name)
	if err != nil {
		t.Fatalf("SignUp(%s) error = %v", email, err)
	}
	return sess.Principal
}

func (e *testEnv) admin(t *testing.T) *auth.Principal {
	t.Helper()
	return e.signUp(t, testAdminEmail, "Admin")
}

func TestSignUpOpensSessionAndProvisionsProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.service.SignUp(ctx, "reader@example.com", "password123", "Reader")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if sess.Token == "" || sess.RefreshToken == "" {
		t.Fatal("expected tokens on new session")
	}
	if sess.Principal.Email != "reader@example.com" {
		t.Fatalf("principal email = %q", sess.Principal.Email)
	}

	profile, err := env.service.Profile(ctx, sess.Principal)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if profile.DisplayName != "Reader" {
		t.Fatalf("profile name = %q", profile.DisplayName)
	}
	if profile.IsVerified {
		t.Fatal("new profiles must start unverified")
	}
	if profile.PhotoURL == "" {
		t.Fatal("expected a generated avatar")
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.SignUp(ctx, "reader@example.com", "password123", "Reader"); err != nil {
		t.Fatalf("first SignUp() error = %v", err)
	}
	_, err := env.service.SignUp(ctx, "Reader@Example.com", "otherpassword", "Other")
	if !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "reader@example.com", "Reader")

	_, err := env.service.SignIn(ctx, "reader@example.com", "wrong-password")
	if !errors.Is(err, auth.ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

func TestSignInUsesCurrentProfileDisplayData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.signUp(t, "reader@example.com", "Reader")

	if _, err := env.service.UpdateProfile(ctx, p, "Renamed"); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	sess, err := env.service.SignIn(ctx, "reader@example.com", "password123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if sess.Principal.DisplayName != "Renamed" {
		t.Fatalf("display name = %q, want Renamed", sess.Principal.DisplayName)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.service.SignUp(ctx, "reader@example.com", "password123", "Reader")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	next, err := env.service.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if next.RefreshToken == sess.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	// The old token is spent.
	if _, err := env.service.Refresh(ctx, sess.RefreshToken); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for spent token, got %v", err)
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.service.SignUp(ctx, "reader@example.com", "password123", "Reader")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if _, err := env.service.SessionFromToken(ctx, sess.Token); err != nil {
		t.Fatalf("SessionFromToken() before logout error = %v", err)
	}

	if err := env.service.Logout(ctx, sess.Token, sess.RefreshToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := env.service.SessionFromToken(ctx, sess.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
	if _, err := env.service.Refresh(ctx, sess.RefreshToken); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected revoked refresh token to fail, got %v", err)
	}
}

func TestSessionFromTokenAnonymous(t *testing.T) {
	env := newTestEnv(t)
	principal, err := env.service.SessionFromToken(context.Background(), "")
	if err != nil {
		t.Fatalf("SessionFromToken(\"\") error = %v", err)
	}
	if principal != nil {
		t.Fatal("empty token must yield a nil principal")
	}
}
