// Package app wires the content, identity and authorization pieces
// into the operations the HTTP layer exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohamedzameer33/blogapp/internal/auth"
	"github.com/mohamedzameer33/blogapp/internal/authz"
	"github.com/mohamedzameer33/blogapp/internal/config"
	"github.com/mohamedzameer33/blogapp/internal/identity"
	"github.com/mohamedzameer33/blogapp/internal/live"
	"github.com/mohamedzameer33/blogapp/internal/media"
	"github.com/mohamedzameer33/blogapp/internal/sanitize"
	"github.com/mohamedzameer33/blogapp/internal/search"
	"github.com/mohamedzameer33/blogapp/internal/session"
	"github.com/mohamedzameer33/blogapp/internal/util"
)

// SessionStore persists refresh tokens and access-token revocations.
type SessionStore interface {
	Save(ctx context.Context, tokenHash string, p *auth.Principal, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (*auth.Principal, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAccess(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessRevoked(ctx context.Context, jti string) (bool, error)
}

// Pinger reports backend connectivity for the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Session is what a successful sign-up, sign-in or refresh hands back.
type Session struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	Principal    *auth.Principal `json:"user"`
	ExpiresAt    time.Time       `json:"expiresAt"`
}

// Service implements the platform operations. All methods are safe for
// concurrent use.
type Service struct {
	cfg       config.Config
	store     *live.WatchedStore
	watcher   *live.Watcher
	policy    authz.Policy
	resolver  *identity.Resolver
	creds     *auth.Credentials
	sessions  SessionStore
	uploader  media.Uploader
	sanitizer *sanitize.Policy
	search    *search.Service
	pinger    Pinger
	logger    *slog.Logger
}

// Deps carries everything Service needs. Uploader may be nil when no
// object store is configured; Search tolerates nil backends itself.
type Deps struct {
	Config   config.Config
	Store    *live.WatchedStore
	Watcher  *live.Watcher
	Resolver *identity.Resolver
	Creds    *auth.Credentials
	Sessions SessionStore
	Uploader media.Uploader
	Search   *search.Service
	Pinger   Pinger
	Logger   *slog.Logger
}

func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       d.Config,
		store:     d.Store,
		watcher:   d.Watcher,
		policy:    authz.Policy{AdminEmail: d.Config.AdminEmail},
		resolver:  d.Resolver,
		creds:     d.Creds,
		sessions:  d.Sessions,
		uploader:  d.Uploader,
		sanitizer: sanitize.NewPolicy(),
		search:    d.Search,
		pinger:    d.Pinger,
		logger:    logger,
	}
}

// Ping reports whether the content store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.Ping(ctx)
}

// SignUp registers a credential, provisions the default profile and
// opens a session.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	principal, err := s.creds.SignUp(ctx, auth.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return nil, err
		}
		return nil, errValidation(err.Error())
	}
	profile, err := s.resolver.EnsureProfile(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("provision profile: %w", err)
	}
	principal.PhotoURL = profile.PhotoURL
	return s.issueSession(ctx, principal)
}

// SignIn checks the credential and opens a session. Display data on the
// principal comes from the current profile, so a rename made on the
// settings page shows up at the next sign-in.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	principal, err := s.creds.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	profile, err := s.resolver.EnsureProfile(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	principal.DisplayName = profile.DisplayName
	principal.PhotoURL = profile.PhotoURL
	return s.issueSession(ctx, principal)
}

// Refresh trades a valid refresh token for a fresh session and rotates
// the refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, auth.ErrInvalidToken
	}
	hash := auth.HashToken(refreshToken)
	principal, err := s.sessions.Lookup(ctx, hash)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if err := s.sessions.Revoke(ctx, hash); err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return s.issueSession(ctx, principal)
}

// Logout revokes the refresh token and blacklists the access token for
// the remainder of its lifetime.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if refreshToken != "" {
		if err := s.sessions.Revoke(ctx, auth.HashToken(refreshToken)); err != nil &&
			!errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	}
	if accessToken == "" {
		return nil
	}
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), accessToken)
	if err != nil {
		// Expired or garbage tokens need no blacklist entry.
		return nil
	}
	if err := s.sessions.RevokeAccess(ctx, claims.JTI, time.Unix(claims.Exp, 0)); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

// SessionFromToken authenticates a bearer token. The empty token yields
// a nil principal: anonymous callers are valid, they just carry no
// identity.
func (s *Service) SessionFromToken(ctx context.Context, token string) (*auth.Principal, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.sessions.IsAccessRevoked(ctx, claims.JTI)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, auth.ErrInvalidToken
	}
	return claims.Principal(), nil
}

func (s *Service) issueSession(ctx context.Context, p *auth.Principal) (*Session, error) {
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   p.UID,
		Email: p.Email,
		Name:  p.DisplayName,
		Photo: p.PhotoURL,
		JTI:   util.NewID("jti"),
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	refresh := util.NewID("rft")
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), p, time.Now().Add(s.cfg.RefreshTTL)); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &Session{
		Token:        token,
		RefreshToken: refresh,
		Principal:    p,
		ExpiresAt:    expiresAt,
	}, nil
}

// Watcher exposes the live subscription entry point to the transport
// layer.
func (s *Service) Watcher() *live.Watcher { return s.watcher }
