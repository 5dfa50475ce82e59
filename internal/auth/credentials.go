package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohamedzameer33/blogapp/internal/store"
	"github.com/mohamedzameer33/blogapp/internal/util"
	"golang.org/x/crypto/bcrypt"
)

// credentialsPath holds password credentials keyed by normalized email.
// Kept apart from the users collection so the user-profile wire shape
// stays free of secrets.
const credentialsPath = "credentials"

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("invalid email or password")
)

// Credentials provides email/password sign-up and sign-in on top of the
// content store.
type Credentials struct {
	store store.Store
}

func NewCredentials(s store.Store) *Credentials {
	return &Credentials{store: s}
}

type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
}

func (c *Credentials) SignUp(ctx context.Context, req SignUpRequest) (*Principal, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" || strings.TrimSpace(req.DisplayName) == "" {
		return nil, errors.New("email, password, and display name are required")
	}
	if len(req.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	if _, err := c.store.Get(ctx, credentialsPath, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	uid := util.NewID("usr")
	// The credentials doc id is the email itself, so sign-in is a
	// single Get rather than a scan.
	if err := c.store.Set(ctx, credentialsPath, email, store.Fields{
		"uid":          uid,
		"email":        email,
		"passwordHash": string(hash),
	}); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}

	return &Principal{
		UID:         uid,
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
	}, nil
}

func (c *Credentials) SignIn(ctx context.Context, email, password string) (*Principal, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrBadCredentials
	}
	doc, err := c.store.Get(ctx, credentialsPath, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup credentials: %w", err)
	}
	hash := store.StringField(doc.Fields, "passwordHash")
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return &Principal{
		UID:   store.StringField(doc.Fields, "uid"),
		Email: email,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
