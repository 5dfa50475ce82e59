// Package identity maps authenticated principals to stored user
// profiles and answers the live verification lookups that comment
// badges are built from.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/mohamedzameer33/blogapp/internal/auth"
	"github.com/mohamedzameer33/blogapp/internal/store"
)

// UsersPath is the collection holding user profiles, keyed by
// principal uid. Wire shape: {displayName, photoURL, email, isVerified}.
const UsersPath = "users"

// resolveConcurrency bounds the parallel profile fetches of one batch.
const resolveConcurrency = 8

type Profile struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
	IsVerified  bool   `json:"isVerified"`
}

type Resolver struct {
	store store.Store
}

func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns the stored profile for uid, or a default-empty
// profile when none exists. It only errors when the store itself fails.
func (r *Resolver) Resolve(ctx context.Context, uid string) (Profile, error) {
	doc, err := r.store.Get(ctx, UsersPath, uid)
	if errors.Is(err, store.ErrNotFound) {
		return Profile{UID: uid}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("resolve profile %s: %w", uid, err)
	}
	return profileFromDoc(uid, doc.Fields), nil
}

// EnsureProfile creates a profile for the principal on first sight and
// returns the existing one unchanged otherwise. Idempotent.
func (r *Resolver) EnsureProfile(ctx context.Context, principal *auth.Principal) (Profile, error) {
	if principal == nil || principal.UID == "" {
		return Profile{}, errors.New("ensure profile: missing principal")
	}
	doc, err := r.store.Get(ctx, UsersPath, principal.UID)
	if err == nil {
		return profileFromDoc(principal.UID, doc.Fields), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Profile{}, fmt.Errorf("lookup profile: %w", err)
	}

	profile := Profile{
		UID:         principal.UID,
		DisplayName: principal.DisplayName,
		Email:       principal.Email,
		PhotoURL:    principal.PhotoURL,
	}
	if profile.PhotoURL == "" {
		profile.PhotoURL = DefaultAvatarURL(principal.Email)
	}
	if err := r.store.Set(ctx, UsersPath, principal.UID, store.Fields{
		"displayName": profile.DisplayName,
		"photoURL":    profile.PhotoURL,
		"email":       profile.Email,
		"isVerified":  false,
	}); err != nil {
		return Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile sets a new display name and regenerates the avatar
// deterministically from the identity. Merge semantics: fields not
// written here survive, including isVerified.
func (r *Resolver) UpdateProfile(ctx context.Context, uid, displayName string) (Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return Profile{}, errors.New("update profile: name is required")
	}
	current, err := r.Resolve(ctx, uid)
	if err != nil {
		return Profile{}, err
	}
	photoURL := DefaultAvatarURL(current.Email)
	if err := r.store.Set(ctx, UsersPath, uid, store.Fields{
		"displayName": displayName,
		"photoURL":    photoURL,
		"email":       current.Email,
	}); err != nil {
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}
	current.UID = uid
	current.DisplayName = displayName
	current.PhotoURL = photoURL
	return current, nil
}

// ResolveBatch fetches the profiles for a deduplicated set of uids
// concurrently. A failed or missing resolve degrades that uid to the
// default-empty (unverified) profile instead of failing the batch.
func (r *Resolver) ResolveBatch(ctx context.Context, uids []string) map[string]Profile {
	unique := make([]string, 0, len(uids))
	seen := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		if uid == "" {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		unique = append(unique, uid)
	}

	profiles := make(map[string]Profile, len(unique))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, resolveConcurrency)
	for _, uid := range unique {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			profile, err := r.Resolve(ctx, uid)
			if err != nil {
				profile = Profile{UID: uid}
			}
			mu.Lock()
			profiles[uid] = profile
			mu.Unlock()
		}(uid)
	}
	wg.Wait()
	return profiles
}

// DefaultAvatarURL derives the generated avatar from the first letter
// of the email, matching the avatars already stored in production data.
func DefaultAvatarURL(email string) string {
	letter := "A"
	if email != "" {
		letter = strings.ToUpper(email[:1])
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(letter) + "&background=random&size=128"
}

func profileFromDoc(uid string, fields store.Fields) Profile {
	return Profile{
		UID:         uid,
		DisplayName: store.StringField(fields, "displayName"),
		Email:       store.StringField(fields, "email"),
		PhotoURL:    store.StringField(fields, "photoURL"),
		IsVerified:  store.BoolField(fields, "isVerified"),
	}
}
