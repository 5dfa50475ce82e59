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

// ListComments returns the comments of a post, newest first, with the
// verification badge joined against each author's current profile. The
// stored author snapshot is display data only; verification always
// reflects the profile as it is now.
func (s *Service) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	docs, err := s.store.List(ctx, commentsPath(postID), "createdAt", true)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return s.joinVerification(ctx, postID, docs), nil
}

// CreateComment adds a comment to a post. Any signed-in user may
// comment; anonymous callers may not.
func (s *Service) CreateComment(ctx context.Context, principal *auth.Principal, postID, text string) (Comment, error) {
	if !s.policy.Can(principal, authz.ActionCreateComment, "") {
		return Comment{}, errForbidden("sign in to comment")
	}
	text = strings.TrimSpace(s.sanitizer.Sanitize(text))
	if text == "" {
		return Comment{}, errValidation("comment text is required")
	}
	if _, err := s.store.Get(ctx, postsPath, postID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Comment{}, errNotFound("post not found")
		}
		return Comment{}, fmt.Errorf("check post: %w", err)
	}

	fields := store.Fields{
		"text":      text,
		"userId":    principal.UID,
		"userName":  principal.DisplayName,
		"userEmail": principal.Email,
		"userPhoto": principal.PhotoURL,
	}
	id, err := s.store.Create(ctx, commentsPath(postID), fields)
	if err != nil {
		return Comment{}, fmt.Errorf("create comment: %w", err)
	}
	doc, err := s.store.Get(ctx, commentsPath(postID), id)
	if err != nil {
		return Comment{}, fmt.Errorf("read back comment: %w", err)
	}
	comment := commentFromDoc(postID, doc)
	comment.Verified = s.verifiedFor(ctx, comment)
	return comment, nil
}

// UpdateComment edits a comment's text. Only the author may edit; the
// administrator gets no override here.
func (s *Service) UpdateComment(ctx context.Context, principal *auth.Principal, postID, commentID, text string) (Comment, error) {
	doc, err := s.store.Get(ctx, commentsPath(postID), commentID)
	if errors.Is(err, store.ErrNotFound) {
		return Comment{}, errNotFound("comment not found")
	}
	if err != nil {
		return Comment{}, fmt.Errorf("get comment: %w", err)
	}
	if !s.policy.Can(principal, authz.ActionEditComment, store.StringField(doc.Fields, "userId")) {
		return Comment{}, errForbidden("only the comment author can edit it")
	}
	text = strings.TrimSpace(s.sanitizer.Sanitize(text))
	if text == "" {
		return Comment{}, errValidation("comment text is required")
	}
	if err := s.store.Update(ctx, commentsPath(postID), commentID, store.Fields{"text": text}); err != nil {
		return Comment{}, fmt.Errorf("update comment: %w", err)
	}
	updated, err := s.store.Get(ctx, commentsPath(postID), commentID)
	if err != nil {
		return Comment{}, fmt.Errorf("read back comment: %w", err)
	}
	comment := commentFromDoc(postID, updated)
	comment.Verified = s.verifiedFor(ctx, comment)
	return comment, nil
}

// DeleteComment removes a comment. Only the author may delete; the
// administrator gets no override here.
func (s *Service) DeleteComment(ctx context.Context, principal *auth.Principal, postID, commentID string) error {
	doc, err := s.store.Get(ctx, commentsPath(postID), commentID)
	if errors.Is(err, store.ErrNotFound) {
		return errNotFound("comment not found")
	}
	if err != nil {
		return fmt.Errorf("get comment: %w", err)
	}
	if !s.policy.Can(principal, authz.ActionDeleteComment, store.StringField(doc.Fields, "userId")) {
		return errForbidden("only the comment author can delete it")
	}
	if err := s.store.Delete(ctx, commentsPath(postID), commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// joinVerification resolves each distinct author's profile and stamps
// the badge. The administrator's own comments are always verified, by
// identity rather than profile flag, so the badge never depends on a
// row the admin could toggle off themselves.
func (s *Service) joinVerification(ctx context.Context, postID string, docs []store.Document) []Comment {
	comments := make([]Comment, 0, len(docs))
	uids := make([]string, 0, len(docs))
	for _, doc := range docs {
		comment := commentFromDoc(postID, doc)
		comments = append(comments, comment)
		uids = append(uids, comment.AuthorUID)
	}
	profiles := s.resolver.ResolveBatch(ctx, uids)
	for i := range comments {
		comments[i].Verified = verifiedFromProfile(comments[i], profiles[comments[i].AuthorUID], s.cfg.AdminEmail)
	}
	return comments
}

func (s *Service) verifiedFor(ctx context.Context, comment Comment) bool {
	profile, err := s.resolver.Resolve(ctx, comment.AuthorUID)
	if err != nil {
		profile = identity.Profile{UID: comment.AuthorUID}
	}
	return verifiedFromProfile(comment, profile, s.cfg.AdminEmail)
}

func verifiedFromProfile(comment Comment, profile identity.Profile, adminEmail string) bool {
	if comment.Author.Email != "" && comment.Author.Email == adminEmail {
		return true
	}
	return profile.IsVerified
}
