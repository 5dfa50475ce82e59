package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohamedzameer33/blogapp/internal/auth"
	"github.com/mohamedzameer33/blogapp/internal/authz"
	"github.com/mohamedzameer33/blogapp/internal/media"
	"github.com/mohamedzameer33/blogapp/internal/search"
	"github.com/mohamedzameer33/blogapp/internal/store"
	"github.com/mohamedzameer33/blogapp/internal/util"
)

// PostInput is the mutable part of a post. Image is the raw upload, nil
// when the caller supplied none.
type PostInput struct {
	Title            string
	Content          string
	Image            []byte
	ImageContentType string
}

// ListPosts returns every post, newest first. Readable by anyone,
// including anonymous callers.
func (s *Service) ListPosts(ctx context.Context) ([]Post, error) {
	docs, err := s.store.List(ctx, postsPath, "createdAt", true)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts := make([]Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, s.postFromDoc(doc))
	}
	return posts, nil
}

// GetPost returns one post by id.
func (s *Service) GetPost(ctx context.Context, id string) (Post, error) {
	doc, err := s.store.Get(ctx, postsPath, id)
	if errors.Is(err, store.ErrNotFound) {
		return Post{}, errNotFound("post not found")
	}
	if err != nil {
		return Post{}, fmt.Errorf("get post: %w", err)
	}
	return s.postFromDoc(doc), nil
}

// CreatePost publishes a new post. Admin only. The author snapshot is
// captured from the caller's principal at write time and never updated
// afterwards.
func (s *Service) CreatePost(ctx context.Context, principal *auth.Principal, input PostInput) (Post, error) {
	if !s.policy.Can(principal, authz.ActionCreatePost, "") {
		return Post{}, errForbidden("only the administrator can publish posts")
	}
	title := strings.TrimSpace(input.Title)
	content := s.sanitizer.Sanitize(input.Content)
	if title == "" || content == "" {
		return Post{}, errValidation("title and content are required")
	}

	imageURL := s.uploadImage(ctx, input)

	fields := store.Fields{
		"title":     title,
		"content":   content,
		"imageUrl":  imageURL,
		"userId":    principal.UID,
		"userName":  principal.DisplayName,
		"userEmail": principal.Email,
		"userPhoto": principal.PhotoURL,
	}
	id, err := s.store.Create(ctx, postsPath, fields)
	if err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	s.search.IndexPost(search.PostRecord{ID: id, Title: title, Content: content})
	return s.GetPost(ctx, id)
}

// UpdatePost edits a post's title, content and optionally its image.
// Admin only. Last write wins: concurrent edits are not detected.
func (s *Service) UpdatePost(ctx context.Context, principal *auth.Principal, id string, input PostInput) (Post, error) {
	if !s.policy.Can(principal, authz.ActionEditPost, "") {
		return Post{}, errForbidden("only the administrator can edit posts")
	}
	title := strings.TrimSpace(input.Title)
	content := s.sanitizer.Sanitize(input.Content)
	if title == "" || content == "" {
		return Post{}, errValidation("title and content are required")
	}

	fields := store.Fields{
		"title":   title,
		"content": content,
	}
	if len(input.Image) > 0 {
		fields["imageUrl"] = s.uploadImage(ctx, input)
	}
	err := s.store.Update(ctx, postsPath, id, fields)
	if errors.Is(err, store.ErrNotFound) {
		return Post{}, errNotFound("post not found")
	}
	if err != nil {
		return Post{}, fmt.Errorf("update post: %w", err)
	}
	s.search.IndexPost(search.PostRecord{ID: id, Title: title, Content: content})
	return s.GetPost(ctx, id)
}

// DeletePost removes a post. Admin only. Comments under the post are
// left in place; nothing reads them once the post is gone, and the
// storage cost was accepted over a multi-step cascade that could fail
// half way.
func (s *Service) DeletePost(ctx context.Context, principal *auth.Principal, id string) error {
	if !s.policy.Can(principal, authz.ActionDeletePost, "") {
		return errForbidden("only the administrator can delete posts")
	}
	err := s.store.Delete(ctx, postsPath, id)
	if errors.Is(err, store.ErrNotFound) {
		return errNotFound("post not found")
	}
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	s.search.DeletePost(id)
	return nil
}

// SearchPosts runs a text query over published posts.
func (s *Service) SearchPosts(q search.Query) search.Response {
	return s.search.Search(q)
}

// uploadImage stores the post image and returns its public URL. Any
// upload problem degrades to the placeholder: a broken image pipeline
// must not block publishing.
func (s *Service) uploadImage(ctx context.Context, input PostInput) string {
	if len(input.Image) == 0 || s.uploader == nil {
		return media.PlaceholderImageURL
	}
	name := util.NewID("img")
	if ext := extensionFor(input.ImageContentType); ext != "" {
		name += ext
	}
	url, err := s.uploader.Upload(ctx, name, input.Image, input.ImageContentType)
	if err != nil {
		s.logger.Warn("image upload failed, using placeholder", "error", err)
		return media.PlaceholderImageURL
	}
	return url
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
