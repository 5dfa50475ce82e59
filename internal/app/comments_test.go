package app

import (
	"context"
	"errors"
	"testing"
)

func (e *testEnv) seedPost(t *testing.T) Post {
	t.Helper()
	admin := e.admin(t)
	post, err := e.service.CreatePost(context.Background(), admin, PostInput{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	return post
}

func TestCreateCommentRequiresSignIn(t *testing.T) {
	env := newTestEnv(t)
	post := env.seedPost(t)

	_, err := env.service.CreateComment(context.Background(), nil, post.ID, "hello")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN for anonymous, got %v", err)
	}
}

func TestCreateCommentRejectsBlankText(t *testing.T) {
	env := newTestEnv(t)
	post := env.seedPost(t)
	reader := env.signUp(t, "reader@example.com", "Reader")

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := env.service.CreateComment(context.Background(), reader, post.ID, text)
		var domainErr *DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
			t.Fatalf("CreateComment(%q): expected VALIDATION_ERROR, got %v", text, err)
		}
	}
	if got := env.store.Count(commentsPath(post.ID)); got != 0 {
		t.Fatalf("rejected comments must not be stored, found %d", got)
	}
}

func TestCreateCommentOnMissingPost(t *testing.T) {
	env := newTestEnv(t)
	reader := env.signUp(t, "reader@example.com", "Reader")

	_, err := env.service.CreateComment(context.Background(), reader, "missing", "hello")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestCommentsOrderedNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.seedPost(t)
	reader := env.signUp(t, "reader@example.com", "Reader")

	if _, err := env.service.CreateComment(ctx, reader, post.ID, "first"); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if _, err := env.service.CreateComment(ctx, reader, post.ID, "second"); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	comments, err := env.service.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("len(comments) = %d", len(comments))
	}
	if comments[0].Text != "second" || comments[1].Text != "first" {
		t.Fatalf("comments not newest-first: %q, %q", comments[0].Text, comments[1].Text)
	}
}

func TestCommentEditOwnershipOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.seedPost(t)
	author := env.signUp(t, "author@example.com", "Author")
	other := env.signUp(t, "other@example.com", "Other")

	comment, err := env.service.CreateComment(ctx, author, post.ID, "mine")
	if err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	var domainErr *DomainError
	if _, err := env.service.UpdateComment(ctx, other, post.ID, comment.ID, "stolen"); !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN for non-author edit, got %v", err)
	}

	updated, err := env.service.UpdateComment(ctx, author, post.ID, comment.ID, "edited")
	if err != nil {
		t.Fatalf("UpdateComment() as author error = %v", err)
	}
	if updated.Text != "edited" {
		t.Fatalf("text = %q", updated.Text)
	}
}

// The administrator moderates content through post ownership, not
// through other people's comments: no admin override on comment edits
// or deletes.
func TestAdminHasNoCommentOverride(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.seedPost(t)
	author := env.signUp(t, "author@example.com", "Author")
	admin, err := env.service.SignIn(ctx, testAdminEmail, "password123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	comment, err := env.service.CreateComment(ctx, author, post.ID, "mine")
	if err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	var domainErr *DomainError
	if _, err := env.service.UpdateComment(ctx, admin.Principal, post.ID, comment.ID, "x"); !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN for admin edit, got %v", err)
	}
	if err := env.service.DeleteComment(ctx, admin.Principal, post.ID, comment.ID); !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN for admin delete, got %v", err)
	}
}

func TestDeleteCommentAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.seedPost(t)
	author := env.signUp(t, "author@example.com", "Author")

	comment, err := env.service.CreateComment(ctx, author, post.ID, "mine")
	if err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if err := env.service.DeleteComment(ctx, author, post.ID, comment.ID); err != nil {
		t.Fatalf("DeleteComment() as author error = %v", err)
	}
	if _, err := env.service.UpdateComment(ctx, author, post.ID, comment.ID, "x"); err == nil {
		t.Fatal("comment still editable after delete")
	}
}

func TestVerificationBadgeTracksLiveProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.seedPost(t)
	author := env.signUp(t, "author@example.com", "Author")
	admin, err := env.service.SignIn(ctx, testAdminEmail, "password123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if _, err := env.service.CreateComment(ctx, author, post.ID, "hello"); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	comments, err := env.service.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if comments[0].Verified {
		t.Fatal("new users must read as unverified")
	}

	if _, err := env.service.SetVerification(ctx, admin.Principal, author.UID, true); err != nil {
		t.Fatalf("SetVerification() error = %v", err)
	}
	comments, err = env.service.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListComments() after toggle error = %v", err)
	}
	if !comments[0].Verified {
		t.Fatal("badge must reflect the current profile flag")
	}

	// The badge is a live join: flipping the flag back flips existing
	// comments back too, without any comment write.
	if _, err := env.service.SetVerification(ctx, admin.Principal, author.UID, false); err != nil {
		t.Fatalf("SetVerification() error = %v", err)
	}
	comments, err = env.service.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListComments() after second toggle error = %v", err)
	}
	if comments[0].Verified {
		t.Fatal("badge must follow the flag back to unverified")
	}
}

func TestVerificationBadgePerAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.seedPost(t)
	alice := env.signUp(t, "alice@example.com", "Alice")
	bob := env.signUp(t, "bob@example.com", "Bob")
	admin, err := env.service.SignIn(ctx, testAdminEmail, "password123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if _, err := env.service.CreateComment(ctx, alice, post.ID, "first"); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if _, err := env.service.CreateComment(ctx, bob, post.ID, "second"); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	if _, err := env.service.SetVerification(ctx, admin.Principal, alice.UID, true); err != nil {
		t.Fatalf("SetVerification() error = %v", err)
	}
	comments, err := env.service.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[0].Verified {
		t.Fatal("other authors must be unaffected by the toggle")
	}
	if !comments[1].Verified {
		t.Fatal("verified author's comment must carry the badge")
	}
}

func TestAdminCommentsAlwaysVerified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.seedPost(t)
	admin, err := env.service.SignIn(ctx, testAdminEmail, "password123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	comment, err := env.service.CreateComment(ctx, admin.Principal, post.ID, "from the admin")
	if err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if !comment.Verified {
		t.Fatal("admin comments are verified by identity")
	}

	comments, err := env.service.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if !comments[0].Verified {
		t.Fatal("admin badge must hold in list reads even with the profile flag off")
	}
}

func TestDeletedProfileReadsUnverified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.seedPost(t)
	author := env.signUp(t, "author@example.com", "Author")
	admin, err := env.service.SignIn(ctx, testAdminEmail, "password123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if _, err := env.service.SetVerification(ctx, admin.Principal, author.UID, true); err != nil {
		t.Fatalf("SetVerification() error = %v", err)
	}
	if _, err := env.service.CreateComment(ctx, author, post.ID, "hello"); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if err := env.service.DeleteUser(ctx, admin.Principal, author.UID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	comments, err := env.service.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("len(comments) = %d, comments must outlive their author", len(comments))
	}
	if comments[0].Verified {
		t.Fatal("badge must degrade to unverified when the profile is gone")
	}
}

func TestCommentSanitized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.seedPost(t)
	reader := env.signUp(t, "reader@example.com", "Reader")

	comment, err := env.service.CreateComment(ctx, reader, post.ID, `hi<script>alert(1)</script>`)
	if err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if comment.Text != "hi" {
		t.Fatalf("text = %q, want script stripped", comment.Text)
	}
}
