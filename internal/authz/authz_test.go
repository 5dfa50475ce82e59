package authz

import (
	"testing"

	"github.com/mohamedzameer33/blogapp/internal/auth"
)

const adminEmail = "admin@blog.test"

func TestCan(t *testing.T) {
	admin := &auth.Principal{UID: "usr_admin", Email: adminEmail}
	alice := &auth.Principal{UID: "usr_alice", Email: "alice@example.com"}
	bob := &auth.Principal{UID: "usr_bob", Email: "bob@example.com"}

	cases := []struct {
		name      string
		principal *auth.Principal
		action    Action
		ownerUID  string
		allow     bool
	}{
		{name: "anonymous list posts", principal: nil, action: ActionListPosts, allow: true},
		{name: "anonymous read comment", principal: nil, action: ActionReadComment, allow: true},
		{name: "anonymous create comment", principal: nil, action: ActionCreateComment, allow: false},
		{name: "user create comment", principal: alice, action: ActionCreateComment, allow: true},
		{name: "admin create post", principal: admin, action: ActionCreatePost, allow: true},
		{name: "user create post", principal: alice, action: ActionCreatePost, allow: false},
		{name: "user edit post", principal: alice, action: ActionEditPost, allow: false},
		{name: "admin delete post", principal: admin, action: ActionDeletePost, allow: true},
		{name: "author edits own comment", principal: alice, action: ActionEditComment, ownerUID: "usr_alice", allow: true},
		{name: "other user edits comment", principal: bob, action: ActionEditComment, ownerUID: "usr_alice", allow: false},
		{name: "admin edits another users comment", principal: admin, action: ActionEditComment, ownerUID: "usr_alice", allow: false},
		{name: "author deletes own comment", principal: bob, action: ActionDeleteComment, ownerUID: "usr_bob", allow: true},
		{name: "admin deletes another users comment", principal: admin, action: ActionDeleteComment, ownerUID: "usr_bob", allow: false},
		{name: "admin toggles verification", principal: admin, action: ActionToggleVerification, allow: true},
		{name: "user toggles verification", principal: alice, action: ActionToggleVerification, allow: false},
		{name: "admin lists users", principal: admin, action: ActionListAllUsers, allow: true},
		{name: "user lists users", principal: bob, action: ActionListAllUsers, allow: false},
		{name: "admin deletes user", principal: admin, action: ActionDeleteUser, allow: true},
		{name: "unknown action", principal: admin, action: Action("rewrite_history"), allow: false},
	}

	policy := New(adminEmail)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.Can(tc.principal, tc.action, tc.ownerUID); got != tc.allow {
				t.Fatalf("Can(%v, %q, %q) = %v, want %v", tc.principal, tc.action, tc.ownerUID, got, tc.allow)
			}
		})
	}
}

func TestIsAdminIgnoresUID(t *testing.T) {
	policy := New(adminEmail)
	// Admin status is identity-based: the email decides, not the uid.
	if !policy.IsAdmin(&auth.Principal{UID: "anything", Email: adminEmail}) {
		t.Fatal("expected admin email to be admin")
	}
	if policy.IsAdmin(&auth.Principal{UID: "usr_admin", Email: "other@example.com"}) {
		t.Fatal("expected non-admin email to be denied")
	}
	if policy.IsAdmin(nil) {
		t.Fatal("expected nil principal to be denied")
	}
}
