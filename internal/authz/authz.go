// Package authz is the single authorization policy. Every call site
// delegates here instead of re-implementing "is this the admin" checks,
// so the trust model lives in exactly one table.
package authz

import "github.com/mohamedzameer33/blogapp/internal/auth"

type Action string

const (
	ActionCreatePost Action = "create_post"
	ActionEditPost   Action = "edit_post"
	ActionDeletePost Action = "delete_post"

	ActionCreateComment Action = "create_comment"
	ActionEditComment   Action = "edit_comment"
	ActionDeleteComment Action = "delete_comment"

	ActionToggleVerification Action = "toggle_verification"
	ActionDeleteUser         Action = "delete_user"
	ActionListAllUsers       Action = "list_all_users"

	ActionReadPost    Action = "read_post"
	ActionReadComment Action = "read_comment"
	ActionListPosts   Action = "list_posts"
)

// Policy decides whether a principal may perform an action. The
// administrator is a single static email: no role table, no multi-admin
// support.
type Policy struct {
	AdminEmail string
}

func New(adminEmail string) Policy {
	return Policy{AdminEmail: adminEmail}
}

// Can is a pure decision function. principal may be nil (anonymous);
// ownerUID is the uid owning the target (comment author), empty when
// the action has no ownership dimension.
func (p Policy) Can(principal *auth.Principal, action Action, ownerUID string) bool {
	switch action {
	case ActionReadPost, ActionReadComment, ActionListPosts:
		return true
	case ActionCreatePost, ActionEditPost, ActionDeletePost,
		ActionToggleVerification, ActionDeleteUser, ActionListAllUsers:
		return p.IsAdmin(principal)
	case ActionCreateComment:
		return principal != nil && principal.UID != ""
	case ActionEditComment, ActionDeleteComment:
		return principal != nil && principal.UID != "" && principal.UID == ownerUID
	default:
		return false
	}
}

func (p Policy) IsAdmin(principal *auth.Principal) bool {
	return principal != nil && principal.Email != "" && principal.Email == p.AdminEmail
}
