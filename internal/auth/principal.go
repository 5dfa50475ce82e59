package auth

// Principal is an authenticated identity. A nil *Principal everywhere
// in the codebase means an anonymous visitor.
type Principal struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}
