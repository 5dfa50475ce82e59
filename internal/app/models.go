package app

import (
	"time"

	"github.com/mohamedzameer33/blogapp/internal/store"
)

const postsPath = "posts"

func commentsPath(postID string) string {
	return postsPath + "/" + postID + "/comments"
}

// Author is the denormalized snapshot captured when a post or comment
// is created. It is display data, not authority: ownership and
// verification decisions never read it.
type Author struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoUrl"`
}

// Post is the view model handed to the UI. Plain data, no store
// handles.
type Post struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	ImageURL  string     `json:"imageUrl"`
	Author    Author     `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Comment is the view model for one comment, including the live
// verification join result. Verified comes from the author's current
// profile (or the admin identity), never from the stored snapshot.
type Comment struct {
	ID        string     `json:"id"`
	PostID    string     `json:"postId"`
	Text      string     `json:"text"`
	Author    Author     `json:"author"`
	AuthorUID string     `json:"authorUid"`
	Verified  bool       `json:"verified"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// UserView is the admin users-list row.
type UserView struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoUrl"`
	IsVerified  bool   `json:"isVerified"`
}

// Stored wire shapes (collection "posts" and sub-collection
// "posts/{id}/comments") follow the data this service inherited:
// author fields are flattened as userName/userEmail/userPhoto, comments
// additionally carry userId.

func (s *Service) postFromDoc(doc store.Document) Post {
	return Post{
		ID:    doc.ID,
		Title: store.StringField(doc.Fields, "title"),
		// Sanitized again on every read: stored content is tainted.
		Content:  s.sanitizer.Sanitize(store.StringField(doc.Fields, "content")),
		ImageURL: store.StringField(doc.Fields, "imageUrl"),
		Author: Author{
			Name:     store.StringField(doc.Fields, "userName"),
			Email:    store.StringField(doc.Fields, "userEmail"),
			PhotoURL: store.StringField(doc.Fields, "userPhoto"),
		},
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func commentFromDoc(postID string, doc store.Document) Comment {
	return Comment{
		ID:     doc.ID,
		PostID: postID,
		Text:   store.StringField(doc.Fields, "text"),
		Author: Author{
			Name:     store.StringField(doc.Fields, "userName"),
			Email:    store.StringField(doc.Fields, "userEmail"),
			PhotoURL: store.StringField(doc.Fields, "userPhoto"),
		},
		AuthorUID: store.StringField(doc.Fields, "userId"),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
