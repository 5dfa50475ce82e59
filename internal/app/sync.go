package app

import (
	"context"
	"sync/atomic"

	"github.com/mohamedzameer33/blogapp/internal/identity"
	"github.com/mohamedzameer33/blogapp/internal/live"
)

// PostsSnapshot is one full view of the posts collection pushed to a
// live subscriber.
type PostsSnapshot struct {
	Token uint64 `json:"token"`
	Posts []Post `json:"posts"`
}

// CommentsSnapshot is one full view of a post's comments, verification
// badges already joined.
type CommentsSnapshot struct {
	Token    uint64    `json:"token"`
	PostID   string    `json:"postId"`
	Comments []Comment `json:"comments"`
}

// WatchPosts streams full posts snapshots: one on subscribe, then one
// per change, newest post first. Delivery stops when ctx is cancelled
// or after onError fires.
func (s *Service) WatchPosts(ctx context.Context, onSnapshot func(PostsSnapshot), onError func(error)) {
	s.watcher.Subscribe(ctx, postsPath, "createdAt", true,
		func(snap live.Snapshot) {
			posts := make([]Post, 0, len(snap.Documents))
			for _, doc := range snap.Documents {
				posts = append(posts, s.postFromDoc(doc))
			}
			onSnapshot(PostsSnapshot{Token: snap.Token, Posts: posts})
		},
		onError,
	)
}

// WatchComments streams full comment snapshots for one post, newest
// first, each joined against the authors' current profiles. The users
// collection is watched too, so toggling a verification flag refreshes
// open comment views without any comment being written.
//
// The profile join runs off the snapshot goroutine so a slow store
// cannot stall tick processing. A join that finishes after a newer
// snapshot has already been delivered is dropped: the subscriber only
// ever moves forward.
func (s *Service) WatchComments(ctx context.Context, postID string, onSnapshot func(CommentsSnapshot), onError func(error)) {
	var delivered atomic.Uint64
	var latest atomic.Uint64
	s.watcher.Subscribe(ctx, commentsPath(postID), "createdAt", true,
		func(snap live.Snapshot) {
			latest.Store(snap.Token)
			go func() {
				comments := s.joinVerification(ctx, postID, snap.Documents)
				if ctx.Err() != nil {
					return
				}
				if latest.Load() != snap.Token {
					return
				}
				for {
					prev := delivered.Load()
					if snap.Token <= prev {
						return
					}
					if delivered.CompareAndSwap(prev, snap.Token) {
						break
					}
				}
				onSnapshot(CommentsSnapshot{Token: snap.Token, PostID: postID, Comments: comments})
			}()
		},
		onError,
		identity.UsersPath,
	)
}
