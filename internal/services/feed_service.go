package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/mediastore"
)

var hashtagPattern = regexp.MustCompile(`#\w+`)

// ExtractHashtags returns the distinct #tags of body in order of first appearance. Tags are
// case-sensitive.
func ExtractHashtags(body string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, tag := range hashtagPattern.FindAllString(body, -1) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// FeedService manages feed posts and their comments.
type FeedService struct {
	store docstore.Store
	media mediastore.Store
	posts repositories.PostRepository
	users repositories.UserRepository
	log   logrus.FieldLogger
}

func NewFeedService(
	store docstore.Store,
	media mediastore.Store,
	posts repositories.PostRepository,
	users repositories.UserRepository,
	log logrus.FieldLogger,
) *FeedService {
	return &FeedService{store: store, media: media, posts: posts, users: users, log: log}
}

// CreatedResult carries the id of a new document.
type CreatedResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// CreateFeedPost publishes a post with a body, an image or both.
func (s *FeedService) CreateFeedPost(ctx context.Context, caller Caller, req models.CreateFeedPostRequest) (*CreatedResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(req.Body)
	mediaURL := strings.TrimSpace(req.MediaURL)
	if body == "" && mediaURL == "" {
		return nil, domainerrors.InvalidArgument("A post needs text or an image.")
	}
	if err := checkNewMedia(ctx, s.media, s.posts, mediaURL); err != nil {
		return nil, err
	}

	label, err := ResolveAuthorLabel(ctx, caller, s.users, s.users)
	if err != nil {
		return nil, storeError(err, "resolve author label")
	}

	ref := docstore.Collection(repositories.FeedPostsCollection).NewDoc()
	err = s.store.Create(ctx, ref, docstore.Fields{
		"authorId":     caller.UID,
		"authorLabel":  label,
		"body":         body,
		"mediaUrl":     mediaURL,
		"hashtags":     ExtractHashtags(body),
		"likeCount":    0,
		"commentCount": 0,
		"createdAt":    docstore.ServerTimestamp,
	})
	if err != nil {
		return nil, storeError(err, "create feed post")
	}

	s.log.WithFields(logrus.Fields{"post_id": ref.ID(), "uid": caller.UID}).Info("Feed post created")
	return &CreatedResult{Success: true, ID: ref.ID()}, nil
}

// DeleteFeedPost removes the caller's post together with its likes, comments and comment
// likes. The image is deleted first on a best-effort basis.
func (s *FeedService) DeleteFeedPost(ctx context.Context, caller Caller, postID string) (*Result, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := requireID(postID, "Post ID is required."); err != nil {
		return nil, err
	}

	postRef := repositories.FeedPostRef(postID)
	snap, err := s.store.Get(ctx, postRef)
	if err != nil {
		return nil, storeError(err, "get feed post")
	}
	if !snap.Exists() {
		return nil, domainerrors.NotFound("Post not found.")
	}
	if snap.StringField("authorId") != caller.UID {
		return nil, domainerrors.PermissionDenied("You can only delete your own posts.")
	}

	if mediaURL := snap.StringField("mediaUrl"); mediaURL != "" {
		if err := s.media.Delete(ctx, mediaURL); err != nil {
			s.log.WithError(err).WithField("post_id", postID).Warn("Could not delete post media")
		}
	}

	var removed int
	err = s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		post, err := tx.Get(postRef)
		if err != nil {
			return err
		}
		if !post.Exists() {
			return domainerrors.NotFound("Post not found.")
		}
		if post.StringField("authorId") != caller.UID {
			return domainerrors.PermissionDenied("You can only delete your own posts.")
		}

		refs, err := collectChildren(tx, postRef)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if err := tx.Delete(ref); err != nil {
				return err
			}
		}
		removed = len(refs)
		return tx.Delete(postRef)
	})
	if err != nil {
		return nil, storeError(err, "delete feed post")
	}

	s.log.WithFields(logrus.Fields{"post_id": postID, "children": removed}).Info("Feed post deleted")
	return &Result{Success: true}, nil
}

// collectChildren reads the likes, comments and comment likes of a post.
func collectChildren(tx docstore.Tx, postRef docstore.Ref) ([]docstore.Ref, error) {
	var refs []docstore.Ref

	likes, err := tx.Query(postRef.Collection(repositories.LikesCollection).All())
	if err != nil {
		return nil, err
	}
	for _, l := range likes {
		refs = append(refs, l.Ref)
	}

	comments, err := tx.Query(postRef.Collection(repositories.CommentsCollection).All())
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		commentLikes, err := tx.Query(c.Ref.Collection(repositories.LikesCollection).All())
		if err != nil {
			return nil, err
		}
		for _, l := range commentLikes {
			refs = append(refs, l.Ref)
		}
		refs = append(refs, c.Ref)
	}
	return refs, nil
}

// AddFeedComment comments on a post and bumps its comment count.
func (s *FeedService) AddFeedComment(ctx context.Context, caller Caller, postID, body string) (*CreatedResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := requireID(postID, "Post ID is required."); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domainerrors.InvalidArgument("Comment cannot be empty.")
	}

	label, err := ResolveAuthorLabel(ctx, caller, s.users, s.users)
	if err != nil {
		return nil, storeError(err, "resolve author label")
	}

	postRef := repositories.FeedPostRef(postID)
	commentRef := postRef.Collection(repositories.CommentsCollection).NewDoc()
	err = s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		post, err := tx.Get(postRef)
		if err != nil {
			return err
		}
		if !post.Exists() {
			return domainerrors.NotFound("Post not found.")
		}
		if err := tx.Create(commentRef, docstore.Fields{
			"authorId":    caller.UID,
			"authorLabel": label,
			"body":        body,
			"likeCount":   0,
			"createdAt":   docstore.ServerTimestamp,
		}); err != nil {
			return err
		}
		return tx.Update(postRef, docstore.Fields{"commentCount": docstore.Increment(1)})
	})
	if err != nil {
		return nil, storeError(err, "add feed comment")
	}

	s.log.WithFields(logrus.Fields{"post_id": postID, "comment_id": commentRef.ID()}).Info("Feed comment added")
	return &CreatedResult{Success: true, ID: commentRef.ID()}, nil
}

// DeleteFeedComment removes the caller's comment and its likes.
func (s *FeedService) DeleteFeedComment(ctx context.Context, caller Caller, postID, commentID string) (*Result, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := requireID(postID, "Post ID is required."); err != nil {
		return nil, err
	}
	if err := requireID(commentID, "Comment ID is required."); err != nil {
		return nil, err
	}

	postRef := repositories.FeedPostRef(postID)
	commentRef := repositories.CommentRef(postID, commentID)
	err := s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		comment, err := tx.Get(commentRef)
		if err != nil {
			return err
		}
		if !comment.Exists() {
			return domainerrors.NotFound("Comment not found.")
		}
		if comment.StringField("authorId") != caller.UID {
			return domainerrors.PermissionDenied("You can only delete your own comments.")
		}
		post, err := tx.Get(postRef)
		if err != nil {
			return err
		}
		likes, err := tx.Query(commentRef.Collection(repositories.LikesCollection).All())
		if err != nil {
			return err
		}

		for _, l := range likes {
			if err := tx.Delete(l.Ref); err != nil {
				return err
			}
		}
		if err := tx.Delete(commentRef); err != nil {
			return err
		}
		if !post.Exists() {
			return nil
		}
		return tx.Update(postRef, docstore.Fields{"commentCount": docstore.Increment(-1)})
	})
	if err != nil {
		return nil, storeError(err, "delete feed comment")
	}

	s.log.WithFields(logrus.Fields{"post_id": postID, "comment_id": commentID}).Info("Feed comment deleted")
	return &Result{Success: true}, nil
}
