package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/mediastore"
)

func TestExtractHashtags(t *testing.T) {
	assert.Equal(t, []string{"#birds", "#Parrots"}, ExtractHashtags("Love #birds and #Parrots! #birds"))
	assert.Equal(t, []string{"#birds", "#Birds"}, ExtractHashtags("#birds #Birds"))
	assert.Equal(t, []string{"#cockatiel_life"}, ExtractHashtags("so #cockatiel_life."))
	assert.Equal(t, []string{}, ExtractHashtags("no tags # here"))
}

func setupFeedService(t *testing.T) (*FeedService, *testEnv) {
	t.Helper()
	env := setupTestEnv(t)
	env.seed(t, repositories.AviaryRef(guardian.UID), docstore.Fields{"aviaryName": "Sunny Loft", "guardianLabel": "Mum"})
	return NewFeedService(env.store, env.media, repositories.NewPostRepository(env.store), env.users, testLog), env
}

func TestFeedService_CreateFeedPost(t *testing.T) {
	ctx := context.Background()
	svc, env := setupFeedService(t)

	result, err := svc.CreateFeedPost(ctx, guardian, models.CreateFeedPostRequest{Body: " Love #birds and #Parrots! #birds "})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.ID)

	var post models.FeedPost
	require.NoError(t, env.get(t, repositories.FeedPostRef(result.ID)).DataTo(&post))
	assert.Equal(t, guardian.UID, post.AuthorID)
	assert.Equal(t, "Mum of Sunny Loft", post.AuthorLabel)
	assert.Equal(t, "Love #birds and #Parrots! #birds", post.Body)
	assert.Equal(t, []string{"#birds", "#Parrots"}, post.Hashtags)
	assert.Zero(t, post.LikeCount)
	assert.Zero(t, post.CommentCount)
	assert.Equal(t, testNow, post.CreatedAt)
}

func TestFeedService_CreateFeedPostImageOnly(t *testing.T) {
	svc, env := setupFeedService(t)

	result, err := svc.CreateFeedPost(context.Background(), guardian, models.CreateFeedPostRequest{MediaURL: "gs://bucket/feed/a.jpg"})
	require.NoError(t, err)

	var post models.FeedPost
	require.NoError(t, env.get(t, repositories.FeedPostRef(result.ID)).DataTo(&post))
	assert.Equal(t, "gs://bucket/feed/a.jpg", post.MediaURL)
	assert.Empty(t, post.Hashtags)
}

func TestFeedService_CreateFeedPostNeedsContent(t *testing.T) {
	svc, _ := setupFeedService(t)

	_, err := svc.CreateFeedPost(context.Background(), guardian, models.CreateFeedPostRequest{Body: "   "})
	assertCode(t, err, domainerrors.CodeInvalidArgument)

	_, err = svc.CreateFeedPost(context.Background(), Caller{}, models.CreateFeedPostRequest{Body: "hi"})
	assertCode(t, err, domainerrors.CodeUnauthenticated)
}

func seedPostWithChildren(t *testing.T, env *testEnv) docstore.Ref {
	t.Helper()
	post := repositories.FeedPostRef("p1")
	env.seed(t, post, docstore.Fields{"authorId": guardian.UID, "body": "hello", "mediaUrl": "gs://bucket/feed/p1.jpg", "likeCount": 1, "commentCount": 2})
	env.seed(t, post.Collection(repositories.LikesCollection).Doc(stranger.UID), docstore.Fields{"userId": stranger.UID})
	env.seed(t, repositories.CommentRef("p1", "m1"), docstore.Fields{"authorId": stranger.UID, "body": "nice", "likeCount": 1})
	env.seed(t, repositories.CommentRef("p1", "m1").Collection(repositories.LikesCollection).Doc(guardian.UID), docstore.Fields{"userId": guardian.UID})
	env.seed(t, repositories.CommentRef("p1", "m2"), docstore.Fields{"authorId": guardian.UID, "body": "thanks", "likeCount": 0})
	require.NoError(t, env.media.Put("gs://bucket/feed/p1.jpg"))
	return post
}

func TestFeedService_DeleteFeedPostCascades(t *testing.T) {
	ctx := context.Background()
	svc, env := setupFeedService(t)
	post := seedPostWithChildren(t, env)

	result, err := svc.DeleteFeedPost(ctx, guardian, "p1")
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.False(t, env.get(t, post).Exists())
	for _, col := range []docstore.CollectionRef{
		post.Collection(repositories.LikesCollection),
		post.Collection(repositories.CommentsCollection),
		repositories.CommentRef("p1", "m1").Collection(repositories.LikesCollection),
	} {
		left, err := env.store.Query(ctx, col.All())
		require.NoError(t, err)
		assert.Empty(t, left, string(col))
	}
	assert.False(t, env.media.Exists("gs://bucket/feed/p1.jpg"))
}

func TestFeedService_DeleteFeedPostByOtherUser(t *testing.T) {
	ctx := context.Background()
	svc, env := setupFeedService(t)
	post := seedPostWithChildren(t, env)

	_, err := svc.DeleteFeedPost(ctx, stranger, "p1")
	assertCode(t, err, domainerrors.CodePermissionDenied)

	assert.True(t, env.get(t, post).Exists())
	assert.True(t, env.get(t, repositories.CommentRef("p1", "m1")).Exists())
	assert.True(t, env.media.Exists("gs://bucket/feed/p1.jpg"))

	_, err = svc.DeleteFeedPost(ctx, guardian, "missing")
	assertCode(t, err, domainerrors.CodeNotFound)
}

func TestFeedService_DeleteFeedPostWithMissingMedia(t *testing.T) {
	svc, env := setupFeedService(t)
	env.seed(t, repositories.FeedPostRef("p2"), docstore.Fields{"authorId": guardian.UID, "mediaUrl": "gs://bucket/feed/gone.jpg"})

	_, err := svc.DeleteFeedPost(context.Background(), guardian, "p2")
	require.NoError(t, err)
	assert.False(t, env.get(t, repositories.FeedPostRef("p2")).Exists())
}

func TestFeedService_AddAndDeleteComment(t *testing.T) {
	ctx := context.Background()
	svc, env := setupFeedService(t)
	post := repositories.FeedPostRef("p1")
	env.seed(t, post, docstore.Fields{"authorId": stranger.UID, "commentCount": 0})

	result, err := svc.AddFeedComment(ctx, guardian, "p1", "  So fluffy  ")
	require.NoError(t, err)

	var comment models.Comment
	require.NoError(t, env.get(t, repositories.CommentRef("p1", result.ID)).DataTo(&comment))
	assert.Equal(t, "So fluffy", comment.Body)
	assert.Equal(t, "Mum of Sunny Loft", comment.AuthorLabel)
	assert.Equal(t, int64(1), env.get(t, post).IntField("commentCount"))

	_, err = svc.DeleteFeedComment(ctx, stranger, "p1", result.ID)
	assertCode(t, err, domainerrors.CodePermissionDenied)

	_, err = svc.DeleteFeedComment(ctx, guardian, "p1", result.ID)
	require.NoError(t, err)
	assert.False(t, env.get(t, repositories.CommentRef("p1", result.ID)).Exists())
	assert.Equal(t, int64(0), env.get(t, post).IntField("commentCount"))

	_, err = svc.DeleteFeedComment(ctx, guardian, "p1", result.ID)
	assertCode(t, err, domainerrors.CodeNotFound)
}

func TestFeedService_AddFeedCommentErrors(t *testing.T) {
	ctx := context.Background()
	svc, env := setupFeedService(t)
	env.seed(t, repositories.FeedPostRef("p1"), docstore.Fields{"authorId": stranger.UID, "commentCount": 0})

	_, err := svc.AddFeedComment(ctx, guardian, "p1", "   ")
	assertCode(t, err, domainerrors.CodeInvalidArgument)

	_, err = svc.AddFeedComment(ctx, guardian, "missing", "hi")
	assertCode(t, err, domainerrors.CodeNotFound)

	comments, err := env.store.Query(ctx, repositories.FeedPostRef("missing").Collection(repositories.CommentsCollection).All())
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestFeedService_DeleteCommentOfDeletedPost(t *testing.T) {
	ctx := context.Background()
	svc, env := setupFeedService(t)
	comment := repositories.CommentRef("gone", "m1")
	env.seed(t, comment, docstore.Fields{"authorId": guardian.UID, "body": "orphan"})
	env.seed(t, comment.Collection(repositories.LikesCollection).Doc(stranger.UID), docstore.Fields{"userId": stranger.UID})

	_, err := svc.DeleteFeedComment(ctx, guardian, "gone", "m1")
	require.NoError(t, err)
	assert.False(t, env.get(t, comment).Exists())
	assert.False(t, env.get(t, repositories.FeedPostRef("gone")).Exists())
	assert.False(t, env.get(t, comment.Collection(repositories.LikesCollection).Doc(stranger.UID)).Exists())
}

func TestFeedService_CreateFeedPostRejectsForeignMedia(t *testing.T) {
	ctx := context.Background()
	svc, env := setupFeedService(t)
	victimURL := "gs://other-bucket/private/victim.jpg"
	require.NoError(t, env.media.Put(victimURL))

	_, err := svc.CreateFeedPost(ctx, guardian, models.CreateFeedPostRequest{Body: "mine", MediaURL: victimURL})
	assertCode(t, err, domainerrors.CodeInvalidArgument)
	assert.ErrorIs(t, err, mediastore.ErrForeignObject)

	posts, err := env.store.Query(ctx, docstore.Collection(repositories.FeedPostsCollection).All())
	require.NoError(t, err)
	assert.Empty(t, posts)

	// A post stored before the check still cannot reach the foreign object.
	env.seed(t, repositories.FeedPostRef("old"), docstore.Fields{"authorId": guardian.UID, "mediaUrl": victimURL})
	_, err = svc.DeleteFeedPost(ctx, guardian, "old")
	require.NoError(t, err)
	assert.True(t, env.media.Exists(victimURL))
	assert.Empty(t, env.media.Deleted())
}

func TestFeedService_CreateFeedPostRejectsMediaOfAnotherPost(t *testing.T) {
	ctx := context.Background()
	svc, env := setupFeedService(t)
	victimURL := "gs://bucket/community/victim.jpg"
	require.NoError(t, env.media.Put(victimURL))
	env.seed(t, repositories.ChirpRef("c1"), docstore.Fields{"authorId": stranger.UID, "mediaUrl": victimURL})

	_, err := svc.CreateFeedPost(ctx, guardian, models.CreateFeedPostRequest{MediaURL: victimURL})
	assertCode(t, err, domainerrors.CodeInvalidArgument)

	// The download URL form names the same object.
	downloadURL := "https://firebasestorage.googleapis.com/v0/b/bucket/o/community%2Fvictim.jpg?alt=media"
	_, err = svc.CreateFeedPost(ctx, guardian, models.CreateFeedPostRequest{MediaURL: downloadURL})
	assertCode(t, err, domainerrors.CodeInvalidArgument)
	assert.True(t, env.media.Exists(victimURL))
}
