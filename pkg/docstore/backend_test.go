package docstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijit-arora/cockatiel-companion/internal/testhelpers"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

// eachBackend runs fn once per store implementation, each on a fresh store.
func eachBackend(t *testing.T, fn func(t *testing.T, store docstore.Store)) {
	for _, backend := range testhelpers.Backends() {
		t.Run(backend.Name, func(t *testing.T) {
			fn(t, backend.Open(t))
		})
	}
}

func TestBackends_CreateAndAlreadyExists(t *testing.T) {
	eachBackend(t, func(t *testing.T, store docstore.Store) {
		ctx := context.Background()
		ref := docstore.Collection("birds").Doc("b1")

		require.NoError(t, store.Create(ctx, ref, docstore.Fields{"name": "Kiwi", "createdAt": docstore.ServerTimestamp}))

		snap, err := store.Get(ctx, ref)
		require.NoError(t, err)
		require.True(t, snap.Exists())
		assert.Equal(t, "Kiwi", snap.StringField("name"))
		assert.NotNil(t, snap.Data()["createdAt"])

		err = store.Create(ctx, ref, docstore.Fields{"name": "Again"})
		assert.ErrorIs(t, err, docstore.ErrAlreadyExists)

		err = store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
			return tx.Create(ref, docstore.Fields{"name": "Again"})
		})
		assert.ErrorIs(t, err, docstore.ErrAlreadyExists)

		snap, err = store.Get(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "Kiwi", snap.StringField("name"))
	})
}

func TestBackends_SetMergeAll(t *testing.T) {
	eachBackend(t, func(t *testing.T, store docstore.Store) {
		ctx := context.Background()
		ref := docstore.Collection("users").Doc("u1")

		require.NoError(t, store.Set(ctx, ref, docstore.Fields{"fcmToken": "tok"}))
		require.NoError(t, store.Set(ctx, ref, docstore.Fields{"partOfAviary": "g1"}, docstore.MergeAll))

		snap, err := store.Get(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "tok", snap.StringField("fcmToken"))
		assert.Equal(t, "g1", snap.StringField("partOfAviary"))

		// Without MergeAll the document is replaced.
		require.NoError(t, store.Set(ctx, ref, docstore.Fields{"guardianEmail": "a@b.c"}))
		snap, err = store.Get(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "a@b.c", snap.StringField("guardianEmail"))
		assert.NotContains(t, snap.Data(), "fcmToken")

		// MergeAll creates a missing document.
		fresh := docstore.Collection("users").Doc("u2")
		require.NoError(t, store.Set(ctx, fresh, docstore.Fields{"partOfAviary": "g2"}, docstore.MergeAll))
		snap, err = store.Get(ctx, fresh)
		require.NoError(t, err)
		assert.Equal(t, "g2", snap.StringField("partOfAviary"))
	})
}

func TestBackends_UpdateMissingIsNotFound(t *testing.T) {
	eachBackend(t, func(t *testing.T, store docstore.Store) {
		ctx := context.Background()
		ref := docstore.Collection("birds").Doc("ghost")

		err := store.Update(ctx, ref, docstore.Fields{"name": "Boo"})
		assert.ErrorIs(t, err, docstore.ErrNotFound)

		err = store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
			return tx.Update(ref, docstore.Fields{"count": docstore.Increment(1)})
		})
		assert.ErrorIs(t, err, docstore.ErrNotFound)

		snap, err := store.Get(ctx, ref)
		require.NoError(t, err)
		assert.False(t, snap.Exists())
	})
}

func TestBackends_FieldSentinels(t *testing.T) {
	eachBackend(t, func(t *testing.T, store docstore.Store) {
		ctx := context.Background()
		ref := docstore.Collection("community_feed_posts").Doc("p1")
		require.NoError(t, store.Create(ctx, ref, docstore.Fields{
			"likeCount": 1,
			"tags":      []any{"a"},
			"mediaUrl":  "gs://bucket/p1.jpg",
		}))

		require.NoError(t, store.Update(ctx, ref, docstore.Fields{
			"likeCount": docstore.Increment(2),
			"tags":      docstore.ArrayUnion("a", "b"),
			"mediaUrl":  docstore.DeleteField,
			"editedAt":  docstore.ServerTimestamp,
		}))
		require.NoError(t, store.Update(ctx, ref, docstore.Fields{
			"likeCount":    docstore.Increment(-1),
			"commentCount": docstore.Increment(1),
			"tags":         docstore.ArrayUnion("b", "c"),
		}))

		snap, err := store.Get(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, int64(2), snap.IntField("likeCount"))
		assert.Equal(t, int64(1), snap.IntField("commentCount"))
		assert.Equal(t, []any{"a", "b", "c"}, snap.Data()["tags"])
		assert.NotContains(t, snap.Data(), "mediaUrl")
		assert.NotNil(t, snap.Data()["editedAt"])
	})
}

func TestBackends_QueryScopesToCollection(t *testing.T) {
	eachBackend(t, func(t *testing.T, store docstore.Store) {
		ctx := context.Background()
		p1 := docstore.Collection("community_feed_posts").Doc("p1")
		p2 := docstore.Collection("community_feed_posts").Doc("p2")
		require.NoError(t, store.Create(ctx, p1.Collection("comments").Doc("c1"), docstore.Fields{"authorId": "u1"}))
		require.NoError(t, store.Create(ctx, p1.Collection("comments").Doc("c2"), docstore.Fields{"authorId": "u2"}))
		require.NoError(t, store.Create(ctx, p2.Collection("comments").Doc("c3"), docstore.Fields{"authorId": "u1"}))

		all, err := store.Query(ctx, p1.Collection("comments").All())
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, p1.Collection("comments").Doc("c1"), all[0].Ref)
		assert.Equal(t, p1.Collection("comments").Doc("c2"), all[1].Ref)

		byAuthor, err := store.Query(ctx, p1.Collection("comments").Where("authorId", "u1"))
		require.NoError(t, err)
		require.Len(t, byAuthor, 1)
		assert.Equal(t, p1.Collection("comments").Doc("c1"), byAuthor[0].Ref)
	})
}

func TestBackends_FailedTransactionDiscardsWrites(t *testing.T) {
	eachBackend(t, func(t *testing.T, store docstore.Store) {
		ctx := context.Background()
		ref := docstore.Collection("birds").Doc("b1")
		boom := errors.New("boom")

		err := store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
			if err := tx.Set(ref, docstore.Fields{"name": "Kiwi"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		snap, err := store.Get(ctx, ref)
		require.NoError(t, err)
		assert.False(t, snap.Exists())
	})
}

func TestBackends_ConcurrentCreateOrIncrement(t *testing.T) {
	eachBackend(t, func(t *testing.T, store docstore.Store) {
		ctx := context.Background()
		ref := docstore.Collection("counters").Doc("visits")

		const writers = 5
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
					snap, err := tx.Get(ref)
					if err != nil {
						return err
					}
					if !snap.Exists() {
						return tx.Create(ref, docstore.Fields{"n": 1})
					}
					return tx.Update(ref, docstore.Fields{"n": docstore.Increment(1)})
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		snap, err := store.Get(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, int64(writers), snap.IntField("n"))
	})
}
