package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/logger"
)

type recordingHandler struct {
	mu     sync.Mutex
	labels []models.ImageLabel
	refs   []docstore.Ref
}

func (r *recordingHandler) HandleImageLabel(_ context.Context, ref docstore.Ref, label *models.ImageLabel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, ref)
	r.labels = append(r.labels, *label)
	return nil
}

func (r *recordingHandler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.labels)
}

func TestImageLabels_Handle(t *testing.T) {
	handler := &recordingHandler{}
	l := NewImageLabels(handler, logger.Discard())
	snap := docstore.NewSnapshot(repositories.ImageLabelRef("l1"), map[string]any{
		"gcsUrl": "gs://bucket/a.jpg",
		"labelAnnotations": []any{
			map[string]any{"description": "Bird", "score": 0.98},
		},
	})

	require.NoError(t, l.Handle(context.Background(), snap))

	require.Len(t, handler.labels, 1)
	assert.Equal(t, "l1", handler.labels[0].ID)
	assert.Equal(t, "gs://bucket/a.jpg", handler.labels[0].GCSURL)
	assert.Equal(t, []models.LabelAnnotation{{Description: "Bird", Score: 0.98}}, handler.labels[0].LabelAnnotations)
	assert.Equal(t, repositories.ImageLabelRef("l1"), handler.refs[0])
}

func TestImageLabels_HandleIgnoresLabelWithoutURL(t *testing.T) {
	handler := &recordingHandler{}
	l := NewImageLabels(handler, logger.Discard())

	require.NoError(t, l.Handle(context.Background(), docstore.NewSnapshot(repositories.ImageLabelRef("l1"), nil)))
	assert.Empty(t, handler.labels)
}

func TestImageLabels_Watch(t *testing.T) {
	store := docstore.NewMemory()
	handler := &recordingHandler{}
	l := NewImageLabels(handler, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Watch(ctx, store) }()

	// The watcher registers asynchronously; keep creating until it reports one.
	for i := 0; handler.count() == 0 && i < 100; i++ {
		ref := docstore.Collection(repositories.ImageLabelsCollection).NewDoc()
		require.NoError(t, store.Create(context.Background(), ref, docstore.Fields{"gcsUrl": "gs://bucket/a.jpg"}))
		time.Sleep(20 * time.Millisecond)
	}
	require.Positive(t, handler.count())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
