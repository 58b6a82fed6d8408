// Package events delivers document-creation events to the services that react to them.
package events

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

// ImageLabelHandler reacts to a new image label record.
type ImageLabelHandler interface {
	HandleImageLabel(ctx context.Context, ref docstore.Ref, label *models.ImageLabel) error
}

// ImageLabels feeds created imageLabels documents to a handler, either from a store watcher or
// from pushed events.
type ImageLabels struct {
	handler ImageLabelHandler
	log     logrus.FieldLogger
}

func NewImageLabels(handler ImageLabelHandler, log logrus.FieldLogger) *ImageLabels {
	return &ImageLabels{handler: handler, log: log}
}

// Handle decodes snap and passes it on.
func (l *ImageLabels) Handle(ctx context.Context, snap *docstore.Snapshot) error {
	var label models.ImageLabel
	if err := snap.DataTo(&label); err != nil {
		return fmt.Errorf("decode image label: %w", err)
	}
	label.ID = snap.Ref.ID()
	if label.GCSURL == "" {
		l.log.WithField("label_id", label.ID).Warn("Image label without gcsUrl ignored")
		return nil
	}
	return l.handler.HandleImageLabel(ctx, snap.Ref, &label)
}

// Watch blocks until ctx is done, handling every imageLabels document created meanwhile.
func (l *ImageLabels) Watch(ctx context.Context, watcher docstore.CreateWatcher) error {
	l.log.Info("Watching image labels")
	return watcher.WatchCreates(ctx, docstore.Collection(repositories.ImageLabelsCollection), func(ctx context.Context, snap *docstore.Snapshot) {
		if err := l.Handle(ctx, snap); err != nil {
			l.log.WithError(err).WithField("label_id", snap.Ref.ID()).Error("Image label event failed")
		}
	})
}
