package mediastore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
)

// BucketOpener hands out bucket handles. The Firebase storage client implements it.
type BucketOpener interface {
	Bucket(name string) (*storage.BucketHandle, error)
}

// GCS deletes objects from one Cloud Storage bucket.
type GCS struct {
	buckets BucketOpener
	bucket  string
}

// NewGCS returns a store for bucket, opened through buckets.
func NewGCS(buckets BucketOpener, bucket string) *GCS {
	return &GCS{buckets: buckets, bucket: bucket}
}

// Resolve returns the object behind mediaURL if it lives in the store's bucket.
func (g *GCS) Resolve(mediaURL string) (Object, error) {
	return resolveIn(g.bucket, mediaURL)
}

// Delete removes the object referenced by mediaURL. URLs outside the bucket are refused.
func (g *GCS) Delete(ctx context.Context, mediaURL string) error {
	obj, err := g.Resolve(mediaURL)
	if err != nil {
		return err
	}
	bucket, err := g.buckets.Bucket(obj.Bucket)
	if err != nil {
		return fmt.Errorf("mediastore: open bucket %s: %w", obj.Bucket, err)
	}
	if err := bucket.Object(obj.Name).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, obj)
		}
		return fmt.Errorf("mediastore: delete %s: %w", obj, err)
	}
	return nil
}
