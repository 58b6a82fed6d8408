// Package mediastore deletes uploaded media referenced by URL from object storage.
package mediastore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNotFound is returned when the object does not exist.
	ErrNotFound = errors.New("mediastore: object not found")
	// ErrForeignObject is returned for URLs naming an object outside the media bucket.
	ErrForeignObject = errors.New("mediastore: object outside the media bucket")
)

// Store removes stored media. A store only manages objects in its own bucket.
type Store interface {
	// Resolve parses mediaURL and returns its object, or ErrForeignObject when the object
	// lives in another bucket.
	Resolve(mediaURL string) (Object, error)
	Delete(ctx context.Context, mediaURL string) error
}

// Object locates a file in a bucket.
type Object struct {
	Bucket string
	Name   string
}

func (o Object) String() string {
	return "gs://" + o.Bucket + "/" + o.Name
}

// resolveIn parses raw and checks that it names an object in bucket.
func resolveIn(bucket, raw string) (Object, error) {
	obj, err := ParseURL(raw)
	if err != nil {
		return Object{}, err
	}
	if bucket == "" || obj.Bucket != bucket {
		return Object{}, fmt.Errorf("%w: %s", ErrForeignObject, obj)
	}
	return obj, nil
}

// ParseURL understands the three forms media URLs take:
//
//	gs://<bucket>/<name>
//	https://firebasestorage.googleapis.com/v0/b/<bucket>/o/<escaped name>?alt=media&token=...
//	https://storage.googleapis.com/<bucket>/<name>
func ParseURL(raw string) (Object, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Object{}, fmt.Errorf("mediastore: parse %q: %w", raw, err)
	}

	var obj Object
	switch {
	case u.Scheme == "gs":
		obj = Object{Bucket: u.Host, Name: strings.TrimPrefix(u.Path, "/")}
	case u.Host == "firebasestorage.googleapis.com":
		// EscapedPath keeps %2F inside the object name intact.
		parts := strings.SplitN(strings.TrimPrefix(u.EscapedPath(), "/"), "/", 5)
		if len(parts) != 5 || parts[0] != "v0" || parts[1] != "b" || parts[3] != "o" {
			return Object{}, fmt.Errorf("mediastore: unsupported download url %q", raw)
		}
		name, err := url.PathUnescape(parts[4])
		if err != nil {
			return Object{}, fmt.Errorf("mediastore: unescape %q: %w", raw, err)
		}
		obj = Object{Bucket: parts[2], Name: name}
	case u.Host == "storage.googleapis.com":
		bucket, name, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		obj = Object{Bucket: bucket, Name: name}
	default:
		return Object{}, fmt.Errorf("mediastore: unsupported url %q", raw)
	}

	if obj.Bucket == "" || obj.Name == "" {
		return Object{}, fmt.Errorf("mediastore: url %q has no object", raw)
	}
	return obj, nil
}
