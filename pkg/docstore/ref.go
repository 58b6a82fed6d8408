package docstore

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 20
)

// Ref is the slash-separated path of a document, e.g. "community_chirps/c1/replies/r1".
type Ref string

// CollectionRef is the slash-separated path of a collection, e.g. "community_chirps/c1/replies".
type CollectionRef string

// Collection returns a reference to a top-level collection.
func Collection(name string) CollectionRef {
	return CollectionRef(name)
}

// NewID returns a random 20 character document id, the same shape Firestore assigns.
func NewID() string {
	return gonanoid.MustGenerate(idAlphabet, idLength)
}

// ParseRef validates a document path: a non-empty, even number of non-empty segments.
func ParseRef(path string) (Ref, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return "", fmt.Errorf("docstore: empty document path")
	}
	segs := strings.Split(path, "/")
	if len(segs)%2 != 0 {
		return "", fmt.Errorf("docstore: %q is not a document path", path)
	}
	for _, s := range segs {
		if s == "" {
			return "", fmt.Errorf("docstore: %q has an empty segment", path)
		}
	}
	return Ref(path), nil
}

// Doc returns a reference to the document id inside c.
func (c CollectionRef) Doc(id string) Ref {
	return Ref(string(c) + "/" + id)
}

// NewDoc returns a reference to a new document with a generated id.
func (c CollectionRef) NewDoc() Ref {
	return c.Doc(NewID())
}

// ID returns the last segment of the collection path.
func (c CollectionRef) ID() string {
	s := string(c)
	return s[strings.LastIndex(s, "/")+1:]
}

// Parent returns the document owning c, or "" for a top-level collection.
func (c CollectionRef) Parent() Ref {
	s := string(c)
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return ""
	}
	return Ref(s[:i])
}

// Where starts a query over c with an equality filter.
func (c CollectionRef) Where(field string, value any) Query {
	return Query{collection: c}.Where(field, value)
}

// All returns a query matching every document in c.
func (c CollectionRef) All() Query {
	return Query{collection: c}
}

// ID returns the document id.
func (r Ref) ID() string {
	s := string(r)
	return s[strings.LastIndex(s, "/")+1:]
}

// Parent returns the collection holding r.
func (r Ref) Parent() CollectionRef {
	s := string(r)
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return ""
	}
	return CollectionRef(s[:i])
}

// Collection returns the sub-collection name of r.
func (r Ref) Collection(name string) CollectionRef {
	return CollectionRef(string(r) + "/" + name)
}

// Segments splits the path into its components.
func (r Ref) Segments() []string {
	return strings.Split(string(r), "/")
}

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection by equality filters.
type Query struct {
	collection CollectionRef
	filters    []Filter
	limit      int
}

// Where adds an equality filter.
func (q Query) Where(field string, value any) Query {
	filters := make([]Filter, len(q.filters), len(q.filters)+1)
	copy(filters, q.filters)
	q.filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// Limit caps the number of returned documents. Zero means no limit.
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// Collection returns the queried collection.
func (q Query) Collection() CollectionRef {
	return q.collection
}
