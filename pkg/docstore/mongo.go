package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoIDField     = "_id"
	mongoParentField = "_parent"
)

// MongoStore maps each collection path shape to one MongoDB collection
// ("community_feed_posts/p1/comments" -> "community_feed_posts.comments"). Documents keep their
// full path in _id and the owning document path in _parent. Transactions need a replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo returns a store on database name.
func NewMongo(client *mongo.Client, name string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(name)}
}

// RunTransaction runs fn inside a MongoDB session transaction. The driver retries fn on
// transient transaction errors; a Create losing to an insert of a document fn read as missing
// re-runs the whole transaction.
func (s *MongoStore) RunTransaction(ctx context.Context, fn TxFunc) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("docstore: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	for attempt := 1; attempt <= defaultTxAttempts; attempt++ {
		_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, fn(sc, &mongoTx{store: s, ctx: sc, readMissing: map[Ref]bool{}})
		})
		if !errors.Is(err, errConcurrentCreate) {
			return err
		}
	}
	return err
}

// Get returns a snapshot of the document.
func (s *MongoStore) Get(ctx context.Context, ref Ref) (*Snapshot, error) {
	return (&mongoTx{store: s, ctx: ctx}).Get(ref)
}

// Query runs q outside a transaction.
func (s *MongoStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	return (&mongoTx{store: s, ctx: ctx}).Query(q)
}

// Create writes a new document.
func (s *MongoStore) Create(ctx context.Context, ref Ref, data Fields) error {
	return (&mongoTx{store: s, ctx: ctx}).Create(ref, data)
}

// Set writes the document, replacing it unless MergeAll is given.
func (s *MongoStore) Set(ctx context.Context, ref Ref, data Fields, opts ...SetOption) error {
	return (&mongoTx{store: s, ctx: ctx}).Set(ref, data, opts...)
}

// Update changes fields of an existing document.
func (s *MongoStore) Update(ctx context.Context, ref Ref, data Fields) error {
	return (&mongoTx{store: s, ctx: ctx}).Update(ref, data)
}

// Delete removes the document.
func (s *MongoStore) Delete(ctx context.Context, ref Ref) error {
	return (&mongoTx{store: s, ctx: ctx}).Delete(ref)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// WatchCreates follows a change stream of inserts into col.
func (s *MongoStore) WatchCreates(ctx context.Context, col CollectionRef, fn func(context.Context, *Snapshot)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: "insert"},
			{Key: "fullDocument." + mongoParentField, Value: string(col.Parent())},
		}}},
	}
	cs, err := s.collection(col).Watch(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("docstore: watch %s: %w", col, err)
	}
	defer cs.Close(context.Background())

	for cs.Next(ctx) {
		var event struct {
			FullDocument bson.M `bson:"fullDocument"`
		}
		if err := cs.Decode(&event); err != nil {
			return fmt.Errorf("docstore: decode change: %w", err)
		}
		id, _ := event.FullDocument[mongoIDField].(string)
		fn(ctx, NewSnapshot(Ref(id), fromBSON(event.FullDocument)))
	}
	if ctx.Err() != nil {
		return nil
	}
	return cs.Err()
}

func (s *MongoStore) collection(col CollectionRef) *mongo.Collection {
	segs := strings.Split(string(col), "/")
	names := make([]string, 0, len(segs)/2+1)
	for i := 0; i < len(segs); i += 2 {
		names = append(names, segs[i])
	}
	return s.db.Collection(strings.Join(names, "."))
}

type mongoTx struct {
	store       *MongoStore
	ctx         context.Context
	readMissing map[Ref]bool
}

func (t *mongoTx) Get(ref Ref) (*Snapshot, error) {
	var raw bson.M
	err := t.store.collection(ref.Parent()).FindOne(t.ctx, bson.M{mongoIDField: string(ref)}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if t.readMissing != nil {
			t.readMissing[ref] = true
		}
		return missingSnapshot(ref), nil
	}
	if err != nil {
		return nil, err
	}
	return NewSnapshot(ref, fromBSON(raw)), nil
}

func (t *mongoTx) Query(q Query) ([]*Snapshot, error) {
	filter := bson.D{{Key: mongoParentField, Value: string(q.collection.Parent())}}
	for _, f := range q.filters {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}
	opts := options.Find().SetSort(bson.D{{Key: mongoIDField, Value: 1}})
	if q.limit > 0 {
		opts.SetLimit(int64(q.limit))
	}

	cursor, err := t.store.collection(q.collection).Find(t.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(t.ctx)

	var raws []bson.M
	if err := cursor.All(t.ctx, &raws); err != nil {
		return nil, err
	}
	out := make([]*Snapshot, 0, len(raws))
	for _, raw := range raws {
		id, _ := raw[mongoIDField].(string)
		out = append(out, NewSnapshot(Ref(id), fromBSON(raw)))
	}
	return out, nil
}

func (t *mongoTx) Create(ref Ref, data Fields) error {
	doc := t.document(ref, data)
	_, err := t.store.collection(ref.Parent()).InsertOne(t.ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		if t.readMissing[ref] {
			return fmt.Errorf("%w: %s", errConcurrentCreate, ref)
		}
		return fmt.Errorf("%w: %s", ErrAlreadyExists, ref)
	}
	return err
}

func (t *mongoTx) Set(ref Ref, data Fields, opts ...SetOption) error {
	coll := t.store.collection(ref.Parent())
	filter := bson.M{mongoIDField: string(ref)}
	if isMerge(opts) {
		update := mongoUpdate(data)
		update["$setOnInsert"] = bson.M{mongoParentField: string(ref.Parent().Parent())}
		_, err := coll.UpdateOne(t.ctx, filter, update, options.Update().SetUpsert(true))
		return err
	}
	_, err := coll.ReplaceOne(t.ctx, filter, t.document(ref, data), options.Replace().SetUpsert(true))
	return err
}

func (t *mongoTx) Update(ref Ref, data Fields) error {
	update := mongoUpdate(data)
	if len(update) == 0 {
		return nil
	}
	res, err := t.store.collection(ref.Parent()).UpdateOne(t.ctx, bson.M{mongoIDField: string(ref)}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return nil
}

func (t *mongoTx) Delete(ref Ref) error {
	_, err := t.store.collection(ref.Parent()).DeleteOne(t.ctx, bson.M{mongoIDField: string(ref)})
	return err
}

func (t *mongoTx) document(ref Ref, data Fields) bson.M {
	doc := bson.M{}
	for k, v := range resolveMap(data, time.Now()) {
		doc[k] = v
	}
	doc[mongoIDField] = string(ref)
	doc[mongoParentField] = string(ref.Parent().Parent())
	return doc
}

// mongoUpdate turns fields with sentinels into update operators.
func mongoUpdate(data Fields) bson.M {
	set := bson.M{}
	inc := bson.M{}
	addToSet := bson.M{}
	unset := bson.M{}
	currentDate := bson.M{}

	now := time.Now()
	for k, v := range data {
		switch x := v.(type) {
		case sentinel:
			if x == deleteField {
				unset[k] = ""
			} else {
				currentDate[k] = true
			}
		case increment:
			inc[k] = x.n
		case arrayUnion:
			addToSet[k] = bson.M{"$each": x.elems}
		default:
			set[k] = resolveValue(v, now)
		}
	}

	update := bson.M{}
	for op, fields := range map[string]bson.M{
		"$set": set, "$inc": inc, "$addToSet": addToSet, "$unset": unset, "$currentDate": currentDate,
	} {
		if len(fields) > 0 {
			update[op] = fields
		}
	}
	return update
}

// fromBSON strips bookkeeping fields and converts driver types to plain Go values.
func fromBSON(raw bson.M) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == mongoIDField || k == mongoParentField {
			continue
		}
		out[k] = plainBSON(v)
	}
	return out
}

func plainBSON(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = plainBSON(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = plainBSON(e)
		}
		return m
	case primitive.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainBSON(e)
		}
		return out
	case int32:
		return int64(x)
	default:
		return v
	}
}
