// Package mocks provides test doubles for the service's storage interfaces.
package mocks

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuschat/chat-service/internal/core/docdb"
)

// MemoryDocDB is an in-memory docdb.Client backed by a single document
// slice. Documents round-trip through BSON on the way in and out, so typed
// models behave the way they do against the real driver.
type MemoryDocDB struct {
	mu   sync.Mutex
	docs []bson.M

	PingErr    error
	IndexesErr error
}

// NewMemoryDocDB creates an empty in-memory document store.
func NewMemoryDocDB() *MemoryDocDB {
	return &MemoryDocDB{}
}

// Conversations returns the single shared collection.
func (d *MemoryDocDB) Conversations() docdb.Collection {
	return &memoryCollection{db: d}
}

// EnsureIndexes returns the configured error, if any.
func (d *MemoryDocDB) EnsureIndexes(ctx context.Context) error {
	return d.IndexesErr
}

// Ping returns the configured error, if any.
func (d *MemoryDocDB) Ping(ctx context.Context) error {
	return d.PingErr
}

// Close is a no-op.
func (d *MemoryDocDB) Close(ctx context.Context) error {
	return nil
}

// Len reports how many documents the store holds.
func (d *MemoryDocDB) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.docs)
}

type memoryCollection struct {
	db *MemoryDocDB
}

func (c *memoryCollection) InsertOne(ctx context.Context, document interface{}) (interface{}, error) {
	doc, err := toDoc(document)
	if err != nil {
		return nil, err
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.docs = append(c.db.docs, doc)
	return doc["id"], nil
}

func (c *memoryCollection) FindOne(ctx context.Context, filter interface{}) docdb.SingleResult {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	for _, doc := range c.db.docs {
		if matches(doc, filter) {
			return &memorySingleResult{doc: doc}
		}
	}
	return &memorySingleResult{err: docdb.ErrNotFound}
}

func (c *memoryCollection) Find(ctx context.Context, filter interface{}, opts *docdb.FindOptions) (docdb.Cursor, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	matched := make([]bson.M, 0)
	for _, doc := range c.db.docs {
		if matches(doc, filter) {
			matched = append(matched, doc)
		}
	}

	if opts != nil {
		if sortSpec, ok := opts.Sort.(bson.D); ok && len(sortSpec) > 0 {
			key := sortSpec[0].Key
			descending := toInt(sortSpec[0].Value) < 0
			sort.SliceStable(matched, func(i, j int) bool {
				if descending {
					return compareValues(matched[i][key], matched[j][key]) > 0
				}
				return compareValues(matched[i][key], matched[j][key]) < 0
			})
		}
		if opts.Skip > 0 {
			if opts.Skip >= int64(len(matched)) {
				matched = nil
			} else {
				matched = matched[opts.Skip:]
			}
		}
		if opts.Limit > 0 && opts.Limit < int64(len(matched)) {
			matched = matched[:opts.Limit]
		}
	}

	return &memoryCursor{docs: matched, idx: -1}, nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*docdb.UpdateResult, error) {
	set, err := setClause(update)
	if err != nil {
		return nil, err
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	for _, doc := range c.db.docs {
		if matches(doc, filter) {
			for k, v := range set {
				doc[k] = normalizeValue(v)
			}
			return &docdb.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}
	return &docdb.UpdateResult{}, nil
}

func (c *memoryCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}) (*docdb.UpdateResult, error) {
	doc, err := toDoc(replacement)
	if err != nil {
		return nil, err
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	for i := range c.db.docs {
		if matches(c.db.docs[i], filter) {
			c.db.docs[i] = doc
			return &docdb.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}
	c.db.docs = append(c.db.docs, doc)
	return &docdb.UpdateResult{UpsertedCount: 1}, nil
}

func (c *memoryCollection) DeleteMany(ctx context.Context, filter interface{}) (*docdb.DeleteResult, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	kept := c.db.docs[:0]
	deleted := int64(0)
	for _, doc := range c.db.docs {
		if matches(doc, filter) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	c.db.docs = kept
	return &docdb.DeleteResult{DeletedCount: deleted}, nil
}

func (c *memoryCollection) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	count := int64(0)
	for _, doc := range c.db.docs {
		if matches(doc, filter) {
			count++
		}
	}
	return count, nil
}

type memorySingleResult struct {
	doc bson.M
	err error
}

func (r *memorySingleResult) Decode(v interface{}) error {
	if r.err != nil {
		return r.err
	}
	raw, err := bson.Marshal(r.doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, v)
}

func (r *memorySingleResult) Err() error {
	return r.err
}

type memoryCursor struct {
	docs []bson.M
	idx  int
}

func (c *memoryCursor) Next(ctx context.Context) bool {
	c.idx++
	return c.idx < len(c.docs)
}

func (c *memoryCursor) Decode(v interface{}) error {
	if c.idx < 0 || c.idx >= len(c.docs) {
		return fmt.Errorf("cursor is exhausted")
	}
	raw, err := bson.Marshal(c.docs[c.idx])
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, v)
}

func (c *memoryCursor) All(ctx context.Context, results interface{}) error {
	slicePtr := reflect.ValueOf(results)
	if slicePtr.Kind() != reflect.Ptr || slicePtr.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("results must be a pointer to a slice")
	}

	sliceVal := slicePtr.Elem()
	elemType := sliceVal.Type().Elem()
	for _, doc := range c.docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		elem := reflect.New(elemType.Elem())
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return err
		}
		sliceVal = reflect.Append(sliceVal, elem)
	}
	slicePtr.Elem().Set(sliceVal)
	return nil
}

func (c *memoryCursor) Err() error {
	return nil
}

func (c *memoryCursor) Close(ctx context.Context) error {
	return nil
}

func toDoc(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := bson.M{}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func setClause(update interface{}) (bson.M, error) {
	u, ok := update.(bson.M)
	if !ok {
		return nil, fmt.Errorf("unsupported update type %T", update)
	}
	set, ok := u["$set"].(bson.M)
	if !ok {
		return nil, fmt.Errorf("update must carry a $set clause")
	}
	return set, nil
}

func matches(doc bson.M, filter interface{}) bool {
	f, ok := filter.(bson.M)
	if !ok {
		return false
	}
	for k, want := range f {
		if fmt.Sprint(doc[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func normalizeValue(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return primitive.NewDateTimeFromTime(t)
	}
	return v
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case primitive.DateTime:
		bv, ok := b.(primitive.DateTime)
		if !ok {
			break
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv, ok := b.(string)
		if !ok {
			break
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}

	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
