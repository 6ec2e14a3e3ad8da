package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps documents as JSON in process memory. Units of work are
// serialized behind one mutex, so a callback must not call back into the
// store outside its Tx.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]map[string][]byte{}}
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(collection, id, dst)
}

func (m *MemoryStore) Query(ctx context.Context, collection string, filters []Filter, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query(collection, filters, dst)
}

func (m *MemoryStore) Create(ctx context.Context, collection, id string, data any) error {
	return m.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Create(collection, id, data)
	})
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, data any) error {
	return m.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Set(collection, id, data)
	})
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return m.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Update(collection, id, fields)
	})
}

func (m *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, w := range tx.writes {
		coll, ok := m.docs[w.collection]
		if !ok {
			coll = map[string][]byte{}
			m.docs[w.collection] = coll
		}
		coll[w.id] = w.doc
	}
	return nil
}

// Len returns the number of documents in a collection.
func (m *MemoryStore) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collection])
}

func (m *MemoryStore) get(collection, id string, dst any) error {
	if err := checkDestination(dst, false); err != nil {
		return err
	}
	raw, ok := m.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dst)
}

func (m *MemoryStore) query(collection string, filters []Filter, dst any) error {
	if err := checkDestination(dst, true); err != nil {
		return err
	}
	if err := checkFilters(filters); err != nil {
		return err
	}
	ids := make([]string, 0, len(m.docs[collection]))
	for id := range m.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	raws := [][]byte{}
	for _, id := range ids {
		raw := m.docs[collection][id]
		doc := map[string]any{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		ok, err := matchAll(doc, filters)
		if err != nil {
			return err
		}
		if ok {
			raws = append(raws, raw)
		}
	}
	return decodeList(raws, dst)
}

type memoryWrite struct {
	collection string
	id         string
	doc        []byte
}

type memoryTx struct {
	store  *MemoryStore
	writes []memoryWrite
}

func (t *memoryTx) Get(collection, id string, dst any) error {
	if len(t.writes) > 0 {
		return ErrReadAfterWrite
	}
	return t.store.get(collection, id, dst)
}

func (t *memoryTx) Query(collection string, filters []Filter, dst any) error {
	if len(t.writes) > 0 {
		return ErrReadAfterWrite
	}
	return t.store.query(collection, filters, dst)
}

// current returns the document as this transaction would leave it.
func (t *memoryTx) current(collection, id string) ([]byte, bool) {
	for i := len(t.writes) - 1; i >= 0; i-- {
		if w := t.writes[i]; w.collection == collection && w.id == id {
			return w.doc, true
		}
	}
	raw, ok := t.store.docs[collection][id]
	return raw, ok
}

func (t *memoryTx) Create(collection, id string, data any) error {
	if _, exists := t.current(collection, id); exists {
		return fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
	}
	return t.Set(collection, id, data)
}

func (t *memoryTx) Set(collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, memoryWrite{collection: collection, id: id, doc: raw})
	return nil
}

func (t *memoryTx) Update(collection, id string, fields map[string]any) error {
	raw, exists := t.current(collection, id)
	if !exists {
		return ErrNotFound
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for field, value := range fields {
		v, err := normalize(value)
		if err != nil {
			return err
		}
		doc[field] = v
	}
	return t.Set(collection, id, doc)
}
