package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the production backend. Firestore transactions already
// enforce reads before writes and retry on contention.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string, dst any) error {
	if err := checkDestination(dst, false); err != nil {
		return err
	}
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return mapFirestoreError(err)
	}
	return snap.DataTo(dst)
}

func (s *FirestoreStore) Query(ctx context.Context, collection string, filters []Filter, dst any) error {
	if err := checkDestination(dst, true); err != nil {
		return err
	}
	q, err := s.query(collection, filters)
	if err != nil {
		return err
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return mapFirestoreError(err)
	}
	return decodeSnapshots(snaps, dst)
}

func (s *FirestoreStore) Create(ctx context.Context, collection, id string, data any) error {
	_, err := s.client.Collection(collection).Doc(id).Create(ctx, data)
	return mapFirestoreError(err)
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data any) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, data)
	return mapFirestoreError(err)
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, firestoreUpdates(fields))
	return mapFirestoreError(err)
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{store: s, tx: t})
	})
	return mapFirestoreError(err)
}

func (s *FirestoreStore) query(collection string, filters []Filter) (firestore.Query, error) {
	q := s.client.Collection(collection).Query
	if err := checkFilters(filters); err != nil {
		return q, err
	}
	for _, f := range filters {
		q = q.Where(f.Field, string(f.Op), f.Value)
	}
	return q, nil
}

type firestoreTx struct {
	store *FirestoreStore
	tx    *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string, dst any) error {
	if err := checkDestination(dst, false); err != nil {
		return err
	}
	snap, err := t.tx.Get(t.store.client.Collection(collection).Doc(id))
	if err != nil {
		return mapFirestoreError(err)
	}
	return snap.DataTo(dst)
}

func (t *firestoreTx) Query(collection string, filters []Filter, dst any) error {
	if err := checkDestination(dst, true); err != nil {
		return err
	}
	q, err := t.store.query(collection, filters)
	if err != nil {
		return err
	}
	snaps, err := t.tx.Documents(q).GetAll()
	if err != nil {
		return mapFirestoreError(err)
	}
	return decodeSnapshots(snaps, dst)
}

func (t *firestoreTx) Create(collection, id string, data any) error {
	return t.tx.Create(t.store.client.Collection(collection).Doc(id), data)
}

func (t *firestoreTx) Set(collection, id string, data any) error {
	return t.tx.Set(t.store.client.Collection(collection).Doc(id), data)
}

func (t *firestoreTx) Update(collection, id string, fields map[string]any) error {
	return t.tx.Update(t.store.client.Collection(collection).Doc(id), firestoreUpdates(fields))
}

func firestoreUpdates(fields map[string]any) []firestore.Update {
	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	updates := make([]firestore.Update, 0, len(paths))
	for _, path := range paths {
		updates = append(updates, firestore.Update{Path: path, Value: fields[path]})
	}
	return updates
}

func decodeSnapshots(snaps []*firestore.DocumentSnapshot, dst any) error {
	slice := reflect.ValueOf(dst).Elem()
	out := reflect.MakeSlice(slice.Type(), 0, len(snaps))
	for _, snap := range snaps {
		elem := reflect.New(slice.Type().Elem())
		if err := snap.DataTo(elem.Interface()); err != nil {
			return fmt.Errorf("decoding %s: %w", snap.Ref.ID, err)
		}
		out = reflect.Append(out, elem.Elem())
	}
	slice.Set(out)
	return nil
}

// mapFirestoreError translates gRPC statuses to store sentinels and passes
// every other error through untouched.
func mapFirestoreError(err error) error {
	if err == nil {
		return nil
	}
	var st interface{ GRPCStatus() *status.Status }
	if !errors.As(err, &st) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, err.Error())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, err.Error())
	}
	return err
}
