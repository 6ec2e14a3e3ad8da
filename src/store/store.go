// Package store is the document store adapter the booking engines run on.
//
// Every backend offers point reads, field queries, point writes and a unit of
// work. Inside a unit of work all reads must happen before the first write;
// an error returned from the callback discards every buffered write, and
// write contention is retried by the backend.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNotFound           = errors.New("store: document not found")
	ErrAlreadyExists      = errors.New("store: document already exists")
	ErrReadAfterWrite     = errors.New("store: read issued after a write in the same transaction")
	ErrInvalidDestination = errors.New("store: destination must be a non-nil pointer")
	ErrInvalidFilter      = errors.New("store: invalid filter")
)

type Op string

const (
	Eq  Op = "=="
	Neq Op = "!="
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
	In  Op = "in"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

type Store interface {
	Get(ctx context.Context, collection, id string, dst any) error
	// Query decodes every document matching all filters into dst, which must
	// point to a slice.
	Query(ctx context.Context, collection string, filters []Filter, dst any) error
	Create(ctx context.Context, collection, id string, data any) error
	Set(ctx context.Context, collection, id string, data any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the handle passed to a unit of work. Writes are applied only when the
// callback returns nil.
type Tx interface {
	Get(collection, id string, dst any) error
	Query(collection string, filters []Filter, dst any) error
	Create(collection, id string, data any) error
	Set(collection, id string, data any) error
	Update(collection, id string, fields map[string]any) error
}

func checkDestination(dst any, slice bool) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrInvalidDestination
	}
	if slice && rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("%w: want pointer to slice, got %s", ErrInvalidDestination, rv.Type())
	}
	return nil
}

func checkFilters(filters []Filter) error {
	for _, f := range filters {
		switch f.Op {
		case Eq, Neq, Lt, Lte, Gt, Gte:
		case In:
			if k := reflect.ValueOf(f.Value).Kind(); k != reflect.Slice && k != reflect.Array {
				return fmt.Errorf("%w: %q needs a slice value", ErrInvalidFilter, f.Field)
			}
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Op)
		}
		if f.Field == "" {
			return fmt.Errorf("%w: empty field", ErrInvalidFilter)
		}
	}
	return nil
}

// decodeList unmarshals raw JSON documents into the slice dst points to.
func decodeList(raws [][]byte, dst any) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, raw := range raws {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	return json.Unmarshal(buf.Bytes(), dst)
}

// Transact runs fn as one unit of work and returns the value of the attempt
// that committed.
func Transact[T any](ctx context.Context, s Store, fn func(tx Tx) (T, error)) (T, error) {
	var out T
	err := s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
