package store

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// normalize converts a Go value to its JSON-decoded form so documents and
// filter values compare on the same footing.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toDocument(data any) (map[string]any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseTime(s string) (time.Time, bool) {
	if len(s) < len("2006-01-02T15:04:05Z") || s[4] != '-' || s[10] != 'T' {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// compareValues orders two normalized values. ok is false when the pair has
// no ordering (different kinds, objects, arrays).
func compareValues(a, b any) (cmp int, ok bool) {
	switch av := a.(type) {
	case float64:
		bv, isNum := b.(float64)
		if !isNum {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, isStr := b.(string)
		if !isStr {
			return 0, false
		}
		if at, aok := parseTime(av); aok {
			if bt, bok := parseTime(bv); bok {
				return at.Compare(bt), true
			}
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, isBool := b.(bool)
		if !isBool {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		return 0, false
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

func matchFilter(doc map[string]any, f Filter) (bool, error) {
	got, present := doc[f.Field]
	if !present {
		return false, nil
	}
	want, err := normalize(f.Value)
	if err != nil {
		return false, err
	}
	switch f.Op {
	case Eq:
		return equalValues(got, want), nil
	case Neq:
		return !equalValues(got, want), nil
	case In:
		list, _ := want.([]any)
		for _, candidate := range list {
			if equalValues(got, candidate) {
				return true, nil
			}
		}
		return false, nil
	}
	cmp, ok := compareValues(got, want)
	if !ok {
		return false, nil
	}
	switch f.Op {
	case Lt:
		return cmp < 0, nil
	case Lte:
		return cmp <= 0, nil
	case Gt:
		return cmp > 0, nil
	case Gte:
		return cmp >= 0, nil
	}
	return false, ErrInvalidFilter
}

func matchAll(doc map[string]any, filters []Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matchFilter(doc, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
