package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/lleo/go-persistent"
	"github.com/lleo/go-persistent/vector"
)

// SetTag is the CBOR tag number for a mathematical finite set.
const SetTag = 258

type rawVector interface {
	Raw() []any
}

type rawMap interface {
	Raw() map[any]any
}

// ToRaw converts a persistent collection, and every collection nested in
// its elements or values, to plain Go values: vectors become []any, maps
// become map[any]any and sets become a cbor.Tag numbered SetTag holding
// []any. Any other value is returned unchanged.
//
// Map keys are kept as they are, so a key that is itself a collection has
// no raw form; ToRaw fails with ErrStructuralTypeMismatch on one.
func ToRaw(v any) (any, error) {
	switch x := v.(type) {
	case persistent.RawSet:
		var s, err = rawSlice(x.Raw())
		if err != nil {
			return nil, err
		}
		return cbor.Tag{Number: SetTag, Content: s}, nil
	case rawMap:
		var m = x.Raw()
		for k, val := range m {
			if isCollection(k) {
				return nil, errors.Wrapf(persistent.ErrStructuralTypeMismatch,
					"map key %v of type %T is a collection", k, k)
			}
			var rv, err = ToRaw(val)
			if err != nil {
				return nil, err
			}
			m[k] = rv
		}
		return m, nil
	case rawVector:
		return rawSlice(x.Raw())
	}
	return v, nil
}

func isCollection(v any) bool {
	switch v.(type) {
	case rawVector, rawMap:
		return true
	}
	return false
}

func rawSlice(s []any) ([]any, error) {
	for i := range s {
		var v, err = ToRaw(s[i])
		if err != nil {
			return nil, err
		}
		s[i] = v
	}
	return s, nil
}

// FromRaw is the inverse of ToRaw: []any becomes a *vector.Vector[any],
// map[any]any or map[string]any a *persistent.Map[any, any], and a set tag
// a *persistent.Set[any], at every level of nesting.
func FromRaw(raw any) (any, error) {
	switch x := raw.(type) {
	case []any:
		return vectorFromSlice(x)
	case map[any]any:
		return mapFromPairs(len(x), func(yield func(any, any) bool) {
			for k, v := range x {
				if !yield(k, v) {
					return
				}
			}
		})
	case map[string]any:
		return mapFromPairs(len(x), func(yield func(any, any) bool) {
			for k, v := range x {
				if !yield(k, v) {
					return
				}
			}
		})
	case cbor.Tag:
		if x.Number != SetTag {
			return raw, nil
		}
		var elems, ok = x.Content.([]any)
		if !ok {
			return nil, errors.Wrapf(persistent.ErrStructuralTypeMismatch,
				"set tag content is %T, not an array", x.Content)
		}
		return setFromSlice(elems)
	}
	return raw, nil
}

// VectorFromRaw is FromRaw for a value that must be a vector.
func VectorFromRaw(raw any) (*vector.Vector[any], error) {
	var s, ok = raw.([]any)
	if !ok {
		return nil, errors.Wrapf(persistent.ErrStructuralTypeMismatch,
			"expected a sequence, got %T", raw)
	}
	return vectorFromSlice(s)
}

// MapFromRaw is FromRaw for a value that must be a map.
func MapFromRaw(raw any) (*persistent.Map[any, any], error) {
	switch raw.(type) {
	case map[any]any, map[string]any:
		var v, err = FromRaw(raw)
		if err != nil {
			return nil, err
		}
		return v.(*persistent.Map[any, any]), nil
	}
	return nil, errors.Wrapf(persistent.ErrStructuralTypeMismatch,
		"expected a map, got %T", raw)
}

func vectorFromSlice(s []any) (*vector.Vector[any], error) {
	var t = vector.Empty[any]().AsTransient()
	for _, e := range s {
		var v, err = FromRaw(e)
		if err != nil {
			return nil, err
		}
		if _, err = t.Conj(v); err != nil {
			return nil, err
		}
	}
	return t.Persistent()
}

func mapFromPairs(n int, pairs func(yield func(any, any) bool)) (*persistent.Map[any, any], error) {
	var t = persistent.Empty[any, any]().AsTransient()
	var err error
	pairs(func(k, raw any) bool {
		var v any
		if v, err = FromRaw(raw); err != nil {
			return false
		}
		_, err = t.Assoc(k, v)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return t.Persistent()
}

func setFromSlice(s []any) (*persistent.Set[any], error) {
	var t = persistent.EmptySet[any]().AsTransient()
	for _, e := range s {
		var v, err = FromRaw(e)
		if err != nil {
			return nil, err
		}
		if v != nil && !reflect.TypeOf(v).Comparable() {
			return nil, errors.Wrapf(persistent.ErrStructuralTypeMismatch,
				"set element of type %T is not comparable", v)
		}
		if _, err = t.Conj(v); err != nil {
			return nil, err
		}
	}
	return t.Persistent()
}
