// Package equiv implements the "equal by value" rule shared by the
// persistent collections and the reference types.
package equiv

import "reflect"

// Equiver is implemented by values that define their own value equality,
// such as the persistent collections. Equiv must be symmetric for values of
// the same type.
type Equiver interface {
	Equiv(other any) bool
}

// Equal reports whether a and b are equal by value.
//
// Values implementing Equiver decide for themselves. Everything else is
// compared with ==, falling back to reflect.DeepEqual for types that are
// not comparable (slices, maps, funcs, or structs holding them).
func Equal(a, b any) bool {
	if e, ok := a.(Equiver); ok {
		return e.Equiv(b)
	}
	if e, ok := b.(Equiver); ok {
		return e.Equiv(a)
	}
	return Same(a, b) || reflect.DeepEqual(a, b)
}

// Same reports whether a == b without panicking on incomparable dynamic
// types; those are reported as not the same.
func Same(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
