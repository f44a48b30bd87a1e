package persistent

import "github.com/pkg/errors"

// The path operations treat a Map[K, any] whose values may themselves be
// *Map[K, any] as a tree, addressed by a slice of keys.

// ValueAt returns the value at path, or def when any step of the path is
// missing or is not a map. An empty path yields m itself.
func ValueAt[K comparable](m *Map[K, any], path []K, def any) any {
	var cur any = m
	for _, k := range path {
		var node, ok = cur.(*Map[K, any])
		if !ok {
			return def
		}
		var v, found = node.Lookup(k)
		if !found {
			return def
		}
		cur = v
	}
	return cur
}

// AssocIn returns a map with the value at path set to v. Missing
// intermediate maps are created empty. It fails with
// ErrStructuralTypeMismatch when an intermediate value is not a map.
func AssocIn[K comparable](m *Map[K, any], path []K, v any) (*Map[K, any], error) {
	return UpdateIn(m, path, func(any, bool) any { return v })
}

// UpdateIn returns a map with the value at path replaced by f(old, found).
func UpdateIn[K comparable](m *Map[K, any], path []K, f func(old any, found bool) any) (*Map[K, any], error) {
	if len(path) == 0 {
		return nil, ErrEmptyPath
	}
	return updateIn(m, path, 0, f)
}

func updateIn[K comparable](m *Map[K, any], path []K, depth int, f func(any, bool) any) (*Map[K, any], error) {
	var k = path[depth]
	if depth == len(path)-1 {
		return m.Update(k, f), nil
	}

	var child, err = childMap(m, path, depth)
	if err != nil {
		return nil, err
	}
	if child == nil {
		child = Empty[K, any]()
	}
	nc, err := updateIn(child, path, depth+1, f)
	if err != nil {
		return nil, err
	}
	return m.Assoc(k, nc), nil
}

// DissocIn returns a map without the value at path. Intermediate maps left
// empty are kept. If the path does not lead to a value the receiver itself
// is returned.
func DissocIn[K comparable](m *Map[K, any], path []K) (*Map[K, any], error) {
	if len(path) == 0 {
		return nil, ErrEmptyPath
	}
	return dissocIn(m, path, 0)
}

func dissocIn[K comparable](m *Map[K, any], path []K, depth int) (*Map[K, any], error) {
	var k = path[depth]
	if depth == len(path)-1 {
		return m.Dissoc(k), nil
	}

	var child, err = childMap(m, path, depth)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return m, nil
	}
	nc, err := dissocIn(child, path, depth+1)
	if err != nil {
		return nil, err
	}
	if nc == child {
		return m, nil
	}
	return m.Assoc(k, nc), nil
}

// childMap returns the map stored at path[depth] in m, or nil when there is
// no value there (or the value is a nil interface).
func childMap[K comparable](m *Map[K, any], path []K, depth int) (*Map[K, any], error) {
	var v, found = m.Lookup(path[depth])
	if !found || v == nil {
		return nil, nil
	}
	var child, ok = v.(*Map[K, any])
	if !ok {
		return nil, errors.Wrapf(ErrStructuralTypeMismatch,
			"path %v: value at step %d is %T, not a map", path, depth, v)
	}
	return child, nil
}
