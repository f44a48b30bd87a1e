package hamt32

import "strings"

// tableStack records the tables walked from the root to a leaf, so that a
// change at the bottom can be copied back up to the root.
type tableStack[K comparable, V any] []tableI[K, V]

// Constructs an empty tableStack object.
func newTableStack[K comparable, V any]() tableStack[K, V] {
	return make(tableStack[K, V], 0, MaxDepth+1)
}

// path.peek() returns the last entry inserted with path.push(...) without
// modifying path.
func (path tableStack[K, V]) peek() tableI[K, V] {
	if len(path) == 0 {
		return nil
	}
	return path[len(path)-1]
}

// path.pop() returns & removes the last entry inserted with path.push(...).
func (path *tableStack[K, V]) pop() tableI[K, V] {
	if len(*path) == 0 {
		return nil
	}
	parent := (*path)[len(*path)-1]
	*path = (*path)[:len(*path)-1]
	return parent
}

// Put a new tableI in the path object.
// You should never push nil, but we are not checking to prevent this.
func (path *tableStack[K, V]) push(node tableI[K, V]) {
	*path = append(*path, node)
}

// path.isEmpty() returns true if there are no entries in the path object,
// otherwise it returns false.
func (path tableStack[K, V]) isEmpty() bool {
	return len(path) == 0
}

func (path tableStack[K, V]) len() int {
	return len(path)
}

// Convert path to a string representation. This is only good for debug messages.
// It is not a string format to convert back from.
func (path tableStack[K, V]) String() string {
	strs := make([]string, len(path))
	var indent = ""
	for i, pv := range path {
		strs[i] = indent + pv.String() + "\n"
		indent += "  "
	}
	return strings.Join(strs, "")
}
