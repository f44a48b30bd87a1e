package hamt32

// Every leafI is a nodeI. Leaves are never modified in place; put and del
// always return a new leaf (or nil when the last key/val pair is removed).
type leafI[K comparable, V any] interface {
	nodeI[K, V]
	get(k K) (V, bool)
	put(k K, v V) (leafI[K, V], bool) //bool == added? key/val pair
	del(k K) (leafI[K, V], V, bool)   //bool == deleted? key
	keyVals() []KeyVal[K, V]
}
