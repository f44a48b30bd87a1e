/*
Package persistent implements immutable, structurally shared hash maps and
sets.

A Map with fewer than FlatThreshold entries is a flat slice of key/val pairs
searched linearly. At FlatThreshold entries and above it is a hamt32.Hamt.
The switch between the two happens inside Assoc and Dissoc and is never
visible through the API: two maps holding the same pairs are Equal whatever
their representation.

Every update returns a new *Map (or *Set) and leaves the receiver valid and
unchanged. Updates that change nothing return the receiver itself, so
callers can detect a no-op with ==.

For bulk edits, AsTransient returns a TransientMap that is updated in place
until Persistent is called. A transient must stay on one goroutine; after
Persistent every method on it fails with ErrInvalidatedTransient.

The vector package holds the persistent vector, and the stm package the
Atom and Ref reference types built on these collections.
*/
package persistent
