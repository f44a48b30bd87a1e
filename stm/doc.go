/*
Package stm provides two reference types for sharing values between
goroutines: Atom, a single cell updated by compare-and-set, and Ref, a cell
that is only changed inside a transaction run by DoSync.

Transactions are optimistic. Every Ref keeps a short history of committed
values stamped with the global commit point at which they were installed.
A transaction reads the newest value stamped no later than its read point,
so it always sees a consistent snapshot. At commit it locks every Ref it
touched (in id order), checks that none of the Refs it read or wrote was
committed over since its read point, and installs its writes under a new
commit point. A failed check throws the attempt away and runs the body
again, so the body must not have side effects outside the Refs it uses.

Commute defers a function to commit time and applies it to the newest
committed value; commuted Refs are not checked and so never cause a retry.

An error returned or a panic raised by the body, or a panic in a commute
function or validator while committing, aborts the transaction with no
writes applied, and DoSync returns an *AbortedError wrapping it.

The values held by Atoms and Refs should be immutable, for example the
collections of the persistent and vector packages.
*/
package stm
