package hamt32

import "math/bits"

// bitCount32 returns the number of bits set in a uint32 word (the Hamming
// Weight). math/bits compiles it down to the POPCNT instruction where the
// CPU has one.
func bitCount32(n uint32) uint {
	return uint(bits.OnesCount32(n))
}
