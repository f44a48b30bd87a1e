package hamt32

import (
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"strings"

	"github.com/zeebo/blake3"
)

const mask30 = 1<<30 - 1

var seed = maphash.MakeSeed()

// Hash30 calculates the 30 bit hash path value of a key.
//
// String keys are hashed with BLAKE3 and integer keys with a fixed mixer, so
// the layout of a Hamt holding them (and therefore its iteration order) is
// the same in every process. Any other comparable key is hashed with
// hash/maphash under a per-process seed.
func Hash30[K comparable](k K) uint32 {
	var h32 uint32
	switch x := any(k).(type) {
	case string:
		var sum = blake3.Sum256([]byte(x))
		h32 = binary.LittleEndian.Uint32(sum[:4])
	case int:
		h32 = mix64(uint64(x))
	case int8:
		h32 = mix64(uint64(x))
	case int16:
		h32 = mix64(uint64(x))
	case int32:
		h32 = mix64(uint64(x))
	case int64:
		h32 = mix64(uint64(x))
	case uint:
		h32 = mix64(uint64(x))
	case uint8:
		h32 = mix64(uint64(x))
	case uint16:
		h32 = mix64(uint64(x))
	case uint32:
		h32 = mix64(uint64(x))
	case uint64:
		h32 = mix64(x)
	case uintptr:
		h32 = mix64(uint64(x))
	default:
		var h64 = maphash.Comparable(seed, k)
		h32 = uint32(h64>>32) ^ uint32(h64)
	}
	return (h32 >> 30) ^ (h32 & mask30)
}

// mix64 is the splitmix64 finalizer folded down to 32 bits.
func mix64(x uint64) uint32 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return uint32(x>>32) ^ uint32(x)
}

// index returns the Nbits wide slot number of h30 at depth.
func index(h30 uint32, depth uint) uint {
	return uint((h30 >> (depth * Nbits)) & uint32(TableCapacity-1))
}

// hashPathMask returns the mask of the hash bits consumed above depth.
func hashPathMask(depth uint) uint32 {
	return uint32(1)<<(depth*Nbits) - 1
}

// buildHashPath appends idx as the (depth-1)'th step of hashPath.
func buildHashPath(hashPath uint32, idx, depth uint) uint32 {
	return hashPath | uint32(idx)<<((depth-1)*Nbits)
}

// hashPathString creates a string of the form "/%02d/%02d..." describing the
// first depth steps of hashPath.
func hashPathString(hashPath uint32, depth uint) string {
	if depth == 0 {
		return "/"
	}
	var strs = make([]string, depth)

	for d := uint(0); d < depth; d++ {
		strs[d] = fmt.Sprintf("%02d", index(hashPath, d))
	}
	return "/" + strings.Join(strs, "/")
}

func h30ToString(h30 uint32) string {
	return hashPathString(h30, MaxDepth+1)
}
