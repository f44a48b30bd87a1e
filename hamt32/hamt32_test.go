package hamt32_test

import (
	"testing"

	"github.com/lleo/go-persistent/hamt32"
	"github.com/lleo/go-persistent/trie"
)

func TestHamt32ZeroValueIsEmpty(t *testing.T) {
	var h hamt32.Hamt[string, int]
	if !h.IsEmpty() {
		t.Fatal("zero Hamt is not empty")
	}
	if _, found := h.Get("a"); found {
		t.Fatal("found a key in an empty Hamt")
	}
	var nh, _, deleted = h.Del("a")
	if deleted || !nh.IsEmpty() {
		t.Fatal("deleted a key from an empty Hamt")
	}
}

func TestHamt32Get(t *testing.T) {
	if TestHamt32.Nentries() != uint(len(KVS)) {
		t.Fatalf("TestHamt32.Nentries(),%d != len(KVS),%d", TestHamt32.Nentries(), len(KVS))
	}
	for _, kv := range KVS {
		var val, found = TestHamt32.Get(kv.Key)
		if !found {
			t.Fatalf("failed to TestHamt32.Get(%q)", kv.Key)
		}
		if val != kv.Val {
			t.Fatalf("TestHamt32.Get(%q),%d != %d", kv.Key, val, kv.Val)
		}
	}
}

func TestBuildHamt32(t *testing.T) {
	var h hamt32.Hamt[string, int]

	var added bool
	for _, kv := range KVS[:4096] {
		h, added = h.Put(kv.Key, kv.Val)
		if !added {
			t.Fatalf("failed to h.Put(%s, %v)", kv.Key, kv.Val)
		}
	}

	var val int
	var removed bool
	for _, kv := range KVS[:4096] {
		h, val, removed = h.Del(kv.Key)
		if !removed {
			t.Fatalf("failed to h.Del(%s)", kv.Key)
		}
		if val != kv.Val {
			t.Fatalf("val,%d != kv.Val,%d", val, kv.Val)
		}
	}

	if !h.IsEmpty() {
		t.Fatalf("!h.IsEmpty(); h=%s", h.LongString(""))
	}
}

func TestHamt32PutReplaces(t *testing.T) {
	var h, _ = hamt32.Hamt[string, int]{}.Put("x", 1)
	var h2, added = h.Put("x", 2)
	if added {
		t.Fatal("replacing a value reported added")
	}
	if h2.Nentries() != 1 {
		t.Fatalf("h2.Nentries(),%d != 1", h2.Nentries())
	}
	if v, _ := h2.Get("x"); v != 2 {
		t.Fatalf("h2.Get(x),%d != 2", v)
	}
	if v, _ := h.Get("x"); v != 1 {
		t.Fatalf("original h.Get(x),%d != 1 after Put on copy", v)
	}
}

func TestHamt32Persistence(t *testing.T) {
	var before = TestHamt32
	var after = TestHamt32

	for _, kv := range KVS[:1000] {
		after, _, _ = after.Del(kv.Key)
	}
	after, _ = after.Put("new-key", -1)

	if before.Nentries() != uint(len(KVS)) {
		t.Fatalf("original Hamt changed size: %d", before.Nentries())
	}
	for _, kv := range KVS[:1000] {
		if _, found := before.Get(kv.Key); !found {
			t.Fatalf("original Hamt lost %q", kv.Key)
		}
		if _, found := after.Get(kv.Key); found {
			t.Fatalf("derived Hamt still has %q", kv.Key)
		}
	}
	if _, found := before.Get("new-key"); found {
		t.Fatal("original Hamt sees key added to the derived Hamt")
	}
}

func TestHamt32All(t *testing.T) {
	var seen = make(map[string]int, len(KVS))
	for k, v := range TestHamt32.All() {
		if _, dup := seen[k]; dup {
			t.Fatalf("All() yielded %q twice", k)
		}
		seen[k] = v
	}
	if len(seen) != len(KVS) {
		t.Fatalf("All() yielded %d pairs; want %d", len(seen), len(KVS))
	}

	// Stopping early must be honored.
	var n int
	for range TestHamt32.All() {
		n++
		if n == 10 {
			break
		}
	}
	if n != 10 {
		t.Fatalf("early break yielded %d pairs", n)
	}
}

func TestHamt32TransientAssoc(t *testing.T) {
	var base hamt32.Hamt[string, int]
	for _, kv := range KVS[:100] {
		base, _ = base.Put(kv.Key, kv.Val)
	}

	var edit = trie.NewEdit()
	var h = base
	for _, kv := range KVS[100:5000] {
		if !h.Assoc(edit, kv.Key, kv.Val) {
			t.Fatalf("h.Assoc(%q) not added", kv.Key)
		}
	}
	for _, kv := range KVS[:50] {
		if _, deleted := h.Dissoc(edit, kv.Key); !deleted {
			t.Fatalf("h.Dissoc(%q) not deleted", kv.Key)
		}
	}
	edit.Kill()

	if h.Nentries() != 4950 {
		t.Fatalf("h.Nentries(),%d != 4950", h.Nentries())
	}
	if base.Nentries() != 100 {
		t.Fatalf("base.Nentries(),%d != 100", base.Nentries())
	}
	for _, kv := range KVS[:100] {
		if v, found := base.Get(kv.Key); !found || v != kv.Val {
			t.Fatalf("base lost %q after transient edits", kv.Key)
		}
	}
	for _, kv := range KVS[50:5000] {
		if v, found := h.Get(kv.Key); !found || v != kv.Val {
			t.Fatalf("h.Get(%q) = %d,%t", kv.Key, v, found)
		}
	}
}

func TestHamt32IntKeys(t *testing.T) {
	var h hamt32.Hamt[int, string]
	for i := 0; i < 10000; i++ {
		h, _ = h.Put(i, "v")
	}
	if h.Nentries() != 10000 {
		t.Fatalf("h.Nentries(),%d != 10000", h.Nentries())
	}
	for i := 0; i < 10000; i += 2 {
		h, _, _ = h.Del(i)
	}
	for i := 0; i < 10000; i++ {
		var _, found = h.Get(i)
		if found != (i%2 == 1) {
			t.Fatalf("h.Get(%d) found=%t", i, found)
		}
	}
}

func TestHash30IsStableForStrings(t *testing.T) {
	var a = hamt32.Hash30("stable")
	var b = hamt32.Hash30("stable")
	if a != b {
		t.Fatalf("Hash30 not deterministic: %d != %d", a, b)
	}
	if a>>30 != 0 {
		t.Fatalf("Hash30 produced more than 30 bits: %x", a)
	}
	if hamt32.Hash30(any("stable")) != a {
		t.Fatal("Hash30 differs between string and any(string) keys")
	}
}

func BenchmarkHamt32Get(b *testing.B) {
	for i := 0; i < b.N; i++ {
		var kv = KVS[i%len(KVS)]
		if _, found := TestHamt32.Get(kv.Key); !found {
			b.Fatalf("failed to TestHamt32.Get(%q)", kv.Key)
		}
	}
}

func BenchmarkHamt32Put(b *testing.B) {
	var h hamt32.Hamt[string, int]
	for i := 0; i < b.N; i++ {
		var kv = KVS[i%len(KVS)]
		h, _ = h.Put(kv.Key, kv.Val)
	}
}

func BenchmarkHamt32Assoc(b *testing.B) {
	var h hamt32.Hamt[string, int]
	var edit = trie.NewEdit()
	for i := 0; i < b.N; i++ {
		var kv = KVS[i%len(KVS)]
		h.Assoc(edit, kv.Key, kv.Val)
	}
}
