// Package levels builds the per-level LOUDS representation that every trie
// variant in this module is derived from: keys are added one at a time (in
// sorted order) directly into a LOUDS bit-vector per depth, then each of the
// five exported encodings either exposes that structure directly (the
// per-level variant) or walks it breadth-first to emit a more compact
// encoding (flat, Patricia, Indirect, ternary search tree).
package levels

import "github.com/trieeval/trieeval/bitvector"

// Level holds the LOUDS encoding of a single trie depth: Louds is the
// unary-degree-sequence bit-vector (a 0 per child, terminated by a 1), Outs
// marks which nodes at this depth terminate a key, and Labels holds the
// edge byte leading into each node, in LOUDS order.
type Level struct {
	Louds  bitvector.BitVector
	Outs   bitvector.BitVector
	Labels []byte

	// Offset is zero until Trie.AssignOffsets sets it to the number of keys
	// that terminate at shallower depths, so that a global key id can be
	// formed as Offset + Outs.Rank1(nodeID).
	Offset uint64
}

// Trie is the intermediate, per-level LOUDS structure shared by every
// exported trie encoding. It is built once from a sorted, deduplicated key
// set via repeated Add calls followed by Build.
type Trie struct {
	Levels  []Level
	lastKey []byte
	NKeys   uint64
	NNodes  uint64
}

// New returns a Trie seeded with the super-root convention: level 0 holds a
// single "01" LOUDS entry for the virtual root, and level 1 starts the real
// first level.
func New() *Trie {
	t := &Trie{Levels: make([]Level, 2), NNodes: 1}
	t.Levels[0].Louds.Add(false)
	t.Levels[0].Louds.Add(true)
	t.Levels[1].Louds.Add(true)
	t.Levels[0].Outs.Add(false)
	t.Levels[0].Labels = append(t.Levels[0].Labels, ' ')
	return t
}

// Add appends the next key. Keys must be added in strictly increasing
// order; this is a programmer precondition, not a runtime-recoverable one,
// and callers are expected to have sorted and deduplicated their input
// already (see trie.Build's Strict-gated check).
func (t *Trie) Add(key []byte) {
	if len(key) == 0 {
		t.Levels[0].Outs.Set(0, true)
		t.NKeys++
		t.lastKey = nil
		return
	}
	if len(key)+1 >= len(t.Levels) {
		grown := make([]Level, len(key)+2)
		copy(grown, t.Levels)
		t.Levels = grown
	}

	i := 0
	for ; i < len(key); i++ {
		lvl := &t.Levels[i+1]
		if i == len(t.lastKey) || key[i] != lvl.Labels[len(lvl.Labels)-1] {
			lvl.Louds.Set(lvl.Louds.Len()-1, false)
			lvl.Louds.Add(true)
			lvl.Outs.Add(false)
			lvl.Labels = append(lvl.Labels, key[i])
			t.NNodes++
			break
		}
	}
	for i++; i < len(key); i++ {
		lvl := &t.Levels[i+1]
		lvl.Louds.Add(false)
		lvl.Louds.Add(true)
		lvl.Outs.Add(false)
		lvl.Labels = append(lvl.Labels, key[i])
		t.NNodes++
	}
	t.Levels[i+1].Louds.Add(true)
	t.Levels[i].Outs.Set(t.Levels[i].Outs.Len()-1, true)
	t.NKeys++

	t.lastKey = append(t.lastKey[:0], key...)
}

// Build freezes every level's LOUDS bit-vector so Rank1/Select1 become
// available. Outs vectors are frozen separately by AssignOffsets, since
// offset bookkeeping needs Outs.Len() per level first.
func (t *Trie) Build() {
	for i := range t.Levels {
		t.Levels[i].Louds.Build()
	}
}

// AssignOffsets turns each level's key-count into a running cumulative
// offset and builds every Outs bit-vector, so that global key ids can be
// computed as level.Offset + level.Outs.Rank1(nodeID). Only the per-level
// LOUDS trie variant needs global ids; BFS-based encodings consume Levels
// directly and never call this.
func (t *Trie) AssignOffsets() {
	var running uint64
	for i := range t.Levels {
		t.Levels[i].Outs.Build()
		count := t.Levels[i].Outs.Rank1(t.Levels[i].Outs.Len())
		t.Levels[i].Offset = running
		running += count
	}
}

// Size reports the combined footprint of every level, in bytes.
func (t *Trie) Size() uint64 {
	var sz uint64
	for _, n := range t.Breakdown() {
		sz += n
	}
	return sz
}

// Breakdown reports the same footprint as Size, split by sub-structure and
// summed across every level.
func (t *Trie) Breakdown() map[string]uint64 {
	var louds, outs, labels uint64
	for i := range t.Levels {
		louds += t.Levels[i].Louds.Size()
		outs += t.Levels[i].Outs.Size()
		labels += uint64(len(t.Levels[i].Labels))
	}
	return map[string]uint64{"louds": louds, "outs": outs, "labels": labels}
}
