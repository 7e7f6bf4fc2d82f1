package trie

import "github.com/trieeval/trieeval/internal/levels"

// LevelTrie is the per-level LOUDS trie: each depth of the key set is
// stored as its own LOUDS bit-vector, terminal bitmap, and label array.
// Lookup walks one level per query byte; id assignment is a running
// cumulative offset across levels, assigned after the whole trie is built.
type LevelTrie struct {
	src    *levels.Trie
	nKeys  uint64
	nNodes uint64
	size   uint64
	built  bool
}

// NewLevelTrie returns an unbuilt LevelTrie.
func NewLevelTrie() *LevelTrie { return &LevelTrie{} }

func (lt *LevelTrie) Name() string { return "LoudsTrie" }

func (lt *LevelTrie) Build(keys [][]byte) error {
	if lt.built {
		panic("trie: Build called twice")
	}
	if err := checkSorted(keys); err != nil {
		return err
	}
	src := levels.New()
	for _, k := range keys {
		src.Add(k)
	}
	src.Build()
	src.AssignOffsets()

	lt.src = src
	lt.nKeys = src.NKeys
	lt.nNodes = src.NNodes
	lt.size = src.Size()
	lt.built = true
	return nil
}

func (lt *LevelTrie) Lookup(query []byte) uint64 {
	nodeID := uint64(0)
	levelIdx := 0
	for _, b := range query {
		levelIdx++
		lvl := &lt.src.Levels[levelIdx]

		var pos uint64
		if nodeID != 0 {
			p, ok := lvl.Louds.Select1(nodeID - 1)
			if !ok {
				return NotFound
			}
			pos = p + 1
		}

		found := false
		for {
			if lvl.Louds.Get(pos) {
				break // sibling run terminator: byte not present
			}
			candidate := pos - lvl.Louds.Rank1(pos)
			lbl := lvl.Labels[candidate]
			switch {
			case lbl == b:
				nodeID = candidate
				found = true
			case lbl > b:
				// labels within a sibling run are stored in
				// increasing order; no later label can match
			default:
				pos++
				continue
			}
			break
		}
		if !found {
			return NotFound
		}
	}

	lvl := &lt.src.Levels[levelIdx]
	if !lvl.Outs.Get(nodeID) {
		return NotFound
	}
	return lvl.Offset + lvl.Outs.Rank1(nodeID)
}

func (lt *LevelTrie) ReverseLookup(id uint64) []byte {
	if id >= lt.nKeys {
		panic("trie: ReverseLookup id out of range")
	}
	levelIdx := 0
	for levelIdx+1 < len(lt.src.Levels) && id >= lt.src.Levels[levelIdx+1].Offset {
		levelIdx++
	}
	local := id - lt.src.Levels[levelIdx].Offset
	nodeID, ok := lt.src.Levels[levelIdx].Outs.Select1(local)
	if !ok {
		panic("trie: corrupt level trie")
	}

	var key []byte
	for levelIdx > 0 {
		lvl := &lt.src.Levels[levelIdx]
		key = append(key, lvl.Labels[nodeID])
		pos, ok := lvl.Louds.Select0(nodeID)
		if !ok {
			panic("trie: corrupt level trie")
		}
		nodeID = pos - nodeID
		levelIdx--
	}
	reverseBytes(key)
	return key
}

func (lt *LevelTrie) NKeys() uint64  { return lt.nKeys }
func (lt *LevelTrie) NNodes() uint64 { return lt.nNodes }
func (lt *LevelTrie) Size() uint64   { return lt.size }

func (lt *LevelTrie) String() string {
	return summary(lt.Name(), lt.nKeys, lt.nNodes, lt.size)
}

func (lt *LevelTrie) Stats() Stats {
	return Stats{NNodes: lt.nNodes, NKeys: lt.nKeys, Bytes: lt.src.Breakdown()}
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
