package trie

import (
	"github.com/oleiade/lane"

	"github.com/trieeval/trieeval/bitvector"
	"github.com/trieeval/trieeval/internal/levels"
)

// TSTTrie is a ternary search tree over the same tail-compressed node set as
// PatriciaTrie, but instead of a LOUDS run per sibling group it encodes, for
// every node, three bits (left-child-exists, middle-child-exists,
// right-child-exists) forming a balanced binary search over each level's
// sibling run. Node 0 is a placeholder whose only use is its outs bit,
// which marks the empty key; the tree root is node 1.
type TSTTrie struct {
	tree   bitvector.BitVector
	outs   bitvector.BitVector
	links  bitvector.BitVector
	labels []byte

	tailBits  bitvector.BitVector
	tailBytes []byte

	nKeys, nNodes, size uint64
	built               bool
}

func NewTSTTrie() *TSTTrie { return &TSTTrie{} }

func (tt *TSTTrie) Name() string { return "Ternary search tree + labels" }

// tstNode is a bit-position range [begin, end) within one source level's
// Louds bit-vector: a contiguous sibling run still to be bisected.
type tstNode struct {
	levelID    int
	begin, end uint64
}

func (tt *TSTTrie) Build(keys [][]byte) error {
	if tt.built {
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

	tt.tree.Add(false)
	tt.tree.Add(false)
	tt.tree.Add(false)
	tt.outs.Add(src.Levels[0].Outs.Get(0))
	tt.links.Add(false)
	tt.labels = append(tt.labels, ' ')

	q := lane.NewQueue()
	if len(src.Levels) > 1 && !src.Levels[1].Louds.Get(0) {
		tt.tree.Set(1, true)
		end, ok := src.Levels[1].Louds.Select1(0)
		if !ok {
			panic("trie: corrupt source trie")
		}
		q.Enqueue(tstNode{1, 0, end})
	}

	for !q.Empty() {
		node := q.Dequeue().(tstNode)
		middle := (node.begin + node.end) / 2

		if node.begin < middle {
			tt.tree.Add(true)
			q.Enqueue(tstNode{node.levelID, node.begin, middle})
		} else {
			tt.tree.Add(false)
		}

		if node.begin < node.end {
			lvl := &src.Levels[node.levelID]
			nodeID := middle - lvl.Louds.Rank1(middle)
			tt.labels = append(tt.labels, lvl.Labels[nodeID])

			landLevelID, landNodeID, tail := absorbChain(src, node.levelID, nodeID)
			for j, b := range tail {
				tt.tailBits.Add(j == 0)
				tt.tailBytes = append(tt.tailBytes, b)
			}
			tt.links.Add(len(tail) > 0)

			landLvl := &src.Levels[landLevelID]
			if landLevelID+1 < len(src.Levels) {
				childLvl := &src.Levels[landLevelID+1]
				childStart := firstChildPos(childLvl, landNodeID)
				if !childLvl.Louds.Get(childStart) {
					tt.tree.Add(true)
					childEnd, ok := childLvl.Louds.Select1(landNodeID)
					if !ok {
						panic("trie: corrupt source trie")
					}
					q.Enqueue(tstNode{landLevelID + 1, childStart, childEnd})
				} else {
					tt.tree.Add(false)
				}
			} else {
				tt.tree.Add(false)
			}
			tt.outs.Add(landLvl.Outs.Get(landNodeID))
		} else {
			tt.tree.Add(false)
		}

		if middle+1 < node.end {
			tt.tree.Add(true)
			q.Enqueue(tstNode{node.levelID, middle + 1, node.end})
		} else {
			tt.tree.Add(false)
		}
	}

	tt.tree.Build()
	tt.outs.Build()
	tt.links.Build()
	tt.tailBits.Add(true)
	tt.tailBits.Build()

	tt.nKeys = src.NKeys
	tt.nNodes = src.NNodes
	tt.size = tt.tree.Size() + tt.outs.Size() + tt.links.Size() +
		uint64(len(tt.labels)) + tt.tailBits.Size() + uint64(len(tt.tailBytes))
	tt.built = true
	return nil
}

func (tt *TSTTrie) Lookup(query []byte) uint64 {
	// node 0 carries the empty key's terminal bit; every other query
	// starts at the root, node 1
	nodeID := uint64(0)
	if len(query) > 0 {
		if !tt.tree.Get(1) {
			return NotFound
		}
		nodeID = 1
	}
	for i := 0; i < len(query); {
		b := query[i]
		switch {
		case b < tt.labels[nodeID]:
			pos := nodeID * 3
			if !tt.tree.Get(pos) {
				return NotFound
			}
			nodeID = tt.tree.Rank1(pos) + 1
		case b > tt.labels[nodeID]:
			pos := nodeID*3 + 2
			if !tt.tree.Get(pos) {
				return NotFound
			}
			nodeID = tt.tree.Rank1(pos) + 1
		default:
			if tt.links.Get(nodeID) {
				tailID := tt.links.Rank1(nodeID)
				tailPos, ok := tt.tailBits.Select1(tailID)
				if !ok {
					return NotFound
				}
				i++
				for ; i < len(query); i++ {
					if tt.tailBytes[tailPos] != query[i] {
						return NotFound
					}
					tailPos++
					if tt.tailBits.Get(tailPos) {
						break
					}
				}
				if i == len(query) {
					return NotFound
				}
			}
			i++
			if i < len(query) {
				pos := nodeID*3 + 1
				if !tt.tree.Get(pos) {
					return NotFound
				}
				nodeID = tt.tree.Rank1(pos) + 1
			}
		}
	}
	if !tt.outs.Get(nodeID) {
		return NotFound
	}
	return tt.outs.Rank1(nodeID)
}

func (tt *TSTTrie) ReverseLookup(id uint64) []byte {
	if id >= tt.nKeys {
		panic("trie: ReverseLookup id out of range")
	}
	nodeID, ok := tt.outs.Select1(id)
	if !ok {
		panic("trie: corrupt ternary search tree")
	}
	var key []byte
	for nodeID != 0 {
		if tt.links.Get(nodeID) {
			tailID := tt.links.Rank1(nodeID)
			tailPos, ok := tt.tailBits.Select1(tailID + 1)
			if !ok {
				panic("trie: corrupt ternary search tree")
			}
			for {
				tailPos--
				key = append(key, tt.tailBytes[tailPos])
				if tt.tailBits.Get(tailPos) {
					break
				}
			}
		}
		key = append(key, tt.labels[nodeID])
		for {
			pos, ok := tt.tree.Select1(nodeID - 1)
			if !ok {
				panic("trie: corrupt ternary search tree")
			}
			nodeID = pos / 3
			if pos%3 == 1 {
				break
			}
		}
	}
	reverseBytes(key)
	return key
}

func (tt *TSTTrie) NKeys() uint64  { return tt.nKeys }
func (tt *TSTTrie) NNodes() uint64 { return tt.nNodes }
func (tt *TSTTrie) Size() uint64   { return tt.size }
func (tt *TSTTrie) String() string {
	return summary(tt.Name(), tt.nKeys, tt.nNodes, tt.size)
}

func (tt *TSTTrie) Stats() Stats {
	return Stats{
		NNodes: tt.nNodes,
		NKeys:  tt.nKeys,
		Bytes: map[string]uint64{
			"tree":      tt.tree.Size(),
			"outs":      tt.outs.Size(),
			"links":     tt.links.Size(),
			"labels":    uint64(len(tt.labels)),
			"tailBits":  tt.tailBits.Size(),
			"tailBytes": uint64(len(tt.tailBytes)),
		},
	}
}
