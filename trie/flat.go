package trie

import (
	"math/bits"

	"github.com/oleiade/lane"

	"github.com/trieeval/trieeval/bitvector"
	"github.com/trieeval/trieeval/internal/levels"
)

// FlatTrie is the breadth-first-emitted LOUDS trie: a single flat bit
// vector and label array instead of one per depth, with sibling runs
// searched by binary search rather than per-level addressing. It carries
// no tail compression; Patricia and Indirect build on the same emission
// shape but fold unary chains into a tail pool.
type FlatTrie struct {
	louds  bitvector.BitVector
	outs   bitvector.BitVector
	labels []byte

	nKeys, nNodes, size uint64
	built               bool
}

func NewFlatTrie() *FlatTrie { return &FlatTrie{} }

func (ft *FlatTrie) Name() string { return "LOUDS trie (flat)" }

func (ft *FlatTrie) Build(keys [][]byte) error {
	if ft.built {
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

	ft.louds.Add(false)
	ft.louds.Add(true)
	ft.outs.Add(src.Levels[0].Outs.Get(0))
	ft.labels = append(ft.labels, ' ')

	q := lane.NewQueue()
	if len(src.Levels) > 1 {
		q.Enqueue(bfsNode{1, 0})
	}
	for !q.Empty() {
		node := q.Dequeue().(bfsNode)
		lvl := &src.Levels[node.levelID]
		pos := node.nodePos
		for !lvl.Louds.Get(pos) {
			ft.louds.Add(false)
			nodeID := pos - lvl.Louds.Rank1(pos)
			ft.labels = append(ft.labels, lvl.Labels[nodeID])

			if node.levelID+1 < len(src.Levels) {
				childLvl := &src.Levels[node.levelID+1]
				childStart := firstChildPos(childLvl, nodeID)
				// every node gets a run, a lone 1 for a leaf, so that
				// run n+1 holds node n's children
				q.Enqueue(bfsNode{node.levelID + 1, childStart})
			}
			ft.outs.Add(lvl.Outs.Get(nodeID))
			pos++
		}
		ft.louds.Add(true)
	}

	ft.louds.Build()
	ft.outs.Build()

	ft.nKeys = src.NKeys
	ft.nNodes = src.NNodes
	ft.size = ft.louds.Size() + ft.outs.Size() + uint64(len(ft.labels))
	ft.built = true
	return nil
}

// siblingRange returns [begin, end) for the sibling run whose first member
// sits at firstPos: begin is the node id of the first sibling, end is the
// node id one past the last, found by scanning the raw LOUDS words forward
// from firstPos for the terminating 1-bit rather than calling Get bit by
// bit.
func siblingRange(louds *bitvector.BitVector, firstPos uint64) (begin, end uint64) {
	begin = firstPos - louds.Rank1(firstPos)
	words := louds.Words()
	wordIdx := firstPos / 64
	offset := firstPos % 64
	word := words[wordIdx] >> offset
	shifted := uint64(0)
	for word == 0 {
		wordIdx++
		shifted += 64 - offset
		offset = 0
		word = words[wordIdx]
	}
	tz := bits.TrailingZeros64(word)
	termPos := firstPos + shifted + uint64(tz)
	end = termPos - louds.Rank1(termPos)
	return begin, end
}

func (ft *FlatTrie) Lookup(query []byte) uint64 {
	nodeID := uint64(0)
	for _, b := range query {
		p, ok := ft.louds.Select1(nodeID)
		if !ok {
			return NotFound
		}
		firstPos := p + 1
		begin, end := siblingRange(&ft.louds, firstPos)
		lo, hi := begin, end
		found := false
		for lo < hi {
			mid := lo + (hi-lo)/2
			switch {
			case ft.labels[mid] == b:
				nodeID = mid
				found = true
				lo = hi // break
			case ft.labels[mid] < b:
				lo = mid + 1
			default:
				hi = mid
			}
		}
		if !found {
			return NotFound
		}
	}
	if !ft.outs.Get(nodeID) {
		return NotFound
	}
	return ft.outs.Rank1(nodeID)
}

func (ft *FlatTrie) ReverseLookup(id uint64) []byte {
	if id >= ft.nKeys {
		panic("trie: ReverseLookup id out of range")
	}
	nodeID, ok := ft.outs.Select1(id)
	if !ok {
		panic("trie: corrupt flat trie")
	}
	var key []byte
	for nodeID != 0 {
		key = append(key, ft.labels[nodeID])
		pos, ok := ft.louds.Select0(nodeID)
		if !ok {
			panic("trie: corrupt flat trie")
		}
		nodeID = pos - nodeID - 1
	}
	reverseBytes(key)
	return key
}

func (ft *FlatTrie) NKeys() uint64  { return ft.nKeys }
func (ft *FlatTrie) NNodes() uint64 { return ft.nNodes }
func (ft *FlatTrie) Size() uint64   { return ft.size }
func (ft *FlatTrie) String() string {
	return summary(ft.Name(), ft.nKeys, ft.nNodes, ft.size)
}

func (ft *FlatTrie) Stats() Stats {
	return Stats{
		NNodes: ft.nNodes,
		NKeys:  ft.nKeys,
		Bytes: map[string]uint64{
			"louds":  ft.louds.Size(),
			"outs":   ft.outs.Size(),
			"labels": uint64(len(ft.labels)),
		},
	}
}
