package trie

import (
	"sort"

	"github.com/oleiade/lane"

	"github.com/trieeval/trieeval/bitvector"
	"github.com/trieeval/trieeval/internal/levels"
	"github.com/trieeval/trieeval/intvector"
)

// IndirectTrie is the flat LOUDS trie with shared-tail compression: like
// PatriciaTrie it folds unary chains out of the node structure, but
// identical tails across different nodes are deduplicated into a single
// shared pool, indexed through a packed link-id -> tail-id table instead of
// storing one tail per node.
type IndirectTrie struct {
	louds    bitvector.BitVector
	outs     bitvector.BitVector
	linkBits bitvector.BitVector
	links    intvector.IntVector
	labels   []byte

	tailBits  bitvector.BitVector
	tailBytes []byte

	nKeys, nNodes, size uint64
	built               bool
}

func NewIndirectTrie() *IndirectTrie { return &IndirectTrie{} }

func (it *IndirectTrie) Name() string { return "LOUDS trie + shared labels (indirect links)" }

type pendingTail struct {
	linkID int
	str    []byte
}

func (it *IndirectTrie) Build(keys [][]byte) error {
	if it.built {
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

	it.louds.Add(false)
	it.louds.Add(true)
	it.outs.Add(src.Levels[0].Outs.Get(0))
	it.linkBits.Add(false)
	it.labels = append(it.labels, ' ')

	var pending []pendingTail
	linkID := 0

	q := lane.NewQueue()
	if len(src.Levels) > 1 {
		q.Enqueue(bfsNode{1, 0})
	}
	for !q.Empty() {
		node := q.Dequeue().(bfsNode)
		lvl := &src.Levels[node.levelID]
		pos := node.nodePos
		for !lvl.Louds.Get(pos) {
			it.louds.Add(false)
			nodeID := pos - lvl.Louds.Rank1(pos)
			it.labels = append(it.labels, lvl.Labels[nodeID])

			landLevelID, landNodeID, tail := absorbChain(src, node.levelID, nodeID)
			hasTail := len(tail) > 0
			it.linkBits.Add(hasTail)
			if hasTail {
				pending = append(pending, pendingTail{linkID: linkID, str: tail})
				linkID++
			}

			landLvl := &src.Levels[landLevelID]
			if landLevelID+1 < len(src.Levels) {
				childStart := firstChildPos(&src.Levels[landLevelID+1], landNodeID)
				// every node gets a run, a lone 1 for a leaf, so that
				// run n+1 holds node n's children
				q.Enqueue(bfsNode{landLevelID + 1, childStart})
			}
			it.outs.Add(landLvl.Outs.Get(landNodeID))
			pos++
		}
		it.louds.Add(true)
	}

	it.louds.Build()
	it.outs.Build()
	it.linkBits.Build()

	if len(pending) > 0 {
		sorted := make([]pendingTail, len(pending))
		copy(sorted, pending)
		sort.Slice(sorted, func(i, j int) bool {
			return compareBytes(sorted[i].str, sorted[j].str) < 0
		})

		nTails := 0
		for i := range sorted {
			if i == 0 || compareBytes(sorted[i].str, sorted[i-1].str) != 0 {
				nTails++
			}
		}

		it.links.Init(uint64(len(pending)), uint64(nTails-1))
		tailID := uint64(0)
		for i := range sorted {
			if i > 0 && compareBytes(sorted[i].str, sorted[i-1].str) != 0 {
				tailID++
			}
			if i == 0 || compareBytes(sorted[i].str, sorted[i-1].str) != 0 {
				for j, b := range sorted[i].str {
					it.tailBits.Add(j == 0)
					it.tailBytes = append(it.tailBytes, b)
				}
			}
			it.links.Set(uint64(sorted[i].linkID), tailID)
		}
	}
	it.tailBits.Add(true)
	it.tailBits.Build()

	it.nKeys = src.NKeys
	it.nNodes = src.NNodes
	it.size = it.louds.Size() + it.outs.Size() + it.linkBits.Size() +
		it.links.Size() + uint64(len(it.labels)) + it.tailBits.Size() + uint64(len(it.tailBytes))
	it.built = true
	return nil
}

func (it *IndirectTrie) Lookup(query []byte) uint64 {
	nodeID := uint64(0)
	i := 0
	for i < len(query) {
		p, ok := it.louds.Select1(nodeID)
		if !ok {
			return NotFound
		}
		firstPos := p + 1
		begin, end := siblingRange(&it.louds, firstPos)

		b := query[i]
		lo, hi := begin, end
		found := false
		for lo < hi {
			mid := lo + (hi-lo)/2
			switch {
			case it.labels[mid] == b:
				nodeID = mid
				found = true
				lo = hi
			case it.labels[mid] < b:
				lo = mid + 1
			default:
				hi = mid
			}
		}
		if !found {
			return NotFound
		}
		i++

		if it.linkBits.Get(nodeID) {
			tailID := it.links.Get(it.linkBits.Rank1(nodeID))
			tailPos, ok := it.tailBits.Select1(tailID)
			if !ok {
				return NotFound
			}
			for ; i < len(query); i++ {
				if it.tailBytes[tailPos] != query[i] {
					return NotFound
				}
				tailPos++
				if it.tailBits.Get(tailPos) {
					break
				}
			}
			if i == len(query) {
				return NotFound
			}
			i++
		}
	}
	if !it.outs.Get(nodeID) {
		return NotFound
	}
	return it.outs.Rank1(nodeID)
}

func (it *IndirectTrie) ReverseLookup(id uint64) []byte {
	if id >= it.nKeys {
		panic("trie: ReverseLookup id out of range")
	}
	nodeID, ok := it.outs.Select1(id)
	if !ok {
		panic("trie: corrupt indirect trie")
	}
	var key []byte
	for nodeID != 0 {
		if it.linkBits.Get(nodeID) {
			tailID := it.links.Get(it.linkBits.Rank1(nodeID))
			tailPos, ok := it.tailBits.Select1(tailID + 1)
			if !ok {
				panic("trie: corrupt indirect trie")
			}
			for {
				tailPos--
				key = append(key, it.tailBytes[tailPos])
				if it.tailBits.Get(tailPos) {
					break
				}
			}
		}
		key = append(key, it.labels[nodeID])
		pos, ok := it.louds.Select0(nodeID)
		if !ok {
			panic("trie: corrupt indirect trie")
		}
		nodeID = pos - nodeID - 1
	}
	reverseBytes(key)
	return key
}

func (it *IndirectTrie) NKeys() uint64  { return it.nKeys }
func (it *IndirectTrie) NNodes() uint64 { return it.nNodes }
func (it *IndirectTrie) Size() uint64   { return it.size }
func (it *IndirectTrie) String() string {
	return summary(it.Name(), it.nKeys, it.nNodes, it.size)
}

func (it *IndirectTrie) Stats() Stats {
	return Stats{
		NNodes: it.nNodes,
		NKeys:  it.nKeys,
		Bytes: map[string]uint64{
			"louds":     it.louds.Size(),
			"outs":      it.outs.Size(),
			"linkBits":  it.linkBits.Size(),
			"links":     it.links.Size(),
			"labels":    uint64(len(it.labels)),
			"tailBits":  it.tailBits.Size(),
			"tailBytes": uint64(len(it.tailBytes)),
		},
	}
}
