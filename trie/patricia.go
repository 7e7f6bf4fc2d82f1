package trie

import (
	"github.com/oleiade/lane"

	"github.com/trieeval/trieeval/bitvector"
	"github.com/trieeval/trieeval/internal/levels"
)

// PatriciaTrie is the flat LOUDS trie with Patricia-style compression:
// maximal unary chains (a run of single-child, non-terminal nodes) are
// folded out of the node structure entirely and stored instead as a byte
// run in an inline tail pool, with one tail per compressed node.
type PatriciaTrie struct {
	louds     bitvector.BitVector
	outs      bitvector.BitVector
	links     bitvector.BitVector
	labels    []byte
	tailBits  bitvector.BitVector
	tailBytes []byte

	nKeys, nNodes, size uint64
	built               bool
}

func NewPatriciaTrie() *PatriciaTrie { return &PatriciaTrie{} }

func (pt *PatriciaTrie) Name() string { return "LOUDS trie + labels" }

// absorbChain walks the maximal unary, non-terminal chain starting at
// (levelID, nodeID) in the source per-level trie, returning the landing
// node (the first terminal node or branching point reached) and the bytes
// absorbed along the way.
func absorbChain(src *levels.Trie, levelID int, nodeID uint64) (landLevelID int, landNodeID uint64, tail []byte) {
	landLevelID, landNodeID = levelID, nodeID
	for {
		lvl := &src.Levels[landLevelID]
		if lvl.Outs.Get(landNodeID) {
			return
		}
		childLvl := &src.Levels[landLevelID+1]
		childStart := firstChildPos(childLvl, landNodeID)
		if !childLvl.Louds.Get(childStart + 1) {
			return // more than one child: a branching point, not a chain link
		}
		childNodeID := childStart - childLvl.Louds.Rank1(childStart)
		tail = append(tail, childLvl.Labels[childNodeID])
		landLevelID++
		landNodeID = childNodeID
	}
}

func (pt *PatriciaTrie) Build(keys [][]byte) error {
	if pt.built {
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

	pt.louds.Add(false)
	pt.louds.Add(true)
	pt.outs.Add(src.Levels[0].Outs.Get(0))
	pt.links.Add(false)
	pt.labels = append(pt.labels, ' ')

	q := lane.NewQueue()
	if len(src.Levels) > 1 {
		q.Enqueue(bfsNode{1, 0})
	}
	for !q.Empty() {
		node := q.Dequeue().(bfsNode)
		lvl := &src.Levels[node.levelID]
		pos := node.nodePos
		for !lvl.Louds.Get(pos) {
			pt.louds.Add(false)
			nodeID := pos - lvl.Louds.Rank1(pos)
			pt.labels = append(pt.labels, lvl.Labels[nodeID])

			landLevelID, landNodeID, tail := absorbChain(src, node.levelID, nodeID)
			for i, b := range tail {
				pt.tailBits.Add(i == 0)
				pt.tailBytes = append(pt.tailBytes, b)
			}
			pt.links.Add(len(tail) > 0)

			landLvl := &src.Levels[landLevelID]
			if landLevelID+1 < len(src.Levels) {
				childStart := firstChildPos(&src.Levels[landLevelID+1], landNodeID)
				// every node gets a run, a lone 1 for a leaf, so that
				// run n+1 holds node n's children
				q.Enqueue(bfsNode{landLevelID + 1, childStart})
			}
			pt.outs.Add(landLvl.Outs.Get(landNodeID))
			pos++
		}
		pt.louds.Add(true)
	}

	pt.louds.Build()
	pt.outs.Build()
	pt.links.Build()
	pt.tailBits.Add(true)
	pt.tailBits.Build()

	pt.nKeys = src.NKeys
	pt.nNodes = src.NNodes
	pt.size = pt.louds.Size() + pt.outs.Size() + pt.links.Size() +
		uint64(len(pt.labels)) + pt.tailBits.Size() + uint64(len(pt.tailBytes))
	pt.built = true
	return nil
}

func (pt *PatriciaTrie) Lookup(query []byte) uint64 {
	nodeID := uint64(0)
	i := 0
	for i < len(query) {
		p, ok := pt.louds.Select1(nodeID)
		if !ok {
			return NotFound
		}
		firstPos := p + 1
		begin, end := siblingRange(&pt.louds, firstPos)

		b := query[i]
		lo, hi := begin, end
		found := false
		for lo < hi {
			mid := lo + (hi-lo)/2
			switch {
			case pt.labels[mid] == b:
				nodeID = mid
				found = true
				lo = hi
			case pt.labels[mid] < b:
				lo = mid + 1
			default:
				hi = mid
			}
		}
		if !found {
			return NotFound
		}
		i++

		if pt.links.Get(nodeID) {
			tailID := pt.links.Rank1(nodeID)
			tailPos, ok := pt.tailBits.Select1(tailID)
			if !ok {
				return NotFound
			}
			for ; i < len(query); i++ {
				if pt.tailBytes[tailPos] != query[i] {
					return NotFound
				}
				tailPos++
				if pt.tailBits.Get(tailPos) {
					break
				}
			}
			if i == len(query) {
				return NotFound
			}
			i++
		}
	}
	if !pt.outs.Get(nodeID) {
		return NotFound
	}
	return pt.outs.Rank1(nodeID)
}

func (pt *PatriciaTrie) ReverseLookup(id uint64) []byte {
	if id >= pt.nKeys {
		panic("trie: ReverseLookup id out of range")
	}
	nodeID, ok := pt.outs.Select1(id)
	if !ok {
		panic("trie: corrupt patricia trie")
	}
	var key []byte
	for nodeID != 0 {
		if pt.links.Get(nodeID) {
			tailID := pt.links.Rank1(nodeID)
			tailPos, ok := pt.tailBits.Select1(tailID + 1)
			if !ok {
				panic("trie: corrupt patricia trie")
			}
			for {
				tailPos--
				key = append(key, pt.tailBytes[tailPos])
				if pt.tailBits.Get(tailPos) {
					break
				}
			}
		}
		key = append(key, pt.labels[nodeID])
		pos, ok := pt.louds.Select0(nodeID)
		if !ok {
			panic("trie: corrupt patricia trie")
		}
		nodeID = pos - nodeID - 1
	}
	reverseBytes(key)
	return key
}

func (pt *PatriciaTrie) NKeys() uint64  { return pt.nKeys }
func (pt *PatriciaTrie) NNodes() uint64 { return pt.nNodes }
func (pt *PatriciaTrie) Size() uint64   { return pt.size }
func (pt *PatriciaTrie) String() string {
	return summary(pt.Name(), pt.nKeys, pt.nNodes, pt.size)
}

func (pt *PatriciaTrie) Stats() Stats {
	return Stats{
		NNodes: pt.nNodes,
		NKeys:  pt.nKeys,
		Bytes: map[string]uint64{
			"louds":     pt.louds.Size(),
			"outs":      pt.outs.Size(),
			"links":     pt.links.Size(),
			"labels":    uint64(len(pt.labels)),
			"tailBits":  pt.tailBits.Size(),
			"tailBytes": uint64(len(pt.tailBytes)),
		},
	}
}
