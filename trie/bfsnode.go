package trie

import "github.com/trieeval/trieeval/internal/levels"

// firstChildPos returns the position, in lvl's LOUDS bit-vector, where the
// sibling run belonging to parent node nodeID begins. Every node
// contributes exactly one run to its children's level, even if that run is
// just the lone terminator bit for a childless node.
func firstChildPos(lvl *levels.Level, nodeID uint64) uint64 {
	if nodeID == 0 {
		return 0
	}
	pos, ok := lvl.Louds.Select1(nodeID - 1)
	if !ok {
		panic("trie: corrupt source trie")
	}
	return pos + 1
}

// bfsNode is the breadth-first work item shared by the flat, Patricia and
// Indirect emitters: a position within one level's sibling run still to be
// walked and re-emitted into the compact encoding.
type bfsNode struct {
	levelID int
	nodePos uint64
}
