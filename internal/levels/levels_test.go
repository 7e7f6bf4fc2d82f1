package levels

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func build(t *testing.T, keys []string) *Trie {
	t.Helper()
	sort.Strings(keys)
	tr := New()
	for _, k := range keys {
		tr.Add([]byte(k))
	}
	tr.Build()
	tr.AssignOffsets()
	return tr
}

func TestAddBuildsOneLevelPerDepth(t *testing.T) {
	t.Parallel()
	tr := build(t, []string{"car", "card", "care", "cat"})
	require.EqualValues(t, 4, tr.NKeys)
	// "car"/"card"/"care"/"cat" share a 2-byte prefix then diverge: depth
	// reaches 4 (card/care), so levels run from the super-root through
	// depth 4.
	require.GreaterOrEqual(t, len(tr.Levels), 5)
}

func TestOffsetsPartitionKeySpace(t *testing.T) {
	t.Parallel()
	tr := build(t, []string{"a", "ab", "abc", "b"})

	var total uint64
	for i := range tr.Levels {
		lvl := &tr.Levels[i]
		total += lvl.Outs.Rank1(lvl.Outs.Len())
	}
	require.EqualValues(t, tr.NKeys, total)

	// the last level's offset plus its own terminal count reaches NKeys
	// exactly.
	last := &tr.Levels[len(tr.Levels)-1]
	require.EqualValues(t, tr.NKeys, last.Offset+last.Outs.Rank1(last.Outs.Len()))
}

func TestBreakdownSumsToSize(t *testing.T) {
	t.Parallel()
	tr := build(t, []string{"car", "card", "care", "cat"})

	breakdown := tr.Breakdown()
	var total uint64
	for _, n := range breakdown {
		total += n
	}
	require.Equal(t, tr.Size(), total)
	require.Contains(t, breakdown, "louds")
	require.Contains(t, breakdown, "outs")
	require.Contains(t, breakdown, "labels")
}

func TestEmptyKeyTerminatesSuperRoot(t *testing.T) {
	t.Parallel()
	tr := build(t, []string{"", "x"})
	require.True(t, tr.Levels[0].Outs.Get(0))
	require.EqualValues(t, 2, tr.NKeys)
}
