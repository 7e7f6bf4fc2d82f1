package trie

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func allVariants() map[string]func() Trie {
	return map[string]func() Trie{
		"level":    func() Trie { return NewLevelTrie() },
		"flat":     func() Trie { return NewFlatTrie() },
		"patricia": func() Trie { return NewPatriciaTrie() },
		"indirect": func() Trie { return NewIndirectTrie() },
		"tst":      func() Trie { return NewTSTTrie() },
	}
}

func sortedUnique(keys []string) [][]byte {
	sort.Strings(keys)
	out := make([][]byte, 0, len(keys))
	for i, k := range keys {
		if i > 0 && k == keys[i-1] {
			continue
		}
		out = append(out, []byte(k))
	}
	return out
}

// checkTrie verifies, for one built trie over the given key set, the NKeys
// and Stats accounting, that every key round-trips through Lookup and
// ReverseLookup, and that no two keys share an id. Negative lookups are
// checked by runScenario.
func checkTrie(t *testing.T, name string, tr Trie, keys [][]byte) {
	t.Helper()

	require.EqualValues(t, len(keys), tr.NKeys(), "%s: NKeys", name)

	stats := tr.Stats()
	require.Equal(t, tr.NNodes(), stats.NNodes, "%s: Stats.NNodes vs NNodes", name)
	require.Equal(t, tr.NKeys(), stats.NKeys, "%s: Stats.NKeys vs NKeys", name)
	var statsTotal uint64
	for _, n := range stats.Bytes {
		statsTotal += n
	}
	require.Equal(t, tr.Size(), statsTotal, "%s: Stats.Bytes should sum to Size", name)

	seen := make(map[uint64]bool, len(keys))
	for _, k := range keys {
		id := tr.Lookup(k)
		require.NotEqual(t, NotFound, id, "%s: Lookup(%q) missed", name, k)
		require.False(t, seen[id], "%s: id %d assigned to two keys", name, id)
		seen[id] = true

		got := tr.ReverseLookup(id)
		require.Equal(t, k, got, "%s: ReverseLookup(%d)", name, id)
	}
}

func runScenario(t *testing.T, name string, keys [][]byte, negatives [][]byte) {
	for variantName, ctor := range allVariants() {
		t.Run(fmt.Sprintf("%s/%s", name, variantName), func(t *testing.T) {
			tr := ctor()
			err := tr.Build(keys)
			require.NoError(t, err)

			checkTrie(t, variantName, tr, keys)

			for _, neg := range negatives {
				require.Equal(t, NotFound, tr.Lookup(neg), "%s: unexpected hit for %q", variantName, neg)
			}

			require.NotZero(t, tr.Size())
			require.Contains(t, tr.String(), tr.Name())
		})
	}
}

func TestEmptyKeyAndSingleByte(t *testing.T) {
	t.Parallel()
	keys := sortedUnique([]string{"", "a"})
	runScenario(t, "empty-and-a", keys, [][]byte{[]byte("b"), []byte("aa")})
}

func TestSharedPrefixTails(t *testing.T) {
	t.Parallel()
	keys := sortedUnique([]string{"car", "card", "care", "cat"})
	runScenario(t, "shared-prefix", keys, [][]byte{[]byte("ca"), []byte("cars"), []byte("care2"), []byte("ct")})
}

func TestSingleLongChain(t *testing.T) {
	t.Parallel()
	keys := sortedUnique([]string{"abcdefghijklmnopqrstuvwxyz"})
	runScenario(t, "long-chain", keys, [][]byte{[]byte("abcdefghijklmnopqrstuvwxy"), []byte("abcdefghijklmnopqrstuvwxyzz")})
}

func TestByteValueBoundaries(t *testing.T) {
	t.Parallel()
	keys := sortedUnique([]string{"\x00", "\x00\x00", "\xff", "\xff\xff", "\x00\xff"})
	runScenario(t, "byte-boundaries", keys, [][]byte{{0x01}, {0xfe}})
}

func TestAdversarialFanOut(t *testing.T) {
	t.Parallel()
	var ks []string
	for b := 0; b < 256; b++ {
		ks = append(ks, "a"+string([]byte{byte(b)}))
	}
	keys := sortedUnique(ks)
	runScenario(t, "fan-out", keys, [][]byte{[]byte("a"), []byte("b\x00")})
}

func TestLargeRandomizedSet(t *testing.T) {
	prng := rand.New(rand.NewPCG(7, 11))
	seen := make(map[string]bool)
	var ks []string
	for len(ks) < 100_000 {
		n := 1 + prng.IntN(24)
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(prng.IntN(256))
		}
		s := string(b)
		if seen[s] {
			continue
		}
		seen[s] = true
		ks = append(ks, s)
	}
	keys := sortedUnique(ks)

	for variantName, ctor := range allVariants() {
		variantName, ctor := variantName, ctor
		t.Run(variantName, func(t *testing.T) {
			t.Parallel()
			tr := ctor()
			require.NoError(t, tr.Build(keys))
			checkTrie(t, variantName, tr, keys)
		})
	}
}

func TestNegativeLookupOnPrefixAndExtension(t *testing.T) {
	t.Parallel()
	keys := sortedUnique([]string{"apple", "application", "apply"})
	runScenario(t, "prefix-extension", keys, [][]byte{
		[]byte("app"), []byte("appl"), []byte("applesauce"), []byte("z"),
	})
}

func TestSizeGrowsWithKeyCount(t *testing.T) {
	t.Parallel()
	small := sortedUnique([]string{"a", "b", "c"})
	var large []string
	for i := 0; i < 500; i++ {
		large = append(large, fmt.Sprintf("key-%04d", i))
	}
	largeKeys := sortedUnique(large)

	for variantName, ctor := range allVariants() {
		s := ctor()
		require.NoError(t, s.Build(small))
		l := ctor()
		require.NoError(t, l.Build(largeKeys))
		require.Greaterf(t, l.Size(), s.Size(), "%s: size should grow with key count", variantName)
	}
}

func TestBuildTwicePanics(t *testing.T) {
	t.Parallel()
	for variantName, ctor := range allVariants() {
		tr := ctor()
		require.NoError(t, tr.Build(sortedUnique([]string{"a", "b"})))
		require.Panicsf(t, func() { _ = tr.Build(sortedUnique([]string{"c"})) }, "%s", variantName)
	}
}

func TestUnsortedInputRejectedUnderStrict(t *testing.T) {
	old := Strict
	Strict = true
	defer func() { Strict = old }()

	for variantName, ctor := range allVariants() {
		tr := ctor()
		err := tr.Build([][]byte{[]byte("b"), []byte("a")})
		require.Errorf(t, err, "%s", variantName)
		var precondErr *PreconditionError
		require.ErrorAs(t, err, &precondErr)
	}
}
