package intvector

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSetRoundTrip(t *testing.T) {
	t.Parallel()

	prng := rand.New(rand.NewPCG(7, 9))
	const n = 2000
	for _, maxValue := range []uint64{0, 1, 2, 255, 256, 1023, 1 << 20, 1<<40 - 1} {
		var iv IntVector
		iv.Init(n, maxValue)
		want := make([]uint64, n)
		mask := uint64(1)<<iv.Width() - 1
		for i := range want {
			v := prng.Uint64() & mask
			want[i] = v
			iv.Set(uint64(i), v)
		}
		for i, v := range want {
			require.EqualValuesf(t, v, iv.Get(uint64(i)), "maxValue=%d i=%d", maxValue, i)
		}
	}
}

func TestAddGrows(t *testing.T) {
	t.Parallel()

	var iv IntVector
	iv.Init(0, 1000)
	for i := uint64(0); i < 500; i++ {
		iv.Add(i % 1001)
	}
	require.EqualValues(t, 500, iv.Len())
	for i := uint64(0); i < 500; i++ {
		require.EqualValues(t, i%1001, iv.Get(i))
	}
}

func TestBreakdownSumsToSize(t *testing.T) {
	t.Parallel()

	var iv IntVector
	iv.Init(200, 1<<20)
	breakdown := iv.Breakdown()
	var total uint64
	for _, n := range breakdown {
		total += n
	}
	require.Equal(t, iv.Size(), total)
	require.Contains(t, breakdown, "words")
}

func TestZeroWidthStillAddressable(t *testing.T) {
	t.Parallel()

	var iv IntVector
	iv.Init(10, 0)
	require.EqualValues(t, 1, iv.Width())
	for i := uint64(0); i < 10; i++ {
		require.EqualValues(t, 0, iv.Get(i))
	}
}
