// Package bitvector implements an append-only bit vector with O(1) rank
// and sampled select, backed by a two-level popcount index.
//
// A BitVector is built in two phases: bits are appended one at a time with
// Add, then Build walks the stored words once to compute the rank index and
// the select samples. Rank and Select are only valid after Build; querying
// before Build panics, mirroring the grow-then-freeze discipline used
// throughout this module.
package bitvector

import "math/bits"

const (
	wordBits  = 64
	blockBits = 256 // 4 words per rank/select block
	wordsPerBlock = blockBits / wordBits
	sampleRate = 256 // select sample every 256th one / zero
)

// block holds the cumulative rank at the start of a 256-bit block (abs) plus
// the relative rank at the start of each of the block's last three words
// (rels), so that rank1 never has to re-scan more than one word plus three
// byte-sized additions.
type block struct {
	absHi uint32
	absLo uint8
	rels  [wordsPerBlock - 1]uint8
}

func (b block) abs() uint64 { return uint64(b.absHi)<<8 | uint64(b.absLo) }

func (b *block) setAbs(n uint64) {
	b.absHi = uint32(n >> 8)
	b.absLo = uint8(n)
}

// BitVector is a growable sequence of bits supporting rank and select once
// built. The zero value is an empty, buildable BitVector.
type BitVector struct {
	words []uint64
	nBits uint64

	built   bool
	nOnes   uint64
	nZeros  uint64
	blocks  []block
	select1 []uint64 // select1[k] = bit position of the (sampleRate*(k+1))-th one
	select0 []uint64 // select0[k] = bit position of the (sampleRate*(k+1))-th zero
}

// Len reports the number of bits appended so far.
func (bv *BitVector) Len() uint64 { return bv.nBits }

// Add appends a single bit. Add may only be called before Build.
func (bv *BitVector) Add(bit bool) {
	if bv.built {
		panic("bitvector: Add after Build")
	}
	wordIdx := bv.nBits / wordBits
	if wordIdx >= uint64(len(bv.words)) {
		bv.words = append(bv.words, 0)
	}
	if bit {
		bv.words[wordIdx] |= uint64(1) << (bv.nBits % wordBits)
	}
	bv.nBits++
}

// Set assigns the bit at position i. Set may only be called before Build,
// on a position already covered by prior Add calls.
func (bv *BitVector) Set(i uint64, bit bool) {
	if bv.built {
		panic("bitvector: Set after Build")
	}
	if i >= bv.nBits {
		panic("bitvector: Set out of range")
	}
	wordIdx := i / wordBits
	mask := uint64(1) << (i % wordBits)
	if bit {
		bv.words[wordIdx] |= mask
	} else {
		bv.words[wordIdx] &^= mask
	}
}

// Get returns the bit at position i. Get is valid before and after Build.
func (bv *BitVector) Get(i uint64) bool {
	if i >= bv.nBits {
		panic("bitvector: Get out of range")
	}
	return bv.words[i/wordBits]&(uint64(1)<<(i%wordBits)) != 0
}

// Words exposes the raw underlying storage for callers that need to scan
// forward past the indexed structure (the flat and Patricia-style tries use
// this to find a sibling run's terminating bit without per-bit Get calls).
func (bv *BitVector) Words() []uint64 { return bv.words }

// Build computes the rank index and select samples from the bits appended
// so far. Build is idempotent only in the sense that calling it twice
// recomputes the same index from the same words; Add/Set are forbidden
// after the first call.
func (bv *BitVector) Build() {
	nWords := len(bv.words)
	nBlocks := (nWords + wordsPerBlock - 1) / wordsPerBlock
	if nBlocks == 0 {
		nBlocks = 0
	}
	bv.blocks = make([]block, nBlocks+1)
	bv.select1 = bv.select1[:0]
	bv.select0 = bv.select0[:0]

	var ones, zeros uint64
	nextOne := uint64(sampleRate)
	nextZero := uint64(sampleRate)

	for w := 0; w < nWords; w++ {
		blockIdx := w / wordsPerBlock
		relIdx := w % wordsPerBlock
		if relIdx == 0 {
			bv.blocks[blockIdx].setAbs(ones)
		} else {
			bv.blocks[blockIdx].rels[relIdx-1] = uint8(ones - bv.blocks[blockIdx].abs())
		}

		word := bv.words[w]
		validBits := uint64(wordBits)
		if w == nWords-1 {
			rem := bv.nBits - uint64(w)*wordBits
			validBits = rem
			if rem < wordBits {
				word &= (uint64(1) << rem) - 1
			}
		}
		wOnes := uint64(bits.OnesCount64(word))
		wZeros := validBits - wOnes

		for ones+wOnes >= nextOne {
			pos := uint64(w)*wordBits + nthSetBit(word, nextOne-ones)
			bv.select1 = append(bv.select1, pos)
			nextOne += sampleRate
		}
		inv := ^word
		if validBits < wordBits {
			inv &= (uint64(1) << validBits) - 1
		}
		for zeros+wZeros >= nextZero {
			pos := uint64(w)*wordBits + nthSetBit(inv, nextZero-zeros)
			bv.select0 = append(bv.select0, pos)
			nextZero += sampleRate
		}

		ones += wOnes
		zeros += wZeros
	}
	// A last block with fewer than four words still needs rels for the
	// absent words, so that Rank1 at a word boundary inside it is correct.
	for w := nWords; w%wordsPerBlock != 0; w++ {
		b := &bv.blocks[w/wordsPerBlock]
		b.rels[w%wordsPerBlock-1] = uint8(ones - b.abs())
	}
	bv.blocks[nBlocks].setAbs(ones)
	bv.nOnes, bv.nZeros = ones, zeros
	bv.built = true
}

// nthSetBit returns the bit position (0..63) of the n-th set bit (1-indexed)
// in word. Callers guarantee word has at least n set bits.
func nthSetBit(word uint64, n uint64) uint64 {
	for i := uint64(1); i < n; i++ {
		word &= word - 1 // clear the lowest set bit
	}
	return uint64(bits.TrailingZeros64(word))
}

// Rank1 returns the number of one-bits in [0, i).
func (bv *BitVector) Rank1(i uint64) uint64 {
	bv.mustBuilt()
	wordIdx := i / wordBits
	blockIdx := wordIdx / wordsPerBlock
	relIdx := wordIdx % wordsPerBlock

	n := bv.blocks[blockIdx].abs()
	if relIdx > 0 {
		n += uint64(bv.blocks[blockIdx].rels[relIdx-1])
	}
	bitIdx := i % wordBits
	if bitIdx > 0 {
		n += uint64(bits.OnesCount64(bv.words[wordIdx] & ((uint64(1) << bitIdx) - 1)))
	}
	return n
}

// Rank0 returns the number of zero-bits in [0, i).
func (bv *BitVector) Rank0(i uint64) uint64 {
	return i - bv.Rank1(i)
}

// Select1 returns the position of the i-th one-bit (0-indexed): the unique
// position p with Rank1(p) == i and Get(p) == true. ok is false if there is
// no such bit.
func (bv *BitVector) Select1(i uint64) (pos uint64, ok bool) {
	bv.mustBuilt()
	return bv.selectNth(i, bv.nOnes, bv.select1, true)
}

// Select0 returns the position of the i-th zero-bit (0-indexed), symmetric
// to Select1.
func (bv *BitVector) Select0(i uint64) (pos uint64, ok bool) {
	bv.mustBuilt()
	return bv.selectNth(i, bv.nZeros, bv.select0, false)
}

func (bv *BitVector) selectNth(i, total uint64, samples []uint64, wantOne bool) (uint64, bool) {
	target := i + 1 // 1-indexed count of the bit we are looking for
	if target > total {
		return 0, false
	}

	sampleIdx := (target - 1) / sampleRate
	loBit := uint64(0)
	if sampleIdx > 0 {
		loBit = samples[sampleIdx-1] + 1
	}
	loBlock := loBit / blockBits
	hiBlock := uint64(len(bv.blocks) - 1)
	if sampleIdx < uint64(len(samples)) {
		hiBlock = samples[sampleIdx] / blockBits
	}

	// binary search for the last block whose cumulative count (of the
	// requested bit kind) is still < target
	blockCount := func(b uint64) uint64 {
		if wantOne {
			return bv.blocks[b].abs()
		}
		return b*blockBits - bv.blocks[b].abs()
	}
	lo, hi := loBlock, hiBlock+1
	for lo < hi {
		mid := lo + (hi-lo)/2
		if blockCount(mid) < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	blockIdx := lo - 1

	base := blockCount(blockIdx)
	need := target - base
	firstWord := blockIdx * wordsPerBlock
	for w := firstWord; w < firstWord+wordsPerBlock && w < uint64(len(bv.words)); w++ {
		word := bv.words[w]
		validBits := uint64(wordBits)
		if w == uint64(len(bv.words))-1 {
			rem := bv.nBits - w*wordBits
			if rem < wordBits {
				validBits = rem
				word &= (uint64(1) << rem) - 1
			}
		}
		var count uint64
		if wantOne {
			count = uint64(bits.OnesCount64(word))
		} else {
			inv := ^word & ((uint64(1) << validBits) - 1)
			count = uint64(bits.OnesCount64(inv))
		}
		if need <= count {
			if !wantOne {
				word = ^word & ((uint64(1) << validBits) - 1)
			}
			return w*wordBits + nthSetBit(word, need), true
		}
		need -= count
	}
	return 0, false
}

func (bv *BitVector) mustBuilt() {
	if !bv.built {
		panic("bitvector: Rank/Select called before Build")
	}
}

// Size reports the approximate in-memory footprint in bytes: the raw words
// plus the rank index and select samples.
func (bv *BitVector) Size() uint64 {
	var total uint64
	for _, n := range bv.Breakdown() {
		total += n
	}
	return total
}

// Breakdown reports the same footprint as Size, split by sub-structure:
// the raw words, the rank index blocks, and the two select-sample arrays.
func (bv *BitVector) Breakdown() map[string]uint64 {
	return map[string]uint64{
		"words":   uint64(len(bv.words)) * 8,
		"blocks":  uint64(len(bv.blocks)) * 8, // absHi(4)+absLo(1)+rels(3), padded
		"select1": uint64(len(bv.select1)) * 8,
		"select0": uint64(len(bv.select0)) * 8,
	}
}
