package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/bits"
	"strconv"
)

// Draw returns the draw for one Fisher-Yates step: the first 8 bytes
// (big-endian) of HMAC-SHA256 keyed by the server seed over
// "clientSeed:nonce:index".
func Draw(serverSeed, clientSeed string, nonce uint64, index int) uint64 {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(drawMessage(clientSeed, nonce, index)))
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}

func drawMessage(clientSeed string, nonce uint64, index int) string {
	buf := make([]byte, 0, len(clientSeed)+32)
	buf = append(buf, clientSeed...)
	buf = append(buf, ':')
	buf = strconv.AppendUint(buf, nonce, 10)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(index), 10)
	return string(buf)
}

// scale maps a draw u onto [0, n) as floor(u * n / (2^64 - 1)).
// The product is computed in 128 bits so no floating point rounding is
// involved. u == 2^64-1 would land on n itself and is clamped to n-1.
func scale(u uint64, n int) int {
	if n <= 1 {
		return 0
	}
	hi, lo := bits.Mul64(u, uint64(n))
	q, _ := bits.Div64(hi, lo, math.MaxUint64)
	if q >= uint64(n) {
		return n - 1
	}
	return int(q)
}

// Shuffle returns a copy of items permuted by a Fisher-Yates pass driven by
// the seeds and nonce. The pass walks from the last index down to 1,
// swapping i with scale(Draw(i), i+1). items is not modified.
func Shuffle[T any](seeds Seeds, nonce uint64, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)

	for i := len(out) - 1; i > 0; i-- {
		j := scale(Draw(seeds.Server, seeds.Client, nonce, i), i+1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Permutation returns the shuffled order of the indices 0..n-1.
func Permutation(seeds Seeds, nonce uint64, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return Shuffle(seeds, nonce, idx)
}
