package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"testing"
)

func TestDraw(t *testing.T) {
	tests := []struct {
		name       string
		serverSeed string
		clientSeed string
		nonce      uint64
		index      int
		want       uint64
	}{
		{"first index", "s", "c", 1, 0, 15270763183854562770},
		{"second index", "s", "c", 1, 1, 13833336177918541384},
		{"third index", "s", "c", 1, 2, 13999254658591592798},
		{"last deck index", "s", "c", 1, 51, 2366042796836580427},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Draw(tt.serverSeed, tt.clientSeed, tt.nonce, tt.index)
			if got != tt.want {
				t.Errorf("Draw() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHMACMessageFormat(t *testing.T) {
	// Message format is exactly: ${clientSeed}:${nonce}:${index}
	serverSeed := "test_server"
	clientSeed := "test_client"
	nonce := uint64(123)

	for _, index := range []int{0, 7, 51} {
		h := hmac.New(sha256.New, []byte(serverSeed))
		h.Write([]byte(fmt.Sprintf("%s:%d:%d", clientSeed, nonce, index)))
		want := binary.BigEndian.Uint64(h.Sum(nil)[:8])

		if got := Draw(serverSeed, clientSeed, nonce, index); got != want {
			t.Errorf("index %d: Draw() = %d, manual HMAC = %d", index, got, want)
		}
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		name string
		u    uint64
		n    int
		want int
	}{
		{"zero draw", 0, 52, 0},
		{"max draw clamps", math.MaxUint64, 52, 51},
		{"just under max", math.MaxUint64 - 1, 52, 51},
		{"half of two", math.MaxUint64 / 2, 2, 0},
		{"half plus one of two", math.MaxUint64/2 + 1, 2, 1},
		{"single slot", 12345, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scale(tt.u, tt.n); got != tt.want {
				t.Errorf("scale(%d, %d) = %d, want %d", tt.u, tt.n, got, tt.want)
			}
		})
	}
}

func TestPermutationIsPermutation(t *testing.T) {
	for nonce := uint64(0); nonce < 200; nonce++ {
		seeds := Seeds{Server: fmt.Sprintf("server-%d", nonce%7), Client: "client"}
		perm := Permutation(seeds, nonce, 52)

		if len(perm) != 52 {
			t.Fatalf("nonce %d: got %d entries, want 52", nonce, len(perm))
		}
		seen := make(map[int]bool, 52)
		for _, v := range perm {
			if v < 0 || v >= 52 {
				t.Fatalf("nonce %d: index %d out of range", nonce, v)
			}
			if seen[v] {
				t.Fatalf("nonce %d: duplicate index %d", nonce, v)
			}
			seen[v] = true
		}
	}
}

func TestDeterministicShuffle(t *testing.T) {
	seeds := Seeds{Server: "deterministic_test", Client: "client_test"}
	nonce := uint64(42)

	first := Permutation(seeds, nonce, 52)
	second := Permutation(seeds, nonce, 52)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("position %d differs: %d != %d", i, first[i], second[i])
		}
	}
}

func TestShuffleInputsChangeOrder(t *testing.T) {
	base := Permutation(Seeds{Server: "s", Client: "c"}, 1, 52)
	variants := map[string][]int{
		"nonce":  Permutation(Seeds{Server: "s", Client: "c"}, 2, 52),
		"client": Permutation(Seeds{Server: "s", Client: "d"}, 1, 52),
		"server": Permutation(Seeds{Server: "t", Client: "c"}, 1, 52),
	}

	for name, perm := range variants {
		same := true
		for i := range base {
			if base[i] != perm[i] {
				same = false
				break
			}
		}
		if same {
			t.Errorf("changing %s produced an identical order", name)
		}
	}
}

func TestShuffleDoesNotMutateInput(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	_ = Shuffle(Seeds{Server: "s", Client: "c"}, 1, items)

	want := []string{"a", "b", "c", "d", "e"}
	for i := range items {
		if items[i] != want[i] {
			t.Fatalf("input mutated at %d: %q", i, items[i])
		}
	}
}

func TestShuffleEmptyAndSingle(t *testing.T) {
	if got := Shuffle(Seeds{Server: "s", Client: "c"}, 1, []int{}); len(got) != 0 {
		t.Errorf("empty shuffle returned %v", got)
	}
	if got := Shuffle(Seeds{Server: "s", Client: "c"}, 1, []int{9}); len(got) != 1 || got[0] != 9 {
		t.Errorf("single shuffle returned %v", got)
	}
}
