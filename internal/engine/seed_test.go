package engine

import (
	"strings"
	"testing"
)

func TestHashServerSeed(t *testing.T) {
	tests := []struct {
		seed string
		want string
	}{
		{"s", "043a718774c572bd8a25adbeb1bfcd5c0256ae11cecf9f9c3f925d0e52beaf89"},
		{
			"fb30c5e2bbd8537b76c6df8e8e86533121cbeeae0bda9d306117147e656ad46e",
			"834081bce6232c7c2f931c72f24d5feb28a167d1352d00d801c241c8c75d30b1",
		},
	}

	for _, tt := range tests {
		if got := HashServerSeed(tt.seed); got != tt.want {
			t.Errorf("HashServerSeed(%q) = %s, want %s", tt.seed, got, tt.want)
		}
	}
}

func TestNewServerSeed(t *testing.T) {
	seed, hash, err := NewServerSeed()
	if err != nil {
		t.Fatalf("NewServerSeed() error: %v", err)
	}
	if len(seed) != ServerSeedBytes*2 {
		t.Errorf("seed length = %d, want %d hex chars", len(seed), ServerSeedBytes*2)
	}
	if hash != HashServerSeed(seed) {
		t.Error("returned hash does not commit to returned seed")
	}

	other, _, err := NewServerSeed()
	if err != nil {
		t.Fatalf("NewServerSeed() error: %v", err)
	}
	if other == seed {
		t.Error("two server seeds were identical")
	}
}

func TestVerifyServerSeed(t *testing.T) {
	seed := "fb30c5e2bbd8537b76c6df8e8e86533121cbeeae0bda9d306117147e656ad46e"
	hash := HashServerSeed(seed)

	if !VerifyServerSeed(seed, hash) {
		t.Error("expected matching seed to verify")
	}
	if !VerifyServerSeed(seed, strings.ToUpper(hash)) {
		t.Error("expected uppercase hash to verify")
	}

	// Flip every bit of the seed one at a time.
	raw := []byte(seed)
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			altered := make([]byte, len(raw))
			copy(altered, raw)
			altered[i] ^= 1 << bit
			if VerifyServerSeed(string(altered), hash) {
				t.Fatalf("altered seed (byte %d bit %d) verified", i, bit)
			}
		}
	}
}
