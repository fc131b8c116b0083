package engine

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// ServerSeedBytes is the entropy of a freshly minted server seed.
const ServerSeedBytes = 32

// NewServerSeed mints a server seed and its commitment hash. The seed is the
// hex encoding of ServerSeedBytes random bytes; callers must not expose it
// until the hand it keys has resolved.
func NewServerSeed() (seed string, hash string, err error) {
	buf := make([]byte, ServerSeedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("engine: generate server seed: %w", err)
	}
	seed = hex.EncodeToString(buf)
	return seed, HashServerSeed(seed), nil
}

// HashServerSeed returns the lowercase hex SHA-256 of the seed's bytes.
// The same function produces the commitment and checks it at verification.
func HashServerSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// VerifyServerSeed reports whether seed hashes to the committed hash.
func VerifyServerSeed(seed, hash string) bool {
	want := strings.ToLower(strings.TrimSpace(hash))
	got := HashServerSeed(seed)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
