package engine

// Seeds is the (server, client) seed pair that keys a shuffle.
type Seeds struct {
	Server string `json:"server"` // ASCII; do NOT hex-decode
	Client string `json:"client"`
}

// MaxClientSeedLen bounds the client seed so the HMAC message stays small.
const MaxClientSeedLen = 128
