package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var idAdjectives = []string{
	"amber", "bold", "bright", "calm", "clear", "cool", "crisp",
	"deep", "fresh", "gold", "green", "keen", "light", "mild",
	"pale", "quiet", "rare", "ripe", "soft", "still", "swift",
	"teal", "warm", "wise",
}

var idNouns = []string{
	"birch", "brook", "cliff", "cloud", "cove", "crane", "delta",
	"ember", "fern", "finch", "glen", "hawk", "lark", "maple",
	"otter", "peak", "raven", "reef", "ridge", "spark", "stone",
	"tide", "vale", "wave",
}

// GenerateWordID returns a human-friendly session ID in the form
// "adjective-noun-noun".
func GenerateWordID() string {
	return fmt.Sprintf("%s-%s-%s", pickRandom(idAdjectives), pickRandom(idNouns), pickRandom(idNouns))
}

func pickRandom(words []string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		// crypto/rand only fails when the system entropy source is broken.
		return words[0]
	}
	return words[n.Int64()]
}
