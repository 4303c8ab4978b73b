package sequence

import (
	"math/rand"
	"time"
)

// NewRand returns a random source for seed; zero seeds from the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// shuffle permutes items in place with Fisher-Yates.
func shuffle[T any](rnd *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
