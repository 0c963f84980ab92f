package formatter

import (
	"call-replay/models"
	"math/rand"
)

// Split shuffles a copy of snapshots with a fixed seed and cuts it into a
// training part of int(len*ratio) samples and a test part with the rest.
// The same seed always yields the same partition.
func Split(snapshots []models.Snapshot, ratio float64, seed int64) (train, test []models.Snapshot) {
	shuffled := make([]models.Snapshot, len(snapshots))
	copy(shuffled, snapshots)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	ratio = min(max(ratio, 0), 1)
	n := int(float64(len(shuffled)) * ratio)
	return shuffled[:n:n], shuffled[n:]
}
