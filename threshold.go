package onpair

import "math"

// promotionThreshold derives the minimum pair-frequency count required to
// promote a pair into a new token, from the size of the corpus being
// trained on: max(floor(log2(sizeMiB)), 2). Tying promotion difficulty to
// corpus size keeps small corpora from overfitting to rare pairs.
func promotionThreshold(dataSizeBytes int) uint16 {
	sizeMiB := float64(dataSizeBytes) / (1024.0 * 1024.0)
	return uint16(math.Max(2.0, math.Log2(sizeMiB)))
}
