package quiz

import "math/rand/v2"

// PickNextVersion chooses uniformly among candidates other than current.
// When no alternative exists, current is returned.
func PickNextVersion(current int, candidates []int, rng *rand.Rand) int {
	others := make([]int, 0, len(candidates))
	for _, c := range candidates {
		if c != current {
			others = append(others, c)
		}
	}
	if len(others) == 0 {
		return current
	}
	return others[rng.IntN(len(others))]
}
