package lifecycle

// Sample picks k distinct entries uniformly at random in one pass over items
// (reservoir sampling, Algorithm R). intn must return a value in [0, n).
func Sample(items []string, k int, intn func(n int) int) []string {
	if k <= 0 || len(items) == 0 {
		return []string{}
	}
	if k > len(items) {
		k = len(items)
	}

	reservoir := make([]string, k)
	copy(reservoir, items[:k])
	for i := k; i < len(items); i++ {
		if j := intn(i + 1); j < k {
			reservoir[j] = items[i]
		}
	}
	return reservoir
}
