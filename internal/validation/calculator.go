package validation

// LevelCompletion computes, for each level k in 1..maxLevel, the percentage of
// cells whose active validation count is at least k. counts holds one active
// count per cell; totalCells is the denominator and is passed separately so a
// caller can represent a scope that is empty but still has a known size.
//
// The result has length max(0, maxLevel). A non-positive totalCells falls back
// to a denominator of 1, which keeps the degenerate empty scope at 0% instead
// of dividing by zero. A count below 1 satisfies no level, so negative counts
// never contribute.
func LevelCompletion(counts []int, maxLevel, totalCells int) []float64 {
	if maxLevel < 0 {
		maxLevel = 0
	}
	effectiveTotal := totalCells
	if effectiveTotal <= 0 {
		effectiveTotal = 1
	}

	percentages := make([]float64, maxLevel)
	for level := 1; level <= maxLevel; level++ {
		satisfied := 0
		for _, count := range counts {
			if count >= level {
				satisfied++
			}
		}
		percentages[level-1] = 100 * float64(satisfied) / float64(effectiveTotal)
	}
	return percentages
}
