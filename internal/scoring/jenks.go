package scoring

// jenksBreaks computes natural-breaks class boundaries over sorted values,
// minimizing within-class variance (Fisher-Jenks dynamic program). It
// returns nClasses-1 upper break values; a value belongs to the first class
// whose break it does not exceed.
func jenksBreaks(sorted []float64, nClasses int) []float64 {
	n := len(sorted)
	if n == 0 || nClasses <= 1 {
		return nil
	}
	if nClasses >= n {
		// One value per class; breaks fall between consecutive values.
		breaks := make([]float64, 0, n-1)
		for i := 0; i < n-1; i++ {
			breaks = append(breaks, sorted[i])
		}
		return breaks
	}

	// lowerClassLimits[i][j]: index of the lowest value in class j for the
	// optimal partition of the first i values.
	lower := make([][]int, n+1)
	variance := make([][]float64, n+1)
	for i := range lower {
		lower[i] = make([]int, nClasses+1)
		variance[i] = make([]float64, nClasses+1)
	}

	for j := 1; j <= nClasses; j++ {
		lower[1][j] = 1
		for i := 2; i <= n; i++ {
			variance[i][j] = -1 // unset
		}
	}

	for i := 2; i <= n; i++ {
		var sum, sumSq, w float64
		for m := 1; m <= i; m++ {
			idx := i - m // lowest value index in the trailing class
			val := sorted[idx]

			w++
			sum += val
			sumSq += val * val
			sv := sumSq - (sum*sum)/w

			if idx == 0 {
				variance[i][1] = sv
				lower[i][1] = 1
				continue
			}
			for j := 2; j <= nClasses; j++ {
				prev := variance[idx][j-1]
				if prev < 0 {
					continue
				}
				if variance[i][j] < 0 || sv+prev < variance[i][j] {
					lower[i][j] = idx + 1
					variance[i][j] = sv + prev
				}
			}
		}
	}

	breaks := make([]float64, nClasses-1)
	k := n
	for j := nClasses; j >= 2; j-- {
		idx := lower[k][j] - 1
		breaks[j-2] = sorted[idx-1]
		k = idx
	}
	return breaks
}

// classOf returns the zero-based class of a value given ascending upper
// breaks produced by jenksBreaks.
func classOf(value float64, breaks []float64) int {
	for i, b := range breaks {
		if value <= b {
			return i
		}
	}
	return len(breaks)
}
