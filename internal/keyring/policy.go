package keyring

// NextEligible returns the index of the next credential able to accept a
// call, scanning round-robin from active+1. A credential is eligible when
// its usage is strictly below threshold*limit. The scan covers every index
// once, ending with active itself, so a fully drained pool returns ok=false.
//
// The function is pure: no clock, no I/O, no mutation. Callers hold the
// manager lock and pass in consistent slices.
func NextEligible(limits, usage []int, active int, threshold float64) (int, bool) {
	n := len(limits)
	if n <= 1 || len(usage) != n || active < 0 || active >= n {
		return active, false
	}

	for step := 1; step <= n; step++ {
		idx := (active + step) % n
		if float64(usage[idx]) < float64(limits[idx])*threshold {
			return idx, true
		}
	}
	return active, false
}
