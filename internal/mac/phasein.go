package mac

// PhaseInMultiplier ramps a curve in over phaseIn periods. With a phase-in
// of 3 the multiplier is 0 in period 1, 1/3 in period 2, 2/3 in period 3
// and 1 from period 4 on. A phaseIn below 1 means full effect immediately.
func PhaseInMultiplier(period int, phaseIn float64) float64 {
	elapsed := float64(period - 1)
	if elapsed < phaseIn && phaseIn >= 1 {
		return elapsed / phaseIn
	}
	return 1
}
