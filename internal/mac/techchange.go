package mac

// CapMultiplier scales reductions so the curve's maximum reduction is
// brought in line with finalReduction by finalPeriod. Up to finalPeriod the
// multiplier ramps linearly from period 2; afterwards it stays at
// maxReduction/finalReduction.
//
// When finalPeriod is 2 or less the ramp has no length and the end value
// is used for every period. A zero finalReduction disables the cap.
func CapMultiplier(period, finalPeriod int, maxReduction, finalReduction float64) float64 {
	if finalReduction == 0 {
		return 1
	}
	change := maxReduction / finalReduction
	if period > finalPeriod || finalPeriod <= 2 {
		return change
	}
	return change * float64(period-2) / float64(finalPeriod-2)
}
