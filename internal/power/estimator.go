package power

// Estimate returns real power for a balanced load: the measured phase
// current times line voltage times the phase multiplier. No rounding is
// applied here.
func Estimate(rmsCurrent, lineVoltage float64, phases int) float64 {
	return rmsCurrent * lineVoltage * float64(phases)
}
