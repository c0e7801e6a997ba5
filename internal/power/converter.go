package power

import "math"

const oneOverSqrt2 = 1 / math.Sqrt2

// Calibration describes the analog front end: converter reference and
// resolution, amplifier gain and the clamp's rated range.
type Calibration struct {
	VRef          float64
	MaxCode       int
	AmplifierGain float64
	CTRangeAmps   float64
}

// Volts converts an average raw code to the ADC input voltage
func (c Calibration) Volts(meanCode float64) float64 {
	return meanCode * c.VRef / float64(c.MaxCode)
}

// Current maps an average raw code to the clamp's RMS current.
//
// The chain is ADC volts -> amplifier input (volts / gain) -> clamp current
// (scaled by the clamp range) -> RMS via the sine peak factor 1/sqrt(2). The
// result is saturated to [0, CTRangeAmps].
//
// The window mean stands in for a true RMS over the samples; amplifier gain
// is calibrated against this approximation, so it must not be replaced by a
// root of squared samples.
func (c Calibration) Current(meanCode float64) float64 {
	amplifierIn := c.Volts(meanCode) / c.AmplifierGain
	clampCurrent := amplifierIn * c.CTRangeAmps
	rms := clampCurrent * oneOverSqrt2

	return clamp(rms, 0, c.CTRangeAmps)
}

// Converter owns the averaging window and turns a full window into one
// current value.
type Converter struct {
	cal    Calibration
	window *Window
}

func NewConverter(cal Calibration, windowSize int) *Converter {
	return &Converter{
		cal:    cal,
		window: NewWindow(windowSize),
	}
}

// Push adds a raw sample to the current window
func (c *Converter) Push(sample int) {
	c.window.Push(sample)
}

// Ready reports whether the window holds a full cycle of samples
func (c *Converter) Ready() bool {
	return c.window.Full()
}

// Current converts the window contents and resets the window for the
// next cycle.
func (c *Converter) Current() float64 {
	current := c.cal.Current(c.window.Mean())
	c.window.Reset()

	return current
}

// Discard drops a partially filled window
func (c *Converter) Discard() {
	c.window.Reset()
}

// Pending returns the number of samples in the current window
func (c *Converter) Pending() int {
	return c.window.Len()
}

func clamp(value, minValue, maxValue float64) float64 {
	if math.IsNaN(value) || value < minValue {
		return minValue
	}

	if value > maxValue {
		return maxValue
	}

	return value
}
