package power

// Window is a fixed-capacity buffer of raw samples. It is filled once per
// measurement cycle and reset after conversion.
type Window struct {
	samples []int
}

func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}

	return &Window{samples: make([]int, 0, size)}
}

// Push appends a sample. Samples beyond capacity are ignored.
func (w *Window) Push(sample int) {
	if w.Full() {
		return
	}
	w.samples = append(w.samples, sample)
}

func (w *Window) Len() int {
	return len(w.samples)
}

func (w *Window) Cap() int {
	return cap(w.samples)
}

func (w *Window) Full() bool {
	return len(w.samples) == cap(w.samples)
}

func (w *Window) Reset() {
	w.samples = w.samples[:0]
}

// Mean is the arithmetic mean of the buffered samples, 0 when empty
func (w *Window) Mean() float64 {
	if len(w.samples) == 0 {
		return 0
	}

	sum := 0
	for _, s := range w.samples {
		sum += s
	}

	return float64(sum) / float64(len(w.samples))
}
