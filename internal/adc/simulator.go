package adc

import (
	"codeberg.org/mutker/powermon/internal/errors"
)

// Simulator is a Device that replays a fixed sequence of raw codes on every
// channel, wrapping around at the end. It stands in for the MCP3008 on
// bench setups without a clamp attached.
type Simulator struct {
	codes  []int
	next   int
	reads  int
	closed bool
}

// NewSimulator returns a simulator cycling through codes
func NewSimulator(codes ...int) *Simulator {
	if len(codes) == 0 {
		codes = []int{0}
	}

	return &Simulator{codes: codes}
}

func (s *Simulator) Read(_ int) (int, error) {
	if s.closed {
		return 0, errors.New().New(ErrDeviceClosed)
	}

	code := s.codes[s.next]
	s.next = (s.next + 1) % len(s.codes)
	s.reads++

	return code, nil
}

func (s *Simulator) Close() error {
	s.closed = true
	return nil
}

// Reads returns how many samples have been served
func (s *Simulator) Reads() int {
	return s.reads
}

// Closed reports whether Close has been called
func (s *Simulator) Closed() bool {
	return s.closed
}
