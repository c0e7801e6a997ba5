package power

// State is the operating state derived from current magnitude
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateFault   State = "fault"
)

func (s State) String() string {
	return string(s)
}

// Classifier maps current to a State. Both thresholds are inclusive to
// running: a current equal to either threshold is running.
type Classifier struct {
	IdleThreshold  float64
	FaultThreshold float64
}

func NewClassifier(idle, fault float64) Classifier {
	return Classifier{IdleThreshold: idle, FaultThreshold: fault}
}

func (c Classifier) Classify(current float64) State {
	if current < c.IdleThreshold {
		return StateIdle
	}

	if current > c.FaultThreshold {
		return StateFault
	}

	return StateRunning
}
