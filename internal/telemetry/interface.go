package telemetry

import (
	"time"

	"codeberg.org/mutker/powermon/internal/power"
)

// Collector accepts finished readings and persists them
type Collector interface {
	Record(reading Reading) error
	Flush() error
	Close() error
}

// Repository appends encoded rows to stable storage
type Repository interface {
	Append(rows [][]string) error
	Close() error
}

// Reading is one derived measurement. It is immutable once built.
type Reading struct {
	Timestamp   time.Time
	DeviceID    string
	MachineID   string
	Current     float64
	LineVoltage float64
	Power       float64
	State       power.State
}
