package telemetry

import (
	"strconv"
)

// TimestampFormat is ISO-8601 UTC with millisecond precision
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Header is written once at the top of a new log
var Header = []string{
	"timestamp",
	"device_id",
	"machine_id",
	"current_rms",
	"voltage",
	"power_w",
	"state",
}

// Row encodes a reading as CSV fields. Rounding happens only here.
func (r Reading) Row() []string {
	return []string{
		r.Timestamp.UTC().Format(TimestampFormat),
		r.DeviceID,
		r.MachineID,
		strconv.FormatFloat(r.Current, 'f', 4, 64),
		strconv.FormatFloat(r.LineVoltage, 'f', 1, 64),
		strconv.FormatFloat(r.Power, 'f', 2, 64),
		r.State.String(),
	}
}
