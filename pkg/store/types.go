package store

import "time"

// TimeLayout is the on-disk timestamp format of the ds column.
const TimeLayout = "2006-01-02 15:04:05"

var header = []string{"ds", "y", "servers"}

// Observation is one timestamped reading of the upstream counter.
type Observation struct {
	Timestamp time.Time
	Players   int
	Servers   int
}
