package chrono

import "time"

// TimestampLayout is the layout used for every timestamp persisted by the
// feature cache.
const TimestampLayout = "2006-01-02 15:04:05"

// API is the interface that anything depending on the system clock should use.
type API interface {
	Now() time.Time
}

// StandardImpl is the implementation of API using the system clock in local time.
type StandardImpl struct{}

func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

func (StandardImpl) Now() time.Time {
	return time.Now()
}

// FixedImpl always returns the same instant, for tests.
type FixedImpl struct {
	Time time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Time
}

// Timestamp formats the current time of the given clock with TimestampLayout.
func Timestamp(clock API) string {
	return clock.Now().Format(TimestampLayout)
}
