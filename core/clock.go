package core

import "time"

// Clock supplies elapsed time to the blocking helpers. It exists so tests
// can drive the await loops with a fake time source.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type wallClock struct{}

func (wallClock) Now() time.Time        { return time.Now() }
func (wallClock) Sleep(d time.Duration) { time.Sleep(d) }

// WallClock is the process monotonic clock.
var WallClock Clock = wallClock{}
