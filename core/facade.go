package core

// Blocking convenience layer over the axis engine. Implemented purely by
// polling Update; owns no state of its own. Only for call sites that can
// afford to block.

import "time"

// awaitPollInterval is the sleep between await iterations.
const awaitPollInterval = time.Millisecond

// Start energizes the axis. Alias for Enable(true).
func (a *Axis) Start() {
	a.Enable(true)
}

// Disable de-energizes the axis. Alias for Enable(false).
func (a *Axis) Disable() {
	a.Enable(false)
}

// Stop aborts the in-progress motion bookkeeping and, when the driver can
// actively stop, commands it to. Without MotionHalter a smart driver's
// physical motion may coast until its ramp decelerates on its own.
func (a *Axis) Stop() {
	if a == nil {
		return
	}
	a.busy.Store(false)
	a.stepsRemaining = 0
	if a.halter != nil {
		a.halter.Halt()
	}
}

// AwaitStop polls Update until motion completes or timeout elapses.
// A zero timeout waits without bound and will hang on an axis that cannot
// make progress. Returns true when motion completed.
func (a *Axis) AwaitStop(clk Clock, timeout time.Duration) bool {
	if a == nil {
		return true
	}
	if clk == nil {
		clk = WallClock
	}

	start := clk.Now()
	prev := start
	for a.busy.Load() {
		if timeout > 0 && clk.Now().Sub(start) >= timeout {
			return false
		}
		clk.Sleep(awaitPollInterval)
		now := clk.Now()
		a.Update(uint32(now.Sub(prev).Microseconds()))
		prev = now
	}
	return true
}

// AwaitLimit polls until a limit switch trips or timeout elapses, ticking
// Update so the axis keeps moving toward the switch. A zero timeout waits
// without bound. Returns true when a limit tripped.
func (a *Axis) AwaitLimit(clk Clock, timeout time.Duration) bool {
	if a == nil {
		return false
	}
	if clk == nil {
		clk = WallClock
	}

	start := clk.Now()
	prev := start
	for !a.limitHit.Load() {
		if timeout > 0 && clk.Now().Sub(start) >= timeout {
			return false
		}
		clk.Sleep(awaitPollInterval)
		now := clk.Now()
		a.Update(uint32(now.Sub(prev).Microseconds()))
		prev = now
	}
	return true
}
