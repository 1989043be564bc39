package core

// Axis state machine
// Interprets one motor's state plus its driver's capabilities to decide, on
// each tick, whether to delegate to the driver's native motion primitive or
// to run the software step accumulator.

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrNilDriver   = errors.New("axis: nil driver")
	ErrNotDrivable = errors.New("axis: driver declares neither step/dir nor move-to")
	ErrCapMismatch = errors.New("axis: declared capability not implemented")
	ErrInitFailed  = errors.New("axis: driver init failed")
)

// LimitSource identifies which switch tripped a limit.
type LimitSource uint8

const (
	LimitMin LimitSource = iota
	LimitMax
)

func (s LimitSource) String() string {
	if s == LimitMin {
		return "min"
	}
	return "max"
}

// DoneFunc is invoked synchronously, exactly once per motion, at the tick
// that observes completion. It must not block and must not call Update.
type DoneFunc func(*Axis)

// LimitFunc is invoked when a limit switch trips while limits are enabled.
type LimitFunc func(*Axis, LimitSource)

// Axis is one motor's mutable motion state bound to a driver.
// All mutation goes through the methods below; at most one caller may issue
// commands at a time, while HitLimit alone is safe to call from an
// asynchronous source concurrently with Update.
type Axis struct {
	id  uint8
	drv Driver

	// Capability bindings, resolved once at construction so the tick path
	// performs no type assertions.
	stepDir StepDirDriver
	moveTo  MoveToDriver
	posFB   PositionReader
	ramp    RampControl
	halter  MotionHalter

	targetPosition int32
	position       int32 // pulse-counted estimate, used without CapPositionFB
	stepsRemaining int32 // magnitude; direction carried separately
	direction      bool

	usPerStep     uint32
	usAccumulator uint32

	enabled bool

	// busy and limitHit are shared with an asynchronous limit source, so
	// they are single-word atomics rather than fields guarded by Update.
	busy     atomic.Bool
	limitHit atomic.Bool

	limitsEnabled bool

	doneCB  DoneFunc
	limitCB LimitFunc
}

// NewAxis binds an axis to a driver and validates that the driver implements
// every capability it declares. The driver's Init hook, if any, runs here
// exactly once.
func NewAxis(id uint8, drv Driver) (*Axis, error) {
	if drv == nil {
		return nil, ErrNilDriver
	}

	caps := drv.Capabilities()
	if !caps.Has(CapStepDir) && !caps.Has(CapMoveTo) {
		return nil, ErrNotDrivable
	}

	a := &Axis{
		id:        id,
		drv:       drv,
		usPerStep: 1,
	}

	if caps.Has(CapStepDir) {
		sd, ok := drv.(StepDirDriver)
		if !ok {
			return nil, fmt.Errorf("%w: step/dir", ErrCapMismatch)
		}
		a.stepDir = sd
	}
	if caps.Has(CapMoveTo) {
		mt, ok := drv.(MoveToDriver)
		if !ok {
			return nil, fmt.Errorf("%w: move-to", ErrCapMismatch)
		}
		a.moveTo = mt
	}
	if caps.Has(CapPositionFB) {
		pr, ok := drv.(PositionReader)
		if !ok {
			return nil, fmt.Errorf("%w: position feedback", ErrCapMismatch)
		}
		a.posFB = pr
	}

	// Optional extras, independent of declared capabilities.
	a.ramp, _ = drv.(RampControl)
	a.halter, _ = drv.(MotionHalter)

	if ini, ok := drv.(Initializer); ok {
		if err := ini.Init(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
		}
	}

	return a, nil
}

// ID returns the application-assigned axis identity.
func (a *Axis) ID() uint8 {
	if a == nil {
		return 0
	}
	return a.id
}

// Enable gates motion and forwards to the driver's enable output.
// It does not touch motion bookkeeping; disabling mid-move only stops
// further pulsing until re-enabled.
func (a *Axis) Enable(on bool) {
	if a == nil {
		return
	}
	a.enabled = on
	a.drv.SetEnable(on)
}

// Enabled reports whether the axis is enabled.
func (a *Axis) Enabled() bool {
	return a != nil && a.enabled
}

// Busy reports whether a motion is in progress.
func (a *Axis) Busy() bool {
	return a != nil && a.busy.Load()
}

// LimitHit reports whether the axis is halted on a tripped limit switch.
func (a *Axis) LimitHit() bool {
	return a != nil && a.limitHit.Load()
}

// SetSpeed sets the step cadence for software stepping. A zero period would
// stall the accumulator comparison, so it is clamped to one microsecond.
func (a *Axis) SetSpeed(usPerStep uint32) {
	if a == nil {
		return
	}
	if usPerStep == 0 {
		usPerStep = 1
	}
	a.usPerStep = usPerStep
}

// Speed returns the step cadence in microseconds per step.
func (a *Axis) Speed() uint32 {
	if a == nil {
		return 0
	}
	return a.usPerStep
}

// SetVelocity forwards an opaque velocity value to the driver, if the driver
// accepts one. No-op otherwise.
func (a *Axis) SetVelocity(v uint32) {
	if a == nil || a.ramp == nil {
		return
	}
	a.ramp.SetVelocity(v)
}

// SetAcceleration forwards an opaque acceleration value to the driver, if
// the driver accepts one. No-op otherwise.
func (a *Axis) SetAcceleration(acc uint32) {
	if a == nil || a.ramp == nil {
		return
	}
	a.ramp.SetAcceleration(acc)
}

// SetDoneCallback registers the motion-complete callback.
func (a *Axis) SetDoneCallback(fn DoneFunc) {
	if a == nil {
		return
	}
	a.doneCB = fn
}

// SetLimitCallback registers the limit-trip callback.
func (a *Axis) SetLimitCallback(fn LimitFunc) {
	if a == nil {
		return
	}
	a.limitCB = fn
}

// Target returns the last commanded absolute target.
func (a *Axis) Target() int32 {
	if a == nil {
		return 0
	}
	return a.targetPosition
}

// StepsRemaining returns the magnitude of steps left in a software move.
func (a *Axis) StepsRemaining() int32 {
	if a == nil {
		return 0
	}
	return a.stepsRemaining
}

// Position returns hardware position when the driver can report it, the
// engine's pulse-counted estimate otherwise.
func (a *Axis) Position() int32 {
	if a == nil {
		return 0
	}
	if a.posFB != nil {
		return a.posFB.Position()
	}
	return a.position
}

// PositionReached reports whether the last commanded target has been reached.
func (a *Axis) PositionReached() bool {
	if a == nil {
		return true
	}
	if a.moveTo != nil {
		return a.moveTo.PositionReached()
	}
	return a.stepsRemaining == 0
}

// MoveTo commands motion to an absolute position. A smart driver gets the
// target directly; otherwise the software step path is armed. Re-targeting
// while moving is allowed.
func (a *Axis) MoveTo(position int32) {
	if a == nil {
		return
	}

	a.targetPosition = position
	a.limitHit.Store(false)
	a.busy.Store(true)

	if a.moveTo != nil {
		a.moveTo.MoveTo(position)
		return
	}

	delta := position - a.Position()
	a.direction = delta >= 0
	if delta < 0 {
		delta = -delta
	}
	a.stepsRemaining = delta
	a.usAccumulator = 0
	a.stepDir.SetDir(a.direction)
}

// Move commands motion relative to the current position.
func (a *Axis) Move(steps int32) {
	if a == nil {
		return
	}
	a.MoveTo(a.Position() + steps)
}

// Update is the periodic tick driving motion progress. elapsedUS is the
// time since the previous call. Returns whether the axis is still moving.
//
// For a smart driver this polls completion; for software stepping it feeds
// the accumulator and issues one pulse per elapsed cadence period, so a
// single large elapsed value issues several pulses.
func (a *Axis) Update(elapsedUS uint32) bool {
	if a == nil || !a.enabled || !a.busy.Load() {
		return false
	}

	if a.moveTo != nil {
		if a.moveTo.PositionReached() {
			a.finishMove()
		}
		return a.busy.Load()
	}

	if a.stepsRemaining <= 0 {
		a.finishMove()
		return false
	}

	a.usAccumulator += elapsedUS
	per := a.usPerStep
	if per == 0 {
		per = 1
	}

	for a.usAccumulator >= per && a.stepsRemaining > 0 {
		a.usAccumulator -= per
		a.stepDir.StepPulse()
		a.stepsRemaining--
		if a.direction {
			a.position++
		} else {
			a.position--
		}
	}

	if a.stepsRemaining == 0 {
		a.finishMove()
	}
	return a.busy.Load()
}

func (a *Axis) finishMove() {
	a.busy.Store(false)
	if a.doneCB != nil {
		a.doneCB(a)
	}
}

// HitLimit records a limit-switch trip. It is the one operation expected to
// arrive from an asynchronous source and is safe to call concurrently with
// Update. The trip halts motion, and the limit callback fires only on the
// transition into the limited state; repeated trips while already limited
// are no-ops.
//
// On a smart driver the engine issues Halt when the driver provides it;
// without MotionHalter the IC's internal ramp may coast to its own stop.
func (a *Axis) HitLimit(src LimitSource) {
	if a == nil || !a.limitsEnabled {
		return
	}
	if a.limitHit.Swap(true) {
		return
	}
	a.busy.Store(false)
	a.stepsRemaining = 0
	if a.halter != nil {
		a.halter.Halt()
	}
	if a.limitCB != nil {
		a.limitCB(a, src)
	}
}

// EnableLimits arms limit handling and clears a previous trip. Busy state is
// untouched.
func (a *Axis) EnableLimits() {
	if a == nil {
		return
	}
	a.limitsEnabled = true
	a.limitHit.Store(false)
}

// LimitsEnabled reports whether limit handling is armed.
func (a *Axis) LimitsEnabled() bool {
	return a != nil && a.limitsEnabled
}
