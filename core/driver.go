package core

// Driver capability dispatch
// One engine drives both dumb STEP/DIR silicon and smart ICs with internal
// ramp generators; all branching is capability-gated, not type-gated.

// Capability is a bit set describing the optional behaviors a motor driver
// declares at construction. The set is immutable for the driver's lifetime.
type Capability uint8

const (
	CapStepDir    Capability = 1 << iota // discrete step pulse + direction level
	CapMoveTo                            // absolute targets, driver-internal ramp generator
	CapPositionFB                        // driver reports true hardware position
	CapLimits                            // driver handles limit switches internally
)

// Has reports whether every capability in want is present.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Driver is the minimal contract every motor driver implements.
// A drivable axis additionally requires CapStepDir or CapMoveTo; declaring
// neither is a configuration error rejected by NewAxis.
type Driver interface {
	// Capabilities returns the driver's fixed capability set.
	Capabilities() Capability

	// SetEnable toggles physical driver output / hold current.
	SetEnable(enable bool)
}

// StepDirDriver must be implemented by drivers declaring CapStepDir.
type StepDirDriver interface {
	Driver

	// SetDir sets the direction level (true = forward).
	SetDir(forward bool)

	// StepPulse performs exactly one physical step edge.
	// Called from the tick loop; must not block.
	StepPulse()
}

// MoveToDriver must be implemented by drivers declaring CapMoveTo.
type MoveToDriver interface {
	Driver

	// MoveTo hands an absolute target to the driver's motion engine.
	// Must return without waiting for motion to complete.
	MoveTo(position int32)

	// PositionReached reports whether the last target has been reached.
	// This is the sole completion signal for CapMoveTo motion.
	PositionReached() bool
}

// PositionReader must be implemented by drivers declaring CapPositionFB.
// Without it the engine falls back to its own pulse-counted estimate.
type PositionReader interface {
	// Position returns the current hardware position in steps.
	Position() int32
}

// Initializer is an optional one-time bring-up hook, invoked exactly once
// by NewAxis.
type Initializer interface {
	Init() error
}

// RampControl is optionally implemented by drivers with an internal ramp
// generator. The values are opaque to the engine and forwarded unchanged.
type RampControl interface {
	SetVelocity(v uint32)
	SetAcceleration(a uint32)
}

// MotionHalter is optionally implemented by drivers that can actively stop
// an in-progress motion. The engine issues Halt on Stop and on a limit trip;
// a driver without it may coast until its own ramp decelerates.
type MotionHalter interface {
	Halt()
}
