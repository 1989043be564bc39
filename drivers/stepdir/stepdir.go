// Package stepdir drives dumb STEP/DIR stepper silicon through GPIO pins.
// The engine supplies the cadence; this driver only produces edges.
package stepdir

import (
	"errors"

	"periph.io/x/conn/v3/gpio"

	"stepkit/core"
)

var (
	ErrNoStepPin = errors.New("stepdir: step pin is required")
	ErrNoDirPin  = errors.New("stepdir: dir pin is required")
)

// Config maps the driver to its pins. Enable is optional; a driver wired to
// a shared enable rail can omit it. Invert flags accommodate active-low
// inputs on the driver board.
type Config struct {
	Step   gpio.PinOut
	Dir    gpio.PinOut
	Enable gpio.PinOut

	InvertStep   bool
	InvertDir    bool
	InvertEnable bool
}

// Driver implements the step/dir capability over GPIO.
type Driver struct {
	cfg Config
}

// New validates the pin mapping and returns the driver.
func New(cfg Config) (*Driver, error) {
	if cfg.Step == nil {
		return nil, ErrNoStepPin
	}
	if cfg.Dir == nil {
		return nil, ErrNoDirPin
	}
	return &Driver{cfg: cfg}, nil
}

// Capabilities declares pulse-based stepping only.
func (d *Driver) Capabilities() core.Capability {
	return core.CapStepDir
}

// Init drives every pin to its idle level: step released, direction forward,
// motor de-energized.
func (d *Driver) Init() error {
	if err := d.cfg.Step.Out(d.level(false, d.cfg.InvertStep)); err != nil {
		return err
	}
	if err := d.cfg.Dir.Out(d.level(true, d.cfg.InvertDir)); err != nil {
		return err
	}
	if d.cfg.Enable != nil {
		return d.cfg.Enable.Out(d.level(false, d.cfg.InvertEnable))
	}
	return nil
}

// SetEnable toggles the enable output. Without an enable pin the motor is
// considered always energized. Pin errors are swallowed; a stuck pin shows
// up as an axis that never moves, which is the engine's error model.
func (d *Driver) SetEnable(on bool) {
	if d.cfg.Enable == nil {
		return
	}
	_ = d.cfg.Enable.Out(d.level(on, d.cfg.InvertEnable))
}

// SetDir sets the direction level. Any driver-required dir-to-step setup
// time is covered by the engine's step cadence being far slower than GPIO.
func (d *Driver) SetDir(forward bool) {
	_ = d.cfg.Dir.Out(d.level(forward, d.cfg.InvertDir))
}

// StepPulse emits one rising and falling edge. Step inputs on common driver
// ICs latch on the edge, so no explicit pulse-width delay is inserted; the
// two bus writes already exceed the minimum pulse width.
func (d *Driver) StepPulse() {
	_ = d.cfg.Step.Out(d.level(true, d.cfg.InvertStep))
	_ = d.cfg.Step.Out(d.level(false, d.cfg.InvertStep))
}

func (d *Driver) level(active, invert bool) gpio.Level {
	if invert {
		active = !active
	}
	return gpio.Level(active)
}
