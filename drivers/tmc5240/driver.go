// Package tmc5240 drives the Trinamic TMC5240 motion controller: a smart IC
// with an internal ramp generator and position feedback. The engine only
// issues absolute targets and polls completion; all ramping happens on-chip.
package tmc5240

import (
	"fmt"

	"go.uber.org/zap"

	"stepkit/core"
)

// Config holds the per-axis ramp values written during bring-up. Zero
// fields fall back to the board defaults. The values are in the chip's own
// units and pass through the engine untouched.
type Config struct {
	VMax uint32
	AMax uint32
	DMax uint32
}

// Driver implements the move-to capability contract on a register bus.
type Driver struct {
	bus Bus
	cfg Config
	log *zap.Logger
}

// New binds a driver to a bus. The logger is used for bring-up diagnostics
// only; pass nil to silence it.
func New(bus Bus, cfg Config, log *zap.Logger) (*Driver, error) {
	if bus == nil {
		return nil, ErrNilPort
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.VMax == 0 {
		cfg.VMax = defaultVMax
	}
	if cfg.AMax == 0 {
		cfg.AMax = defaultAMax
	}
	if cfg.DMax == 0 {
		cfg.DMax = defaultDMax
	}
	return &Driver{bus: bus, cfg: cfg, log: log}, nil
}

// Capabilities declares absolute moves with hardware position feedback.
func (d *Driver) Capabilities() core.Capability {
	return core.CapMoveTo | core.CapPositionFB
}

// Init performs the one-time register bring-up: current control, chopper,
// ramp limits, positioning mode, and a position reset.
func (d *Driver) Init() error {
	setup := []struct {
		addr  uint8
		value uint32
	}{
		{RegGCONF, defaultGCONF},
		{RegDRVCONF, defaultDRVCONF},
		{RegGLOBALSCALER, defaultGlobalScaler},
		{RegIHOLDIRUN, defaultIHoldIRun},
		{RegTPOWERDOWN, defaultTPowerDown},
		{RegCHOPCONF, defaultCHOPCONF},
		{RegAMAX, d.cfg.AMax},
		{RegDMAX, d.cfg.DMax},
		{RegVMAX, d.cfg.VMax},
		{RegTVMAX, defaultTVMax},
		{RegRAMPMODE, RampModePosition},
		{RegXACTUAL, 0},
	}
	for _, s := range setup {
		if err := d.bus.WriteRegister(s.addr, s.value); err != nil {
			return fmt.Errorf("tmc5240: init write 0x%02X: %w", s.addr, err)
		}
	}
	d.log.Info("tmc5240 initialized",
		zap.Uint32("vmax", d.cfg.VMax),
		zap.Uint32("amax", d.cfg.AMax),
		zap.Uint32("dmax", d.cfg.DMax))
	return nil
}

// SetEnable toggles the driver stage through GCONF. Bus errors surface as
// an axis that never moves, per the engine's error model.
func (d *Driver) SetEnable(on bool) {
	value := uint32(0)
	if on {
		value = defaultGCONF
	}
	_ = d.bus.WriteRegister(RegGCONF, value)
}

// MoveTo hands the absolute target to the on-chip ramp generator and
// returns immediately.
func (d *Driver) MoveTo(position int32) {
	_ = d.bus.WriteRegister(RegRAMPMODE, RampModePosition)
	_ = d.bus.WriteRegister(RegXTARGET, uint32(position))
}

// PositionReached polls the ramp status. A failed read reports false, so a
// dead bus keeps the axis busy rather than faking completion.
func (d *Driver) PositionReached() bool {
	st, err := d.bus.ReadRegister(RegRAMPSTAT)
	if err != nil {
		return false
	}
	return st&RampStatPositionReached != 0
}

// Position returns the chip's actual position counter. A failed read
// reports zero; callers treat the value as an estimate.
func (d *Driver) Position() int32 {
	v, err := d.bus.ReadRegister(RegXACTUAL)
	if err != nil {
		return 0
	}
	return int32(v)
}

// Halt commands an active stop by switching to velocity mode with VMAX
// zero, which ramps down at DMAX instead of coasting.
func (d *Driver) Halt() {
	_ = d.bus.WriteRegister(RegVMAX, 0)
	_ = d.bus.WriteRegister(RegRAMPMODE, RampModeVelocityPos)
}

// SetVelocity updates the ramp's maximum velocity.
func (d *Driver) SetVelocity(v uint32) {
	d.cfg.VMax = v
	_ = d.bus.WriteRegister(RegVMAX, v)
}

// SetAcceleration updates both the acceleration and deceleration limits.
func (d *Driver) SetAcceleration(a uint32) {
	d.cfg.AMax = a
	d.cfg.DMax = a
	_ = d.bus.WriteRegister(RegAMAX, a)
	_ = d.bus.WriteRegister(RegDMAX, a)
}

// DumpRegisters logs the interesting registers for bench debugging.
func (d *Driver) DumpRegisters() {
	regs := []struct {
		name string
		addr uint8
	}{
		{"GCONF", RegGCONF},
		{"GSTAT", RegGSTAT},
		{"IHOLD_IRUN", RegIHOLDIRUN},
		{"CHOPCONF", RegCHOPCONF},
		{"AMAX", RegAMAX},
		{"DMAX", RegDMAX},
		{"VMAX", RegVMAX},
		{"RAMPMODE", RegRAMPMODE},
		{"XACTUAL", RegXACTUAL},
		{"XTARGET", RegXTARGET},
		{"VACTUAL", RegVACTUAL},
		{"RAMPSTAT", RegRAMPSTAT},
		{"DRVSTATUS", RegDRVSTATUS},
	}
	for _, r := range regs {
		v, err := d.bus.ReadRegister(r.addr)
		if err != nil {
			d.log.Warn("register read failed", zap.String("reg", r.name), zap.Error(err))
			continue
		}
		d.log.Info("register",
			zap.String("reg", r.name),
			zap.String("value", fmt.Sprintf("0x%08X", v)))
	}
}
