package tmc5240

// TMC5240 register map
// Based on TMC5240 datasheet Rev. 1.09 / 2021-06-02
// Trinamic Motion Control GmbH & Co. KG

// Register addresses.
const (
	RegGCONF        = 0x00 // Global configuration flags
	RegGSTAT        = 0x01 // Global status flags
	RegIFCNT        = 0x02 // Interface transmission counter (UART)
	RegSLAVECONF    = 0x03 // Slave configuration (UART)
	RegIOIN         = 0x04 // State of all input pins
	RegDRVCONF      = 0x0A // Driver configuration
	RegGLOBALSCALER = 0x0B // Global current scaler

	RegIHOLDIRUN  = 0x10 // Driver current control
	RegTPOWERDOWN = 0x11 // Delay after standstill
	RegTSTEP      = 0x12 // Measured time between two steps (read only)

	// Ramp generator motion control.
	RegRAMPMODE  = 0x20 // Ramp mode
	RegXACTUAL   = 0x21 // Actual motor position (signed)
	RegVACTUAL   = 0x22 // Actual motor velocity (read only)
	RegVSTART    = 0x23 // Motor start velocity
	RegA1        = 0x24 // First acceleration between VSTART and V1
	RegV1        = 0x25 // First phase threshold velocity
	RegAMAX      = 0x26 // Acceleration between V1 and VMAX
	RegVMAX      = 0x27 // Maximum ramp velocity
	RegDMAX      = 0x28 // Deceleration between VMAX and V1
	RegTVMAX     = 0x29 // Velocity smoothing time
	RegD1        = 0x2A // Deceleration between V1 and VSTOP
	RegVSTOP     = 0x2B // Motor stop velocity
	RegTZEROWAIT = 0x2C // Wait time after ramping down to zero
	RegXTARGET   = 0x2D // Target position (signed)

	RegSWMODE   = 0x34 // Reference switch mode configuration
	RegRAMPSTAT = 0x35 // Ramp and reference switch status
	RegXLATCH   = 0x36 // Latched position

	RegCHOPCONF  = 0x6C // Chopper configuration
	RegDRVSTATUS = 0x6F // Driver status flags (read only)
)

// RAMPMODE values.
const (
	RampModePosition    = 0 // positioning mode, uses XTARGET
	RampModeVelocityPos = 1 // velocity mode, positive VMAX
	RampModeVelocityNeg = 2 // velocity mode, negative VMAX
	RampModeHold        = 3 // hold current velocity
)

// RAMPSTAT bits.
const (
	RampStatStopL           = 1 << 0  // left stop switch status
	RampStatStopR           = 1 << 1  // right stop switch status
	RampStatEventPosReached = 1 << 7  // position reached event
	RampStatVelocityReached = 1 << 8  // target velocity reached
	RampStatPositionReached = 1 << 9  // target position reached
	RampStatVZero           = 1 << 10 // velocity is zero
)

// SPI access: register address bit 7 selects write access.
const writeBit = 0x80

// Bring-up values carried over from the board that this driver was built
// against. GCONF bit 3 enables step input filtering; the chopper value is
// the full working configuration, not a minimal one.
const (
	defaultGCONF        = 0x00000008
	defaultDRVCONF      = 0x00000020
	defaultGlobalScaler = 0x00000000
	defaultIHoldIRun    = 0x00070A03
	defaultTPowerDown   = 0x0000000A
	defaultCHOPCONF     = 0x10410153
	defaultTVMax        = 0x00000F8D

	defaultVMax = 0x2710
	defaultAMax = 0x0F8D
	defaultDMax = 0x0F8D
)
