package adt7410

// DefaultAddress is the bus address with A0 and A1 tied low.
const DefaultAddress = 0x48

// Register map. Multi-byte registers are big-endian with the MSB at the lower offset.
const (
	RegTemperature   byte = 0x00
	RegStatus        byte = 0x02
	RegConfiguration byte = 0x03
	RegHighLimit     byte = 0x04
	RegLowLimit      byte = 0x06
	RegCriticalLimit byte = 0x08
	RegHysteresis    byte = 0x0A
	RegID            byte = 0x0B

	// RegSoftwareReset is not a register: writing the pointer alone resets the part.
	RegSoftwareReset byte = 0x2F
)

// RegisterInfo describes one entry of the register map.
type RegisterInfo struct {
	Name     string
	Offset   byte
	Width    int
	Writable bool
}

// Registers lists the register map in offset order.
var Registers = []RegisterInfo{
	{Name: "temperature", Offset: RegTemperature, Width: 2},
	{Name: "status", Offset: RegStatus, Width: 1},
	{Name: "configuration", Offset: RegConfiguration, Width: 1, Writable: true},
	{Name: "high_limit", Offset: RegHighLimit, Width: 2, Writable: true},
	{Name: "low_limit", Offset: RegLowLimit, Width: 2, Writable: true},
	{Name: "critical_limit", Offset: RegCriticalLimit, Width: 2, Writable: true},
	{Name: "hysteresis", Offset: RegHysteresis, Width: 1, Writable: true},
	{Name: "id", Offset: RegID, Width: 1},
}

// configuration register layout
const (
	faultQueueMask    = 0b0000_0011
	ctPolarityBit     = 2
	intPolarityBit    = 3
	interruptModeBit  = 4
	operationModePos  = 5
	operationModeMask = 0b11
	resolutionBit     = 7
)

// status register layout, !RDY is active low
const (
	statusNotReady = 1 << 7
	statusCritical = 1 << 6
	statusHigh     = 1 << 5
	statusLow      = 1 << 4
)

const (
	// manufacturer ID lives in bits 7:3 of the ID register, silicon revision in 2:0
	manufacturerMask = 0b1111_1000
	manufacturerID   = 0b1100_1000
	revisionMask     = 0b0000_0111

	hysteresisMask = 0x0F
)
