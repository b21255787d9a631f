package adt7410

import (
	"fmt"
	"math"
	"strings"

	"periph.io/x/conn/v3/physic"
)

type Resolution byte

const (
	Resolution13Bit Resolution = 0
	Resolution16Bit Resolution = 1
)

func (r Resolution) String() string {
	if r&1 == 1 {
		return "16bit"
	}
	return "13bit"
}

// ParseResolution accepts "13bit"/"16bit", "13"/"16", "low"/"high" and the
// LOW_RESOLUTION/HIGH_RESOLUTION names.
func ParseResolution(s string) (Resolution, error) {
	switch normalize(s) {
	case "13bit", "13-bit", "13", "low", "low-resolution":
		return Resolution13Bit, nil
	case "16bit", "16-bit", "16", "high", "high-resolution":
		return Resolution16Bit, nil
	}
	return 0, fmt.Errorf("invalid resolution %q", s)
}

type OperationMode byte

const (
	Continuous OperationMode = iota
	OneShot
	OneSPS
	Shutdown
)

var operationModeNames = [...]string{"continuous", "one-shot", "1sps", "shutdown"}

func (m OperationMode) String() string {
	return operationModeNames[m&operationModeMask]
}

func ParseOperationMode(s string) (OperationMode, error) {
	switch normalize(s) {
	case "continuous":
		return Continuous, nil
	case "one-shot", "oneshot":
		return OneShot, nil
	case "1sps", "sps", "1-sps":
		return OneSPS, nil
	case "shutdown":
		return Shutdown, nil
	}
	return 0, fmt.Errorf("invalid operation mode %q", s)
}

// FaultQueue holds the raw 2-bit fault queue field. Use Faults for the count it stands for.
type FaultQueue byte

const (
	FaultQueue1 FaultQueue = iota
	FaultQueue2
	FaultQueue3
	FaultQueue4
)

// Faults returns the number of consecutive faults needed to trigger CT/INT.
func (q FaultQueue) Faults() int {
	return int(q&faultQueueMask) + 1
}

func (q FaultQueue) String() string {
	return fmt.Sprintf("%d", q.Faults())
}

// FaultQueueOf maps a fault count (1..4) to the register field.
func FaultQueueOf(faults int) (FaultQueue, error) {
	if faults < 1 || faults > 4 {
		return 0, fmt.Errorf("invalid fault queue length %d (expected 1-4)", faults)
	}
	return FaultQueue(faults - 1), nil
}

type Polarity byte

const (
	ActiveLow Polarity = iota
	ActiveHigh
)

func (p Polarity) String() string {
	if p&1 == 1 {
		return "active-high"
	}
	return "active-low"
}

func ParsePolarity(s string) (Polarity, error) {
	switch normalize(s) {
	case "active-low", "low":
		return ActiveLow, nil
	case "active-high", "high":
		return ActiveHigh, nil
	}
	return 0, fmt.Errorf("invalid polarity %q", s)
}

// InterruptMode selects how INT and CT behave once a limit is crossed.
type InterruptMode byte

const (
	// ModeInterrupt latches the output until the status register is read.
	ModeInterrupt InterruptMode = iota
	// ModeComparator drives the output as a level that follows the temperature.
	ModeComparator
)

func (m InterruptMode) String() string {
	if m&1 == 1 {
		return "comparator"
	}
	return "interrupt"
}

func ParseInterruptMode(s string) (InterruptMode, error) {
	switch normalize(s) {
	case "interrupt", "comp-disabled":
		return ModeInterrupt, nil
	case "comparator", "comp-enabled":
		return ModeComparator, nil
	}
	return 0, fmt.Errorf("invalid interrupt mode %q", s)
}

// Configuration is the decoded configuration register.
type Configuration struct {
	Resolution    Resolution
	OperationMode OperationMode
	FaultQueue    FaultQueue
	CTPolarity    Polarity
	INTPolarity   Polarity
	InterruptMode InterruptMode
}

func (c Configuration) String() string {
	return fmt.Sprintf("resolution=%s mode=%s faults=%s ct=%s int=%s %s",
		c.Resolution, c.OperationMode, c.FaultQueue, c.CTPolarity, c.INTPolarity, c.InterruptMode)
}

func DecodeConfiguration(raw byte) Configuration {
	return Configuration{
		Resolution:    Resolution(raw >> resolutionBit & 1),
		OperationMode: OperationMode(raw >> operationModePos & operationModeMask),
		FaultQueue:    FaultQueue(raw & faultQueueMask),
		CTPolarity:    Polarity(raw >> ctPolarityBit & 1),
		INTPolarity:   Polarity(raw >> intPolarityBit & 1),
		InterruptMode: InterruptMode(raw >> interruptModeBit & 1),
	}
}

// EncodeConfiguration packs c into the register byte. Field values wider than their
// bit-field are truncated.
func EncodeConfiguration(c Configuration) byte {
	var raw byte
	raw |= byte(c.Resolution&1) << resolutionBit
	raw |= byte(c.OperationMode&operationModeMask) << operationModePos
	raw |= byte(c.InterruptMode&1) << interruptModeBit
	raw |= byte(c.INTPolarity&1) << intPolarityBit
	raw |= byte(c.CTPolarity&1) << ctPolarityBit
	raw |= byte(c.FaultQueue & faultQueueMask)
	return raw
}

// scale returns the number of LSBs per degree and the field width in bits.
func scale(res Resolution) (float64, uint) {
	if res&1 == 1 {
		return 16, 16
	}
	return 128, 13
}

// DecodeTemperature converts a temperature or limit register value to degrees Celsius.
// In 13-bit mode the 3 low flag bits are discarded.
func DecodeTemperature(raw uint16, res Resolution) float32 {
	lsb, width := scale(res)
	value := int16(raw)
	if width == 13 {
		value >>= 3
	}
	return float32(float64(value) / lsb)
}

// EncodeTemperature converts degrees Celsius into the register encoding. Values outside
// the representable range saturate; NaN encodes as zero.
func EncodeTemperature(celsius float32, res Resolution) uint16 {
	lsb, width := scale(res)
	c := float64(celsius)
	if math.IsNaN(c) {
		return 0
	}
	limit := float64(int64(1) << (width - 1))
	v := math.Round(c * lsb)
	if v > limit-1 {
		v = limit - 1
	} else if v < -limit {
		v = -limit
	}
	count := int16(v)
	if width == 13 {
		count <<= 3
	}
	return uint16(count)
}

// Precision is the temperature step of one LSB at the given resolution.
func Precision(res Resolution) physic.Temperature {
	lsb, _ := scale(res)
	return physic.Temperature(float64(physic.Kelvin) / lsb)
}

// ToPhysic converts degrees Celsius into a periph temperature.
func ToPhysic(celsius float32) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(math.Round(float64(celsius)*float64(physic.Kelvin)))
}

// Status is the decoded status register.
type Status struct {
	// Ready is set once a conversion result is available (!RDY is active low).
	Ready    bool
	Critical bool
	High     bool
	Low      bool
}

func DecodeStatus(raw byte) Status {
	return Status{
		Ready:    raw&statusNotReady == 0,
		Critical: raw&statusCritical != 0,
		High:     raw&statusHigh != 0,
		Low:      raw&statusLow != 0,
	}
}

// EncodeStatus is the inverse of DecodeStatus, used by simulators.
func EncodeStatus(s Status) byte {
	var raw byte
	if !s.Ready {
		raw |= statusNotReady
	}
	if s.Critical {
		raw |= statusCritical
	}
	if s.High {
		raw |= statusHigh
	}
	if s.Low {
		raw |= statusLow
	}
	return raw
}

func DecodeHysteresis(raw byte) byte {
	return raw & hysteresisMask
}

// EncodeHysteresis keeps the 4 bits the device implements.
func EncodeHysteresis(degrees byte) byte {
	return degrees & hysteresisMask
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	return strings.ReplaceAll(s, " ", "-")
}
