package adt7410

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/thermal"
)

var ErrNotFound = fmt.Errorf("adt7410: device not found")

// Limit selects one of the three temperature setpoint registers.
type Limit byte

const (
	LimitHigh     = Limit(RegHighLimit)
	LimitLow      = Limit(RegLowLimit)
	LimitCritical = Limit(RegCriticalLimit)
)

func (l Limit) String() string {
	switch l {
	case LimitHigh:
		return "high"
	case LimitLow:
		return "low"
	case LimitCritical:
		return "critical"
	}
	return fmt.Sprintf("limit(%#x)", byte(l))
}

type Config struct {
	Address byte
	// ModeDelay is waited after an operation mode change so that the first conversion
	// in the new mode completes before the next read.
	ModeDelay time.Duration
}

type Option func(*Config)

func WithAddress(address byte) Option {
	return func(c *Config) {
		c.Address = address
	}
}

func WithModeDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.ModeDelay = delay
	}
}

// Dev represents an Analog Devices ADT7410 16-bit digital temperature sensor.
// See: https://www.analog.com/media/en/technical-documentation/data-sheets/ADT7410.pdf
//
// Usage:
//
//	dev, err := adt7410.New(ctx, bus)
//	t, err := dev.GetTemperature(ctx)
//
// Dev caches the configuration register so that field setters can do a read-modify-write
// without an extra bus read. Transport errors are returned as is, never retried.
type Dev struct {
	mx sync.Mutex
	// busMx keeps a register pointer write and the read that follows it together.
	// Lock order: mx, then busMx.
	busMx     sync.Mutex
	transport thermal.I2CBus
	config    Config
	cfg       byte
}

// New checks that an ADT7410 answers at the configured address and reads its
// configuration register.
func New(ctx context.Context, bus thermal.I2CBus, opts ...Option) (*Dev, error) {
	config := Config{
		Address:   DefaultAddress,
		ModeDelay: 240 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	dev := &Dev{transport: bus, config: config}
	id, err := dev.ID(ctx)
	if err != nil {
		return nil, err
	}
	if id&manufacturerMask != manufacturerID {
		return nil, fmt.Errorf("%w at %#x: unexpected id %#x", ErrNotFound, config.Address, id)
	}
	slog.Debug("adt7410: device present", "address", fmt.Sprintf("%#x", config.Address), "revision", id&revisionMask)
	if _, err := dev.Configuration(ctx); err != nil {
		return nil, err
	}
	return dev, nil
}

func (dev *Dev) Address() byte {
	return dev.config.Address
}

// ID returns the raw ID register: manufacturer ID in bits 7:3, revision in bits 2:0.
func (dev *Dev) ID(ctx context.Context) (byte, error) {
	var buf [1]byte
	if err := dev.readRegister(ctx, RegID, buf[:]); err != nil {
		return 0, fmt.Errorf("adt7410: could not read id register: %w", err)
	}
	return buf[0], nil
}

// RawTemperature returns the temperature register as read, flag bits included.
func (dev *Dev) RawTemperature(ctx context.Context) (uint16, error) {
	raw, err := dev.read16(ctx, RegTemperature)
	if err != nil {
		return 0, fmt.Errorf("adt7410: could not read temperature register: %w", err)
	}
	return raw, nil
}

// GetTemperature reads the last conversion result in Celsius.
func (dev *Dev) GetTemperature(ctx context.Context) (float32, error) {
	raw, err := dev.RawTemperature(ctx)
	if err != nil {
		return 0, err
	}
	return DecodeTemperature(raw, dev.resolution()), nil
}

// MeasureOnce starts a one-shot conversion, waits ModeDelay for it and reads the result.
// The device powers down afterwards. Each call triggers a new conversion.
func (dev *Dev) MeasureOnce(ctx context.Context) (float32, error) {
	if err := dev.SetOperationMode(ctx, OneShot); err != nil {
		return 0, err
	}
	return dev.GetTemperature(ctx)
}

func (dev *Dev) Status(ctx context.Context) (Status, error) {
	var buf [1]byte
	if err := dev.readRegister(ctx, RegStatus, buf[:]); err != nil {
		return Status{}, fmt.Errorf("adt7410: could not read status register: %w", err)
	}
	return DecodeStatus(buf[0]), nil
}

// Configuration reads the configuration register and refreshes the cached copy.
func (dev *Dev) Configuration(ctx context.Context) (Configuration, error) {
	var buf [1]byte
	if err := dev.readRegister(ctx, RegConfiguration, buf[:]); err != nil {
		return Configuration{}, fmt.Errorf("adt7410: could not read configuration register: %w", err)
	}
	dev.mx.Lock()
	dev.cfg = buf[0]
	dev.mx.Unlock()
	return DecodeConfiguration(buf[0]), nil
}

// CachedConfiguration returns the last configuration read from or written to the device.
func (dev *Dev) CachedConfiguration() Configuration {
	dev.mx.Lock()
	defer dev.mx.Unlock()
	return DecodeConfiguration(dev.cfg)
}

func (dev *Dev) SetConfiguration(ctx context.Context, cfg Configuration) error {
	return dev.UpdateConfiguration(ctx, func(c *Configuration) {
		*c = cfg
	})
}

// UpdateConfiguration applies fn to the cached configuration and writes the result.
// Fields fn does not touch keep their encoded value.
func (dev *Dev) UpdateConfiguration(ctx context.Context, fn func(*Configuration)) error {
	dev.mx.Lock()
	prev := dev.cfg
	cfg := DecodeConfiguration(prev)
	fn(&cfg)
	next := EncodeConfiguration(cfg)
	err := dev.writeRegister(ctx, RegConfiguration, next)
	if err == nil {
		dev.cfg = next
	}
	dev.mx.Unlock()
	if err != nil {
		return fmt.Errorf("adt7410: could not write configuration register: %w", err)
	}
	slog.Debug("adt7410: configuration written", "previous", fmt.Sprintf("%#08b", prev), "current", fmt.Sprintf("%#08b", next))
	// every one-shot write starts a new conversion
	if DecodeConfiguration(prev).OperationMode != cfg.OperationMode || cfg.OperationMode == OneShot {
		return dev.wait(ctx, dev.config.ModeDelay)
	}
	return nil
}

func (dev *Dev) SetResolution(ctx context.Context, res Resolution) error {
	return dev.UpdateConfiguration(ctx, func(c *Configuration) { c.Resolution = res })
}

// SetOperationMode changes the conversion mode and waits one conversion time. Writing
// OneShot always waits, even when the device is already in that mode.
func (dev *Dev) SetOperationMode(ctx context.Context, mode OperationMode) error {
	return dev.UpdateConfiguration(ctx, func(c *Configuration) { c.OperationMode = mode })
}

func (dev *Dev) SetFaultQueue(ctx context.Context, q FaultQueue) error {
	return dev.UpdateConfiguration(ctx, func(c *Configuration) { c.FaultQueue = q })
}

func (dev *Dev) SetCTPolarity(ctx context.Context, p Polarity) error {
	return dev.UpdateConfiguration(ctx, func(c *Configuration) { c.CTPolarity = p })
}

func (dev *Dev) SetINTPolarity(ctx context.Context, p Polarity) error {
	return dev.UpdateConfiguration(ctx, func(c *Configuration) { c.INTPolarity = p })
}

func (dev *Dev) SetInterruptMode(ctx context.Context, m InterruptMode) error {
	return dev.UpdateConfiguration(ctx, func(c *Configuration) { c.InterruptMode = m })
}

// Limit reads a setpoint register, decoded with the cached resolution.
func (dev *Dev) Limit(ctx context.Context, l Limit) (float32, error) {
	raw, err := dev.read16(ctx, byte(l))
	if err != nil {
		return 0, fmt.Errorf("adt7410: could not read %s limit: %w", l, err)
	}
	return DecodeTemperature(raw, dev.resolution()), nil
}

// SetLimit writes a setpoint register. Out of range values saturate.
func (dev *Dev) SetLimit(ctx context.Context, l Limit, celsius float32) error {
	raw := EncodeTemperature(celsius, dev.resolution())
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], raw)
	if err := dev.writeRegister(ctx, byte(l), buf[:]...); err != nil {
		return fmt.Errorf("adt7410: could not write %s limit: %w", l, err)
	}
	return nil
}

// Hysteresis returns the hysteresis applied to all three limits, in whole degrees.
func (dev *Dev) Hysteresis(ctx context.Context) (byte, error) {
	var buf [1]byte
	if err := dev.readRegister(ctx, RegHysteresis, buf[:]); err != nil {
		return 0, fmt.Errorf("adt7410: could not read hysteresis register: %w", err)
	}
	return DecodeHysteresis(buf[0]), nil
}

// SetHysteresis writes the hysteresis. Only values 0-15 are representable, higher bits
// are dropped.
func (dev *Dev) SetHysteresis(ctx context.Context, degrees byte) error {
	if err := dev.writeRegister(ctx, RegHysteresis, EncodeHysteresis(degrees)); err != nil {
		return fmt.Errorf("adt7410: could not write hysteresis register: %w", err)
	}
	return nil
}

// Reset issues a software reset. All registers return to their power-on values.
func (dev *Dev) Reset(ctx context.Context) error {
	dev.mx.Lock()
	dev.busMx.Lock()
	err := dev.transport.WriteToAddr(ctx, dev.config.Address, []byte{RegSoftwareReset})
	dev.busMx.Unlock()
	if err == nil {
		dev.cfg = 0
	}
	dev.mx.Unlock()
	if err != nil {
		return fmt.Errorf("adt7410: could not reset device: %w", err)
	}
	// datasheet asks for at least 200us before the next access
	return dev.wait(ctx, 200*time.Microsecond)
}

// Sense reads the temperature into env. Implements the periph sensing convention.
func (dev *Dev) Sense(env *physic.Env) error {
	t, err := dev.GetTemperature(context.Background())
	if err != nil {
		return err
	}
	env.Temperature = ToPhysic(t)
	return nil
}

// Precision reports the temperature step of one LSB at the cached resolution.
func (dev *Dev) Precision(env *physic.Env) {
	env.Temperature = Precision(dev.resolution())
	env.Pressure = 0
	env.Humidity = 0
}

// Halt puts the device into shutdown mode. Implements conn.Resource.
func (dev *Dev) Halt() error {
	return dev.SetOperationMode(context.Background(), Shutdown)
}

func (dev *Dev) String() string {
	return fmt.Sprintf("adt7410: %#x", dev.config.Address)
}

var _ conn.Resource = &Dev{}

func (dev *Dev) resolution() Resolution {
	dev.mx.Lock()
	defer dev.mx.Unlock()
	return DecodeConfiguration(dev.cfg).Resolution
}

func (dev *Dev) read16(ctx context.Context, reg byte) (uint16, error) {
	var buf [2]byte
	if err := dev.readRegister(ctx, reg, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (dev *Dev) readRegister(ctx context.Context, reg byte, buf []byte) error {
	dev.busMx.Lock()
	defer dev.busMx.Unlock()
	if rr, ok := dev.transport.(thermal.RegisterReader); ok {
		return rr.ReadRegFromAddr(ctx, dev.config.Address, reg, buf)
	}
	err := dev.transport.WriteToAddr(ctx, dev.config.Address, []byte{reg})
	if err != nil {
		return fmt.Errorf("could not set register pointer %#x: %w", reg, err)
	}
	return dev.transport.ReadFromAddr(ctx, dev.config.Address, buf)
}

func (dev *Dev) writeRegister(ctx context.Context, reg byte, data ...byte) error {
	dev.busMx.Lock()
	defer dev.busMx.Unlock()
	return dev.transport.WriteToAddr(ctx, dev.config.Address, append([]byte{reg}, data...))
}

func (dev *Dev) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
