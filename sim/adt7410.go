// Package sim provides register-level device simulators that plug into any code
// expecting a thermal.I2CBus. They are used by tests and by the CLI "sim" adapter.
package sim

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/mklimuk/thermal"
	"github.com/mklimuk/thermal/adt7410"
)

var ErrNoDevice = fmt.Errorf("sim: no device acknowledged address")

// TemperatureBehaviorFunc returns the temperature in Celsius the simulated die is at.
type TemperatureBehaviorFunc func(ctx context.Context) (float32, error)

// power-on register contents
var adt7410Defaults = map[byte]byte{
	adt7410.RegHighLimit:         0x20,
	adt7410.RegHighLimit + 1:     0x00,
	adt7410.RegLowLimit:          0x05,
	adt7410.RegLowLimit + 1:      0x00,
	adt7410.RegCriticalLimit:     0x49,
	adt7410.RegCriticalLimit + 1: 0x80,
	adt7410.RegHysteresis:        0x05,
	adt7410.RegID:                0xCB,
}

// ADT7410 simulates an ADT7410 register file behind a register pointer.
// Writes of one byte move the pointer, longer writes store data from the pointer on.
// Reads start at the pointer and auto-increment.
//
// Example usage:
//
//	bus := sim.NewADT7410(func(ctx context.Context) (float32, error) { return 21.5, nil })
//	dev, err := adt7410.New(ctx, bus, adt7410.WithModeDelay(0))
type ADT7410 struct {
	mx       sync.Mutex
	address  byte
	behavior TemperatureBehaviorFunc
	regs     [0x0C]byte
	pointer  byte
	resets   int
	writes   []byte
}

type ADT7410Option func(*ADT7410)

func WithAddress(address byte) ADT7410Option {
	return func(s *ADT7410) {
		s.address = address
	}
}

func NewADT7410(behavior TemperatureBehaviorFunc, opts ...ADT7410Option) *ADT7410 {
	s := &ADT7410{
		address:  adt7410.DefaultAddress,
		behavior: behavior,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.powerOn()
	return s
}

var _ thermal.I2CBus = &ADT7410{}

func (s *ADT7410) powerOn() {
	s.regs = [0x0C]byte{}
	for reg, val := range adt7410Defaults {
		s.regs[reg] = val
	}
	// !RDY low: a result is available
	s.regs[adt7410.RegStatus] = 0x00
	s.pointer = adt7410.RegTemperature
}

func (s *ADT7410) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if address != s.address {
		return fmt.Errorf("%w: %#x", ErrNoDevice, address)
	}
	if len(buffer) == 0 {
		return nil
	}
	if buffer[0] == adt7410.RegSoftwareReset {
		s.resets++
		s.powerOn()
		return nil
	}
	if int(buffer[0]) >= len(s.regs) {
		return fmt.Errorf("sim: register %#x out of range", buffer[0])
	}
	s.pointer = buffer[0]
	for i, b := range buffer[1:] {
		reg := int(s.pointer) + i
		if reg >= len(s.regs) {
			break
		}
		if !writable(byte(reg)) {
			continue
		}
		s.regs[reg] = b
		s.writes = append(s.writes, byte(reg))
	}
	return nil
}

func (s *ADT7410) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if address != s.address {
		return fmt.Errorf("%w: %#x", ErrNoDevice, address)
	}
	if s.pointer == adt7410.RegTemperature || s.pointer == adt7410.RegTemperature+1 {
		if err := s.convert(ctx); err != nil {
			return err
		}
	}
	for i := range buffer {
		reg := int(s.pointer) + i
		if reg < len(s.regs) {
			buffer[i] = s.regs[reg]
		} else {
			buffer[i] = 0
		}
	}
	return nil
}

func (s *ADT7410) Release(ctx context.Context) error {
	return nil
}

// convert loads the temperature register from the behavior function.
func (s *ADT7410) convert(ctx context.Context) error {
	if s.behavior == nil {
		return nil
	}
	t, err := s.behavior(ctx)
	if err != nil {
		return fmt.Errorf("sim: conversion failed: %w", err)
	}
	cfg := adt7410.DecodeConfiguration(s.regs[adt7410.RegConfiguration])
	raw := adt7410.EncodeTemperature(t, cfg.Resolution)
	binary.BigEndian.PutUint16(s.regs[adt7410.RegTemperature:], raw)
	return nil
}

// SetStatus overrides the status register.
func (s *ADT7410) SetStatus(status adt7410.Status) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.regs[adt7410.RegStatus] = adt7410.EncodeStatus(status)
}

// SetRegister writes any register directly, read-only ones included.
func (s *ADT7410) SetRegister(reg byte, data ...byte) {
	s.mx.Lock()
	defer s.mx.Unlock()
	copy(s.regs[reg:], data)
}

// Register returns the current content of a register.
func (s *ADT7410) Register(reg byte) byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.regs[reg]
}

func (s *ADT7410) Register16(reg byte) uint16 {
	s.mx.Lock()
	defer s.mx.Unlock()
	return binary.BigEndian.Uint16(s.regs[reg:])
}

// Resets returns the number of software resets received.
func (s *ADT7410) Resets() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.resets
}

// Writes returns the registers written through the bus, in order.
func (s *ADT7410) Writes() []byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]byte(nil), s.writes...)
}

func writable(reg byte) bool {
	for _, r := range adt7410.Registers {
		if reg >= r.Offset && int(reg) < int(r.Offset)+r.Width {
			return r.Writable
		}
	}
	return false
}
