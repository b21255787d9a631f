package gpio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/thermal"
)

type registry int

const DefaultMCP23017Address = 0x20

const (
	IODIRA registry = iota
	IODIRB
	GPPUA
	GPPUB
	GPIOA
	GPIOB
)

// register addresses for IOCON.BANK = 0 and IOCON.BANK = 1
var BankAddr = []map[registry]byte{
	{
		IODIRA: 0x00,
		IODIRB: 0x01,
		GPPUA:  0x0C,
		GPPUB:  0x0D,
		GPIOA:  0x12,
		GPIOB:  0x13,
	},
	{
		IODIRA: 0x00,
		IODIRB: 0x10,
		GPPUA:  0x06,
		GPPUB:  0x16,
		GPIOA:  0x09,
		GPIOB:  0x19,
	},
}

/*
MCP23017 is a 16-bit I/O expander. Steps to read inputs:

1. Set 0xFF to IODIR registry (all inputs)
2. Configure pull-ups (GPPU)
3. Read port registry (GPIO)
*/
type MCP23017 struct {
	mx         sync.Mutex
	transport  thermal.I2CBus
	bank       int
	address    byte
	retryLimit int
}

func NewMCP23017(bus thermal.I2CBus, address byte) *MCP23017 {
	return &MCP23017{retryLimit: 2, transport: bus, address: address}
}

// InitA sets IODIR registry to inout on I/O pool A (1 = input)
func (m *MCP23017) InitA(ctx context.Context, inout byte) error {
	return m.retry(ctx, "initialize gpio A set", func() error {
		return m.writeRegistry(ctx, BankAddr[m.bank][IODIRA], inout)
	})
}

// InitB sets IODIR registry to inout on I/O pool B (1 = input)
func (m *MCP23017) InitB(ctx context.Context, inout byte) error {
	return m.retry(ctx, "initialize gpio B set", func() error {
		return m.writeRegistry(ctx, BankAddr[m.bank][IODIRB], inout)
	})
}

// PullUpA enables the 100k pull-up resistors on set A
func (m *MCP23017) PullUpA(ctx context.Context, settings byte) error {
	return m.retry(ctx, "set pull-up on gpio A set", func() error {
		return m.writeRegistry(ctx, BankAddr[m.bank][GPPUA], settings)
	})
}

func (m *MCP23017) PullUpB(ctx context.Context, settings byte) error {
	return m.retry(ctx, "set pull-up on gpio B set", func() error {
		return m.writeRegistry(ctx, BankAddr[m.bank][GPPUB], settings)
	})
}

// Read returns the levels of both sets: A first.
func (m *MCP23017) Read(ctx context.Context) ([]byte, error) {
	res := make([]byte, 2)
	var err error
	res[0], err = m.ReadA(ctx)
	if err != nil {
		return nil, err
	}
	res[1], err = m.ReadB(ctx)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *MCP23017) ReadA(ctx context.Context) (byte, error) {
	var res byte
	err := m.retry(ctx, "read gpio A set", func() error {
		var err error
		res, err = m.readRegistry(ctx, BankAddr[m.bank][GPIOA])
		return err
	})
	return res, err
}

func (m *MCP23017) ReadB(ctx context.Context) (byte, error) {
	var res byte
	err := m.retry(ctx, "read gpio B set", func() error {
		var err error
		res, err = m.readRegistry(ctx, BankAddr[m.bank][GPIOB])
		return err
	})
	return res, err
}

// retry runs op again after releasing the bus as long as the transport reports it busy.
func (m *MCP23017) retry(ctx context.Context, what string, op func() error) error {
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, thermal.ErrBusBusy) {
			return fmt.Errorf("could not %s: %w", what, err)
		}
		// try to release the bus
		_ = m.transport.Release(ctx)
	}
	return fmt.Errorf("could not %s (retry limit reached): %w", what, err)
}

func (m *MCP23017) writeRegistry(ctx context.Context, addr byte, value byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.transport.WriteToAddr(ctx, m.address, []byte{addr, value})
}

func (m *MCP23017) readRegistry(ctx context.Context, addr byte) (byte, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	err := m.transport.WriteToAddr(ctx, m.address, []byte{addr})
	if err != nil {
		return 0x00, fmt.Errorf("could not set I/O registry address: %w", err)
	}
	buf := make([]byte, 1)
	err = m.transport.ReadFromAddr(ctx, m.address, buf)
	if err != nil {
		return 0x00, fmt.Errorf("could not read gpio data: %w", err)
	}
	return buf[0], nil
}
