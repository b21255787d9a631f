package i2c

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	gi2c "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/thermal"
)

var _ thermal.I2CBus = &NeoBus{}

// NeoBus talks to devices on a FriendlyElec NanoPi NEO bus through gobot.
// One gobot generic driver is started lazily per device address.
type NeoBus struct {
	mx       sync.Mutex
	adaptor  *nanopi.Adaptor
	bus      int
	channels map[byte]*gi2c.GenericDriver
}

// NewNeoBus connects the NanoPi NEO I2C adaptor. bus is the linux bus number (e.g. 0 for /dev/i2c-0).
func NewNeoBus(bus int) (*NeoBus, error) {
	adaptor := nanopi.NewNeoAdaptor()
	if err := adaptor.I2cBusAdaptor.Connect(); err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	return &NeoBus{
		adaptor:  adaptor,
		bus:      bus,
		channels: make(map[byte]*gi2c.GenericDriver),
	}, nil
}

func (b *NeoBus) channel(address byte) (*gi2c.GenericDriver, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if ch, ok := b.channels[address]; ok {
		return ch, nil
	}
	ch := gi2c.NewGenericDriver(b.adaptor, fmt.Sprintf("dev-%#x", address), int(address), func(c gi2c.Config) {
		c.SetBus(b.bus)
	})
	if err := ch.Start(); err != nil {
		return nil, fmt.Errorf("start error at %#x: %w", address, err)
	}
	slog.Debug("gobot i2c driver started", "bus", b.bus, "address", fmt.Sprintf("%#x", address))
	b.channels[address] = ch
	return ch, nil
}

func (b *NeoBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	ch, err := b.channel(address)
	if err != nil {
		return err
	}
	if err := ch.Read(buffer); err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *NeoBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	ch, err := b.channel(address)
	if err != nil {
		return err
	}
	if err := ch.Write(buffer); err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *NeoBus) Release(ctx context.Context) error {
	return nil
}

// Close halts every started driver and finalizes the adaptor.
func (b *NeoBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	for address, ch := range b.channels {
		if err := ch.Halt(); err != nil {
			slog.Warn("could not halt gobot i2c driver", "address", fmt.Sprintf("%#x", address), "error", err)
		}
		delete(b.channels, address)
	}
	return b.adaptor.I2cBusAdaptor.Finalize()
}

func (b *NeoBus) String() string {
	return fmt.Sprintf("nanopi-neo i2c-%d", b.bus)
}
