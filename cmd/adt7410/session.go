package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/thermal"
	"github.com/mklimuk/thermal/adapter"
	"github.com/mklimuk/thermal/adt7410"
	"github.com/mklimuk/thermal/cmd/adt7410/console"
	"github.com/mklimuk/thermal/i2c"
	"github.com/mklimuk/thermal/profile"
	"github.com/mklimuk/thermal/sim"
	"github.com/mklimuk/thermal/snsctx"
)

// session is an opened bus with an ADT7410 found on it.
type session struct {
	ctx     context.Context
	bus     thermal.I2CBus
	dev     *adt7410.Dev
	profile *profile.Profile
	closers []func() error
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			console.Errorf("error closing bus: %s", console.Red(err))
		}
	}
}

// settings resolves bus settings: explicit flags win over the profile, the profile wins
// over flag defaults.
type settings struct {
	adapter string
	device  string
	bus     int
	address byte
	speed   physic.Frequency
}

func resolveSettings(c *cli.Context, p *profile.Profile) (settings, error) {
	s := settings{
		adapter: c.String("adapter"),
		device:  c.String("device"),
		bus:     c.Int("bus"),
	}
	address := c.String("address")
	if p != nil {
		if p.Bus.Adapter != "" && !c.IsSet("adapter") {
			s.adapter = p.Bus.Adapter
		}
		if p.Bus.Device != "" && !c.IsSet("device") {
			s.device = p.Bus.Device
		}
		if p.Bus.Bus != 0 && !c.IsSet("bus") {
			s.bus = p.Bus.Bus
		}
		if p.Bus.Address != 0 && !c.IsSet("address") {
			address = strconv.FormatInt(int64(p.Bus.Address), 16)
		}
	}
	addr, err := parseAddress(address)
	if err != nil {
		return s, err
	}
	s.address = addr
	speed, err := busSpeed(c.Int("speed"))
	if err != nil {
		return s, err
	}
	s.speed = speed
	return s, nil
}

// busSpeed converts a clock given in kHz.
func busSpeed(khz int) (physic.Frequency, error) {
	if khz <= 0 || khz > 1000 {
		return 0, fmt.Errorf("invalid i2c speed %dkHz", khz)
	}
	return physic.Frequency(khz) * physic.KiloHertz, nil
}

func parseAddress(s string) (byte, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil || v > 0x7F {
		return 0, fmt.Errorf("invalid i2c address %q", s)
	}
	return byte(v), nil
}

func openSession(c *cli.Context) (*session, error) {
	ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
	var p *profile.Profile
	if path := c.String("profile"); path != "" {
		var err error
		p, err = profile.Load(path)
		if err != nil {
			return nil, console.Exit(console.ExitError, "profile error: %s", console.Red(err))
		}
	}
	cfg, err := resolveSettings(c, p)
	if err != nil {
		return nil, console.Exit(console.ExitError, "%s", console.Red(err))
	}
	ctx = snsctx.WithLogger(ctx, slog.Default().With("adapter", cfg.adapter))
	s := &session{ctx: ctx, profile: p}
	switch cfg.adapter {
	case "mcp2221":
		ad := adapter.NewMCP2221()
		if err := ad.Init(); err != nil {
			return nil, console.Exit(console.ExitError, "adapter initialization error: %s", console.Red(err))
		}
		if err := ad.SetSpeed(ctx, cfg.speed); err != nil {
			slog.Warn("could not set bus speed", "speed", cfg.speed, "error", err)
		}
		s.bus = ad
	case "generic":
		bus, err := i2c.NewGenericBus(cfg.device)
		if err != nil {
			return nil, console.Exit(console.ExitError, "adapter initialization error: %s", console.Red(err))
		}
		if err := bus.SetSpeed(cfg.speed); err != nil {
			slog.Warn("could not set bus speed", "speed", cfg.speed, "error", err)
		}
		s.bus = bus
		s.closers = append(s.closers, bus.Close)
	case "nanopi":
		bus, err := i2c.NewNeoBus(cfg.bus)
		if err != nil {
			return nil, console.Exit(console.ExitError, "adapter initialization error: %s", console.Red(err))
		}
		s.bus = bus
		s.closers = append(s.closers, bus.Close)
	case "sim":
		s.bus = sim.NewADT7410(drift(21.5, time.Now()), sim.WithAddress(cfg.address))
	default:
		return nil, console.Exit(console.ExitError, "unknown adapter %q", cfg.adapter)
	}
	dev, err := adt7410.New(ctx, s.bus, adt7410.WithAddress(cfg.address))
	if err != nil {
		s.Close()
		if errors.Is(err, adt7410.ErrNotFound) {
			return nil, console.Exit(console.ExitNotFound, "%s", console.Red(err))
		}
		return nil, console.Exit(console.ExitError, "sensor initialization error: %s", console.Red(err))
	}
	s.dev = dev
	return s, nil
}

// drift makes the simulated die wander slowly around base.
func drift(base float32, start time.Time) sim.TemperatureBehaviorFunc {
	return func(ctx context.Context) (float32, error) {
		elapsed := time.Since(start).Seconds()
		return base + float32(0.5*math.Sin(elapsed/30)), nil
	}
}

func withSession(action func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		return action(c, s)
	}
}
