// Package profile loads ADT7410 setups from YAML files.
//
//	bus:
//	  adapter: generic
//	  device: /dev/i2c-1
//	  address: 0x48
//	sensor:
//	  resolution: 16bit
//	  mode: continuous
//	  fault_queue: 2
//	  ct_polarity: active-low
//	  int_polarity: active-high
//	  interrupt_mode: comparator
//	limits:
//	  high: 30
//	  low: 10.5
//	  critical: 31
//	  hysteresis: 2
//
// Every field is optional. Missing sensor fields keep the device value.
package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/thermal/adt7410"
)

type Bus struct {
	Adapter string `yaml:"adapter,omitempty"`
	Device  string `yaml:"device,omitempty"`
	Bus     int    `yaml:"bus,omitempty"`
	Address int    `yaml:"address,omitempty"`
}

type Sensor struct {
	Resolution    string `yaml:"resolution,omitempty"`
	Mode          string `yaml:"mode,omitempty"`
	FaultQueue    int    `yaml:"fault_queue,omitempty"`
	CTPolarity    string `yaml:"ct_polarity,omitempty"`
	INTPolarity   string `yaml:"int_polarity,omitempty"`
	InterruptMode string `yaml:"interrupt_mode,omitempty"`
}

type Limits struct {
	High       *float32 `yaml:"high,omitempty"`
	Low        *float32 `yaml:"low,omitempty"`
	Critical   *float32 `yaml:"critical,omitempty"`
	Hysteresis *byte    `yaml:"hysteresis,omitempty"`
}

type Profile struct {
	Bus    Bus    `yaml:"bus"`
	Sensor Sensor `yaml:"sensor"`
	Limits Limits `yaml:"limits"`
}

func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open profile: %w", err)
	}
	defer f.Close()
	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode reads a profile and validates its sensor section.
func Decode(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p Profile
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("could not decode profile: %w", err)
	}
	if p.Bus.Address < 0 || p.Bus.Address > 0x7F {
		return nil, fmt.Errorf("invalid i2c address %#x", p.Bus.Address)
	}
	if _, err := p.Sensor.Configure(adt7410.Configuration{}); err != nil {
		return nil, err
	}
	if p.Limits.Hysteresis != nil && *p.Limits.Hysteresis > 15 {
		return nil, fmt.Errorf("invalid hysteresis %d (expected 0-15)", *p.Limits.Hysteresis)
	}
	return &p, nil
}

func (p *Profile) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Configure applies the fields set in s on top of base.
func (s Sensor) Configure(base adt7410.Configuration) (adt7410.Configuration, error) {
	cfg := base
	var err error
	if s.Resolution != "" {
		if cfg.Resolution, err = adt7410.ParseResolution(s.Resolution); err != nil {
			return base, err
		}
	}
	if s.Mode != "" {
		if cfg.OperationMode, err = adt7410.ParseOperationMode(s.Mode); err != nil {
			return base, err
		}
	}
	if s.FaultQueue != 0 {
		if cfg.FaultQueue, err = adt7410.FaultQueueOf(s.FaultQueue); err != nil {
			return base, err
		}
	}
	if s.CTPolarity != "" {
		if cfg.CTPolarity, err = adt7410.ParsePolarity(s.CTPolarity); err != nil {
			return base, err
		}
	}
	if s.INTPolarity != "" {
		if cfg.INTPolarity, err = adt7410.ParsePolarity(s.INTPolarity); err != nil {
			return base, err
		}
	}
	if s.InterruptMode != "" {
		if cfg.InterruptMode, err = adt7410.ParseInterruptMode(s.InterruptMode); err != nil {
			return base, err
		}
	}
	return cfg, nil
}

// FromDevice captures the current device setup into a profile.
func FromDevice(ctx context.Context, dev *adt7410.Dev) (*Profile, error) {
	cfg, err := dev.Configuration(ctx)
	if err != nil {
		return nil, err
	}
	p := &Profile{
		Bus: Bus{Address: int(dev.Address())},
		Sensor: Sensor{
			Resolution:    cfg.Resolution.String(),
			Mode:          cfg.OperationMode.String(),
			FaultQueue:    cfg.FaultQueue.Faults(),
			CTPolarity:    cfg.CTPolarity.String(),
			INTPolarity:   cfg.INTPolarity.String(),
			InterruptMode: cfg.InterruptMode.String(),
		},
	}
	limits := []struct {
		limit adt7410.Limit
		dst   **float32
	}{
		{adt7410.LimitHigh, &p.Limits.High},
		{adt7410.LimitLow, &p.Limits.Low},
		{adt7410.LimitCritical, &p.Limits.Critical},
	}
	for _, l := range limits {
		c, err := dev.Limit(ctx, l.limit)
		if err != nil {
			return nil, err
		}
		*l.dst = &c
	}
	h, err := dev.Hysteresis(ctx)
	if err != nil {
		return nil, err
	}
	p.Limits.Hysteresis = &h
	return p, nil
}

// Apply writes the sensor configuration first, so that limits are encoded with the
// resolution the profile asks for, then the limits. Unset fields are not written.
func (p *Profile) Apply(ctx context.Context, dev *adt7410.Dev) error {
	if p.Sensor != (Sensor{}) {
		if _, err := p.Sensor.Configure(adt7410.Configuration{}); err != nil {
			return err
		}
		err := dev.UpdateConfiguration(ctx, func(c *adt7410.Configuration) {
			*c, _ = p.Sensor.Configure(*c)
		})
		if err != nil {
			return err
		}
	}
	limits := []struct {
		limit adt7410.Limit
		value *float32
	}{
		{adt7410.LimitHigh, p.Limits.High},
		{adt7410.LimitLow, p.Limits.Low},
		{adt7410.LimitCritical, p.Limits.Critical},
	}
	for _, l := range limits {
		if l.value == nil {
			continue
		}
		if err := dev.SetLimit(ctx, l.limit, *l.value); err != nil {
			return err
		}
	}
	if p.Limits.Hysteresis != nil {
		return dev.SetHysteresis(ctx, *p.Limits.Hysteresis)
	}
	return nil
}
