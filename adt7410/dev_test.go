package adt7410_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/thermal/adt7410"
	"github.com/mklimuk/thermal/sim"
)

func constant(t float32) sim.TemperatureBehaviorFunc {
	return func(ctx context.Context) (float32, error) { return t, nil }
}

func newSimDev(t *testing.T, temp float32) (*adt7410.Dev, *sim.ADT7410) {
	bus := sim.NewADT7410(constant(temp))
	dev, err := adt7410.New(context.Background(), bus, adt7410.WithModeDelay(0))
	require.NoError(t, err)
	return dev, bus
}

func TestDev_Temperature(t *testing.T) {
	ctx := context.Background()
	dev, _ := newSimDev(t, 21.5)

	temp, err := dev.GetTemperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(21.5), temp)

	require.NoError(t, dev.SetResolution(ctx, adt7410.Resolution16Bit))
	raw, err := dev.RawTemperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(344), raw)
	temp, err = dev.GetTemperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(21.5), temp)
}

func TestDev_ConversionFailure(t *testing.T) {
	failure := errors.New("adc stuck")
	bus := sim.NewADT7410(func(ctx context.Context) (float32, error) { return 0, failure })
	dev, err := adt7410.New(context.Background(), bus)
	require.NoError(t, err)
	_, err = dev.GetTemperature(context.Background())
	assert.ErrorIs(t, err, failure)
}

func TestDev_WrongAddress(t *testing.T) {
	bus := sim.NewADT7410(constant(20))
	_, err := adt7410.New(context.Background(), bus, adt7410.WithAddress(0x49))
	assert.ErrorIs(t, err, sim.ErrNoDevice)
}

func TestDev_PowerOnLimits(t *testing.T) {
	ctx := context.Background()
	dev, _ := newSimDev(t, 20)
	tests := []struct {
		limit    adt7410.Limit
		expected float32
	}{
		{adt7410.LimitHigh, 8},
		{adt7410.LimitLow, 1.25},
		{adt7410.LimitCritical, 18.375},
	}
	for _, test := range tests {
		t.Run(test.limit.String(), func(t *testing.T) {
			c, err := dev.Limit(ctx, test.limit)
			require.NoError(t, err)
			assert.Equal(t, test.expected, c)
		})
	}
	h, err := dev.Hysteresis(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(5), h)
}

func TestDev_LimitsRoundTrip(t *testing.T) {
	ctx := context.Background()
	dev, bus := newSimDev(t, 20)
	for _, res := range []adt7410.Resolution{adt7410.Resolution13Bit, adt7410.Resolution16Bit} {
		require.NoError(t, dev.SetResolution(ctx, res))
		require.NoError(t, dev.SetLimit(ctx, adt7410.LimitHigh, 29.5))
		require.NoError(t, dev.SetLimit(ctx, adt7410.LimitLow, -18.25))
		require.NoError(t, dev.SetLimit(ctx, adt7410.LimitCritical, 31))

		high, err := dev.Limit(ctx, adt7410.LimitHigh)
		require.NoError(t, err)
		assert.Equal(t, float32(29.5), high)
		low, err := dev.Limit(ctx, adt7410.LimitLow)
		require.NoError(t, err)
		assert.Equal(t, float32(-18.25), low)
		crit, err := dev.Limit(ctx, adt7410.LimitCritical)
		require.NoError(t, err)
		assert.Equal(t, float32(31), crit)
		assert.Equal(t, adt7410.EncodeTemperature(31, res), bus.Register16(adt7410.RegCriticalLimit))
	}

	require.NoError(t, dev.SetHysteresis(ctx, 2))
	h, err := dev.Hysteresis(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(2), h)
}

func TestDev_ConfigurationReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	dev, bus := newSimDev(t, 20)
	cfg := adt7410.Configuration{
		OperationMode: adt7410.OneSPS,
		FaultQueue:    adt7410.FaultQueue4,
		CTPolarity:    adt7410.ActiveHigh,
		InterruptMode: adt7410.ModeComparator,
	}
	require.NoError(t, dev.SetConfiguration(ctx, cfg))
	before := bus.Register(adt7410.RegConfiguration)

	require.NoError(t, dev.SetResolution(ctx, adt7410.Resolution16Bit))
	after := bus.Register(adt7410.RegConfiguration)
	assert.Equal(t, before&0x7F, after&0x7F)
	assert.Equal(t, byte(0x80), after&0x80)

	read, err := dev.Configuration(ctx)
	require.NoError(t, err)
	cfg.Resolution = adt7410.Resolution16Bit
	assert.Equal(t, cfg, read)
}

func TestDev_Status(t *testing.T) {
	ctx := context.Background()
	dev, bus := newSimDev(t, 20)
	status, err := dev.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, adt7410.Status{Ready: true}, status)

	bus.SetStatus(adt7410.Status{Ready: true, High: true, Critical: true})
	status, err = dev.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.High)
	assert.True(t, status.Critical)
	assert.False(t, status.Low)
}

func TestDev_MeasureOnce(t *testing.T) {
	ctx := context.Background()
	dev, bus := newSimDev(t, -10.5)
	temp, err := dev.MeasureOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(-10.5), temp)
	assert.Equal(t, adt7410.OneShot, adt7410.DecodeConfiguration(bus.Register(adt7410.RegConfiguration)).OperationMode)
}

func TestDev_MeasureOnceRepeatedWaitsForConversion(t *testing.T) {
	ctx := context.Background()
	delay := 20 * time.Millisecond
	bus := sim.NewADT7410(constant(22))
	dev, err := adt7410.New(ctx, bus, adt7410.WithModeDelay(delay))
	require.NoError(t, err)

	_, err = dev.MeasureOnce(ctx)
	require.NoError(t, err)
	start := time.Now()
	temp, err := dev.MeasureOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(22), temp)
	assert.GreaterOrEqual(t, time.Since(start), delay)
}

func TestDev_ConcurrentRegisterReads(t *testing.T) {
	ctx := context.Background()
	dev, _ := newSimDev(t, 20)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				high, err := dev.Limit(ctx, adt7410.LimitHigh)
				assert.NoError(t, err)
				assert.Equal(t, float32(8), high)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id, err := dev.ID(ctx)
				assert.NoError(t, err)
				assert.Equal(t, byte(0xCB), id)
			}
		}()
	}
	wg.Wait()
}

func TestDev_Reset(t *testing.T) {
	ctx := context.Background()
	dev, bus := newSimDev(t, 20)
	require.NoError(t, dev.SetResolution(ctx, adt7410.Resolution16Bit))
	require.NoError(t, dev.SetLimit(ctx, adt7410.LimitHigh, 50))

	require.NoError(t, dev.Reset(ctx))
	assert.Equal(t, 1, bus.Resets())
	assert.Equal(t, adt7410.Configuration{}, dev.CachedConfiguration())
	high, err := dev.Limit(ctx, adt7410.LimitHigh)
	require.NoError(t, err)
	assert.Equal(t, float32(8), high)
}

func TestDev_SenseAndHalt(t *testing.T) {
	dev, bus := newSimDev(t, 25)
	var env physic.Env
	require.NoError(t, dev.Sense(&env))
	assert.Equal(t, physic.ZeroCelsius+25*physic.Kelvin, env.Temperature)

	dev.Precision(&env)
	assert.Equal(t, physic.Kelvin/128, env.Temperature)

	require.NoError(t, dev.Halt())
	assert.Equal(t, adt7410.Shutdown, adt7410.DecodeConfiguration(bus.Register(adt7410.RegConfiguration)).OperationMode)
	assert.Equal(t, "adt7410: 0x48", dev.String())
}

func TestDev_ReadOnlyRegistersIgnoreWrites(t *testing.T) {
	ctx := context.Background()
	bus := sim.NewADT7410(constant(20))
	require.NoError(t, bus.WriteToAddr(ctx, adt7410.DefaultAddress, []byte{adt7410.RegID, 0x00}))
	assert.Equal(t, byte(0xCB), bus.Register(adt7410.RegID))
	assert.Empty(t, bus.Writes())
}
