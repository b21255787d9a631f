package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/thermal/adt7410"
)

func TestADT7410_PowerOnDefaults(t *testing.T) {
	s := NewADT7410(nil)
	assert.Equal(t, uint16(0x2000), s.Register16(adt7410.RegHighLimit))
	assert.Equal(t, uint16(0x0500), s.Register16(adt7410.RegLowLimit))
	assert.Equal(t, uint16(0x4980), s.Register16(adt7410.RegCriticalLimit))
	assert.Equal(t, byte(0x05), s.Register(adt7410.RegHysteresis))
	assert.Equal(t, byte(0xCB), s.Register(adt7410.RegID))
	assert.Equal(t, byte(0x00), s.Register(adt7410.RegConfiguration))
}

func TestADT7410_PointerAutoIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewADT7410(nil)
	require.NoError(t, s.WriteToAddr(ctx, adt7410.DefaultAddress, []byte{adt7410.RegHighLimit}))
	buf := make([]byte, 4)
	require.NoError(t, s.ReadFromAddr(ctx, adt7410.DefaultAddress, buf))
	assert.Equal(t, []byte{0x20, 0x00, 0x05, 0x00}, buf)

	require.NoError(t, s.WriteToAddr(ctx, adt7410.DefaultAddress, []byte{adt7410.RegHysteresis}))
	buf = make([]byte, 3)
	require.NoError(t, s.ReadFromAddr(ctx, adt7410.DefaultAddress, buf))
	assert.Equal(t, []byte{0x05, 0xCB, 0x00}, buf)
}

func TestADT7410_ConversionFollowsResolution(t *testing.T) {
	ctx := context.Background()
	s := NewADT7410(func(ctx context.Context) (float32, error) { return 6.25, nil })
	buf := make([]byte, 2)
	require.NoError(t, s.WriteToAddr(ctx, adt7410.DefaultAddress, []byte{adt7410.RegTemperature}))
	require.NoError(t, s.ReadFromAddr(ctx, adt7410.DefaultAddress, buf))
	assert.Equal(t, []byte{0x19, 0x00}, buf)

	require.NoError(t, s.WriteToAddr(ctx, adt7410.DefaultAddress, []byte{adt7410.RegConfiguration, 0x80}))
	require.NoError(t, s.WriteToAddr(ctx, adt7410.DefaultAddress, []byte{adt7410.RegTemperature}))
	require.NoError(t, s.ReadFromAddr(ctx, adt7410.DefaultAddress, buf))
	assert.Equal(t, []byte{0x00, 0x64}, buf)
}

func TestADT7410_Reset(t *testing.T) {
	ctx := context.Background()
	s := NewADT7410(nil)
	require.NoError(t, s.WriteToAddr(ctx, adt7410.DefaultAddress, []byte{adt7410.RegConfiguration, 0xE0}))
	require.NoError(t, s.WriteToAddr(ctx, adt7410.DefaultAddress, []byte{adt7410.RegSoftwareReset}))
	assert.Equal(t, byte(0x00), s.Register(adt7410.RegConfiguration))
	assert.Equal(t, 1, s.Resets())
}

func TestADT7410_Errors(t *testing.T) {
	ctx := context.Background()
	failure := errors.New("adc stuck")
	s := NewADT7410(func(ctx context.Context) (float32, error) { return 0, failure }, WithAddress(0x4B))
	assert.ErrorIs(t, s.WriteToAddr(ctx, 0x48, []byte{0x00}), ErrNoDevice)
	assert.ErrorIs(t, s.ReadFromAddr(ctx, 0x48, make([]byte, 1)), ErrNoDevice)
	assert.Error(t, s.WriteToAddr(ctx, 0x4B, []byte{0x20}))
	assert.ErrorIs(t, s.ReadFromAddr(ctx, 0x4B, make([]byte, 2)), failure)
}
