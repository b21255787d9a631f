package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/thermal"
)

// fakeHID records requests and answers with queued responses.
type fakeHID struct {
	requests  [][]byte
	responses [][]byte
}

func (f *fakeHID) Write(b []byte) (int, error) {
	f.requests = append(f.requests, append([]byte(nil), b...))
	return len(b), nil
}

func (f *fakeHID) Read(b []byte) (int, error) {
	if len(f.responses) == 0 {
		return 0, errors.New("no response queued")
	}
	copy(b, f.responses[0])
	f.responses = f.responses[1:]
	return len(b), nil
}

func (f *fakeHID) Close() error {
	return nil
}

func (f *fakeHID) respond(data ...byte) {
	res := make([]byte, packetSize)
	copy(res, data)
	f.responses = append(f.responses, res)
}

func newTestAdapter(f *fakeHID) *MCP2221 {
	d := NewMCP2221(WithResponseWait(0))
	d.open = func(id ...int) (hidDevice, error) { return f, nil }
	return d
}

func TestMCP2221_WriteToAddr(t *testing.T) {
	f := &fakeHID{}
	f.respond(cmdWriteData, 0x00)
	d := newTestAdapter(f)
	require.NoError(t, d.WriteToAddr(context.Background(), 0x48, []byte{0x03, 0x80}))
	require.Len(t, f.requests, 1)
	assert.Equal(t, []byte{cmdWriteData, 0x02, 0x00, 0x90, 0x03, 0x80}, f.requests[0][:6])
}

func TestMCP2221_WriteBusy(t *testing.T) {
	f := &fakeHID{}
	f.respond(cmdWriteData, 0x01)
	d := newTestAdapter(f)
	err := d.WriteToAddr(context.Background(), 0x48, []byte{0x0B})
	assert.ErrorIs(t, err, thermal.ErrBusBusy)
}

func TestMCP2221_ReadFromAddr(t *testing.T) {
	f := &fakeHID{}
	f.respond(cmdReadData, 0x00)
	f.respond(cmdGetData, 0x00, 0x00, 0x02, 0x0C, 0x80)
	d := newTestAdapter(f)
	buf := make([]byte, 2)
	require.NoError(t, d.ReadFromAddr(context.Background(), 0x48, buf))
	assert.Equal(t, []byte{0x0C, 0x80}, buf)
	assert.Equal(t, byte(0x91), f.requests[0][3])
	assert.Equal(t, byte(cmdGetData), f.requests[1][0])
}

func TestMCP2221_ReadFromAddrErrors(t *testing.T) {
	tests := []struct {
		name    string
		getData []byte
	}{
		{"engine failure", []byte{cmdGetData, readFailed}},
		{"size mismatch", []byte{cmdGetData, 0x00, 0x00, 0x01, 0xFF}},
		{"invalid size", []byte{cmdGetData, 0x00, 0x00, 127}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := &fakeHID{}
			f.respond(cmdReadData, 0x00)
			f.respond(test.getData...)
			d := newTestAdapter(f)
			assert.Error(t, d.ReadFromAddr(context.Background(), 0x48, make([]byte, 2)))
		})
	}
}

func TestMCP2221_SetSpeed(t *testing.T) {
	f := &fakeHID{}
	f.respond(cmdStatus, 0x00, 0x00, setSpeed)
	d := newTestAdapter(f)
	require.NoError(t, d.SetSpeed(context.Background(), 100*physic.KiloHertz))
	assert.Equal(t, byte(setSpeed), f.requests[0][3])
	assert.Equal(t, byte(117), f.requests[0][4])

	f.respond(cmdStatus, 0x00, 0x00, speedRejected)
	assert.ErrorIs(t, d.SetSpeed(context.Background(), 400*physic.KiloHertz), thermal.ErrBusBusy)
	assert.Error(t, d.SetSpeed(context.Background(), 10*physic.MegaHertz))
}

func TestMCP2221_Release(t *testing.T) {
	f := &fakeHID{}
	f.respond(cmdStatus)
	d := newTestAdapter(f)
	require.NoError(t, d.Release(context.Background()))
	assert.Equal(t, byte(cancelCurrent), f.requests[0][2])
}

func TestMCP2221_InitReleasesPendingTransfer(t *testing.T) {
	f := &fakeHID{}
	status := make([]byte, packetSize)
	status[0] = cmdStatus
	status[9] = 0x02
	f.respond(status...)
	f.respond(cmdStatus)
	d := newTestAdapter(f)
	require.NoError(t, d.Init())
	require.Len(t, f.requests, 2)
	assert.Equal(t, byte(cancelCurrent), f.requests[1][2])
}

func TestMCP2221_DeviceNotFound(t *testing.T) {
	d := NewMCP2221()
	d.open = func(id ...int) (hidDevice, error) { return nil, ErrDeviceNotFound }
	assert.ErrorIs(t, d.WriteToAddr(context.Background(), 0x48, nil), ErrDeviceNotFound)
}

func TestBufferToStatus(t *testing.T) {
	buf := make([]byte, packetSize)
	buf[9], buf[10] = 0x10, 0x00
	buf[11], buf[12] = 0x08, 0x00
	buf[13] = 3
	buf[14] = 117
	buf[15] = 9
	buf[16], buf[17] = 0x90, 0x00
	buf[25] = 1
	status := bufferToStatus(buf)
	assert.Equal(t, &MCP2221Status{
		I2CDataBufferCounter:   3,
		I2CSpeedDivider:        117,
		I2CTimeout:             9,
		CurrentAddress:         "9000",
		LastWriteRequestedSize: 16,
		LastWriteSentSize:      8,
		ReadPending:            1,
	}, status)
}
