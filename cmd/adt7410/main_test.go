package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/thermal/cmd/adt7410/console"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	var out bytes.Buffer
	console.SetOutput(&out, &out)
	t.Cleanup(func() { console.SetOutput(os.Stdout, os.Stderr) })
	return &out
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in       string
		expected byte
		fail     bool
	}{
		{"48", 0x48, false},
		{"0x4B", 0x4B, false},
		{"4a", 0x4A, false},
		{"80", 0, true},
		{"zz", 0, true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			addr, err := parseAddress(test.in)
			if test.fail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, addr)
		})
	}
}

func TestRun_SimTemperature(t *testing.T) {
	out := captureOutput(t)
	code := run([]string{"adt7410", "--adapter", "sim", "temperature", "--raw"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "°C")
	assert.Contains(t, out.String(), "raw:")
}

func TestRun_SimCommands(t *testing.T) {
	tests := [][]string{
		{"status"},
		{"config", "get"},
		{"config", "set", "--resolution", "16bit", "--fault-queue", "2"},
		{"limits", "get"},
		{"limits", "set", "--high", "30", "--hysteresis", "3"},
		{"reset", "--yes"},
		{"dump"},
	}
	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			captureOutput(t)
			code := run(append([]string{"adt7410", "--adapter", "sim"}, args...))
			assert.Equal(t, 0, code)
		})
	}
}

func TestRun_GlobalFlags(t *testing.T) {
	tests := [][]string{
		{"--version"},
		{"--verbose", "--adapter", "sim", "status"},
		{"--adapter", "sim", "--speed", "400", "status"},
	}
	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			captureOutput(t)
			assert.Equal(t, 0, run(append([]string{"adt7410"}, args...)))
		})
	}
}

func TestBusSpeed(t *testing.T) {
	f, err := busSpeed(400)
	require.NoError(t, err)
	assert.Equal(t, 400*physic.KiloHertz, f)

	_, err = busSpeed(0)
	assert.Error(t, err)
	_, err = busSpeed(-100)
	assert.Error(t, err)
	_, err = busSpeed(3400)
	assert.Error(t, err)
}

func TestRun_InvalidInput(t *testing.T) {
	tests := [][]string{
		{"--adapter", "sim", "config", "set", "--resolution", "12bit"},
		{"--adapter", "sim", "limits", "set", "--hysteresis", "16"},
		{"--adapter", "parallel", "temperature"},
		{"--adapter", "sim", "apply"},
		{"--adapter", "sim", "config", "set", "--fault-queue", "0"},
		{"--adapter", "sim", "--speed", "0", "status"},
	}
	for _, args := range tests {
		t.Run(args[len(args)-1], func(t *testing.T) {
			captureOutput(t)
			assert.Equal(t, console.ExitError, run(append([]string{"adt7410"}, args...)))
		})
	}
}

func TestRun_ProfileSelectsBus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bus:\n  adapter: sim\n  address: 0x4a\nsensor:\n  resolution: 16bit\n"), 0o600))
	out := captureOutput(t)
	assert.Equal(t, 0, run([]string{"adt7410", "--profile", path, "apply"}))
	assert.Contains(t, out.String(), "16bit")
}
