package bus_test

import (
	"errors"
	"testing"

	"github.com/relabs-tech/unit_imu/internal/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimReadsBackLoadedBytes(t *testing.T) {
	s := bus.NewSim()
	s.SetTriplet(0x3B, 1, -2, 8192)

	got, err := s.ReadRegisters(0x3B, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0xFF, 0xFE, 0x20, 0x00}, got)

	id, err := s.ReadRegister(0x75)
	require.NoError(t, err)
	assert.Equal(t, byte(bus.SimWhoAmI), id)
	assert.Equal(t, 2, s.Reads())
}

func TestSimRecordsWrites(t *testing.T) {
	s := bus.NewSim()
	require.NoError(t, s.WriteRegister(0x1C, 0x10))
	require.NoError(t, s.WriteRegister(0x1B, 0x18))

	assert.Equal(t, []bus.Write{{Addr: 0x1C, Value: 0x10}, {Addr: 0x1B, Value: 0x18}}, s.Writes())
	assert.Equal(t, byte(0x10), s.Register(0x1C))

	s.ClearLog()
	assert.Empty(t, s.Writes())
}

func TestSimSelfClearingBits(t *testing.T) {
	s := bus.NewSim()
	s.Load(0x72, 0x01, 0x20)

	require.NoError(t, s.WriteRegister(0x6A, 0x44))
	assert.Equal(t, byte(0x40), s.Register(0x6A), "FIFO_RST must self-clear")
	assert.Equal(t, byte(0), s.Register(0x72))
	assert.Equal(t, byte(0), s.Register(0x73))

	require.NoError(t, s.WriteRegister(0x6B, 0x80))
	assert.Equal(t, byte(0), s.Register(0x6B), "H_RESET must self-clear")
}

func TestSimFailure(t *testing.T) {
	s := bus.NewSim()
	boom := errors.New("nack")
	s.SetFailure(boom)

	_, err := s.ReadRegister(0x75)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.WriteRegister(0x6B, 0), boom)

	s.SetFailure(nil)
	_, err = s.ReadRegister(0x75)
	assert.NoError(t, err)
}

func TestSimRangeChecks(t *testing.T) {
	s := bus.NewSim()

	tests := []struct {
		name string
		addr byte
		n    int
	}{
		{name: "empty", addr: 0x3B, n: 0},
		{name: "negative", addr: 0x3B, n: -1},
		{name: "past end", addr: 0xFE, n: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ReadRegisters(tt.addr, tt.n)
			assert.ErrorIs(t, err, bus.ErrOutOfRange)
		})
	}

	_, err := s.ReadRegisters(0xFA, 6)
	assert.NoError(t, err)
}
