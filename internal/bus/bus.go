// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus provides the register-addressed transport the IMU driver talks
// through: a periph.io I2C implementation for hardware and an in-memory
// register file for tests and bench runs without a sensor attached.
package bus

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Bus is a byte-wide register bus. Implementations must serialize
// transactions; callers never interleave on the wire.
type Bus interface {
	WriteRegister(addr, value byte) error
	ReadRegister(addr byte) (byte, error)
	ReadRegisters(addr byte, n int) ([]byte, error)
}

// ErrOutOfRange is returned for burst reads that are empty or run past 0xFF.
var ErrOutOfRange = errors.New("register range out of bounds")

// DefaultAddr is the MPU6886 I2C address with AD0 low.
const DefaultAddr = 0x68

func checkRange(addr byte, n int) error {
	if n <= 0 || int(addr)+n > 256 {
		return fmt.Errorf("read %d bytes at 0x%02X: %w", n, addr, ErrOutOfRange)
	}
	return nil
}

// I2C is a Bus backed by a periph.io I2C device.
type I2C struct {
	mu     sync.Mutex
	dev    i2c.Dev
	closer i2c.BusCloser
}

// NewI2C wraps an already opened bus. The caller keeps ownership of b.
func NewI2C(b i2c.Bus, addr uint16) *I2C {
	return &I2C{dev: i2c.Dev{Addr: addr, Bus: b}}
}

// Open initializes the periph host and opens the named I2C bus. An empty
// name selects the first bus registered on the host.
func Open(busName string, addr uint16) (*I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	b, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("i2c open %q: %w", busName, err)
	}
	if addr == 0 {
		addr = DefaultAddr
	}
	return &I2C{dev: i2c.Dev{Addr: addr, Bus: b}, closer: b}, nil
}

// Close releases the bus if it was opened by Open.
func (b *I2C) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func (b *I2C) String() string {
	return fmt.Sprintf("I2C{%s@0x%02X}", b.dev.Bus, b.dev.Addr)
}

func (b *I2C) WriteRegister(addr, value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.dev.Tx([]byte{addr, value}, nil); err != nil {
		return fmt.Errorf("i2c write 0x%02X: %w", addr, err)
	}
	return nil
}

func (b *I2C) ReadRegister(addr byte) (byte, error) {
	out, err := b.ReadRegisters(addr, 1)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

func (b *I2C) ReadRegisters(addr byte, n int) ([]byte, error) {
	if err := checkRange(addr, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.dev.Tx([]byte{addr}, out); err != nil {
		return nil, fmt.Errorf("i2c read 0x%02X (%d bytes): %w", addr, n, err)
	}
	return out, nil
}
