// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bus

import (
	"sync"
)

// Registers the simulator gives device-like side effects to.
const (
	simRegFIFOCountH = 0x72
	simRegFIFOCountL = 0x73
	simRegUserCtrl   = 0x6A
	simRegPwrMgmt1   = 0x6B
	simRegWhoAmI     = 0x75

	simUserCtrlFIFORst = 0x04
	simPwrMgmt1Reset   = 0x80

	// SimWhoAmI is the identity byte an MPU6886 reports.
	SimWhoAmI = 0x19
)

// Write is one register write captured by Sim.
type Write struct {
	Addr  byte
	Value byte
}

// Sim is an in-memory register file. Reset bits self-clear the way the
// silicon does, which is enough for the driver's read-modify-write paths.
type Sim struct {
	mu     sync.Mutex
	regs   [256]byte
	writes []Write
	reads  int
	fail   error
}

// NewSim returns a simulator that identifies as an MPU6886.
func NewSim() *Sim {
	s := &Sim{}
	s.regs[simRegWhoAmI] = SimWhoAmI
	return s
}

// Load stores data starting at addr, bypassing the write log.
func (s *Sim) Load(addr byte, data ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range data {
		s.regs[int(addr)+i] = b
	}
}

// SetTriplet stores three big-endian signed samples at base, base+2, base+4.
func (s *Sim) SetTriplet(base byte, x, y, z int16) {
	s.Load(base,
		byte(uint16(x)>>8), byte(uint16(x)),
		byte(uint16(y)>>8), byte(uint16(y)),
		byte(uint16(z)>>8), byte(uint16(z)),
	)
}

// SetFailure makes every subsequent transaction return err. Pass nil to heal.
func (s *Sim) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Register returns the current content of addr.
func (s *Sim) Register(addr byte) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[addr]
}

// Writes returns a copy of the write log.
func (s *Sim) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Write, len(s.writes))
	copy(out, s.writes)
	return out
}

// Reads returns the number of read transactions served.
func (s *Sim) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// ClearLog forgets recorded writes and reads.
func (s *Sim) ClearLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = nil
	s.reads = 0
}

func (s *Sim) WriteRegister(addr, value byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.writes = append(s.writes, Write{Addr: addr, Value: value})
	switch addr {
	case simRegUserCtrl:
		if value&simUserCtrlFIFORst != 0 {
			value &^= simUserCtrlFIFORst
			s.regs[simRegFIFOCountH] = 0
			s.regs[simRegFIFOCountL] = 0
		}
	case simRegPwrMgmt1:
		value &^= simPwrMgmt1Reset
	}
	s.regs[addr] = value
	return nil
}

func (s *Sim) ReadRegister(addr byte) (byte, error) {
	out, err := s.ReadRegisters(addr, 1)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

func (s *Sim) ReadRegisters(addr byte, n int) ([]byte, error) {
	if err := checkRange(addr, n); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	s.reads++
	out := make([]byte, n)
	copy(out, s.regs[addr:int(addr)+n])
	return out, nil
}
