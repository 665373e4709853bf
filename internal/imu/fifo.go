// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"encoding/binary"
	"fmt"
)

// EnableFIFO routes accelerometer and gyroscope samples into the FIFO, or
// stops doing so.
func (d *Dev) EnableFIFO(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return err
	}
	fifoEn, userCtrl := byte(0x00), byte(0x00)
	if enable {
		fifoEn, userCtrl = fifoEnAccelGyro, userCtrlFIFOEn
	}
	if err := d.bus.WriteRegister(RegFIFOEn, fifoEn); err != nil {
		return fmt.Errorf("%s: write FIFO_EN: %w", d.name, err)
	}
	if err := d.bus.WriteRegister(RegUserCtrl, userCtrl); err != nil {
		return fmt.Errorf("%s: write USER_CTRL: %w", d.name, err)
	}
	return nil
}

// FIFOCount returns the number of bytes queued in the FIFO.
func (d *Dev) FIFOCount() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return 0, err
	}
	buf, err := d.bus.ReadRegisters(RegFIFOCountH, 2)
	if err != nil {
		return 0, fmt.Errorf("%s: read FIFO count: %w", d.name, err)
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ResetFIFO sets FIFO_RST in USER_CTRL, keeping the other bits.
func (d *Dev) ResetFIFO() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return err
	}
	ctrl, err := d.bus.ReadRegister(RegUserCtrl)
	if err != nil {
		return fmt.Errorf("%s: read USER_CTRL: %w", d.name, err)
	}
	if err := d.bus.WriteRegister(RegUserCtrl, ctrl|userCtrlFIFORst); err != nil {
		return fmt.Errorf("%s: write USER_CTRL: %w", d.name, err)
	}
	return nil
}
