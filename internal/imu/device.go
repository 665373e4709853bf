// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package imu drives an MPU6886 6-axis IMU: power-up sequencing, full-scale
// range selection, and accelerometer/gyroscope/temperature reads converted
// to physical units.
package imu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/unit_imu/internal/bus"
)

var (
	// ErrInvalidAxis is returned by per-axis accessors for anything but X, Y, Z.
	ErrInvalidAxis = errors.New("invalid axis")
	// ErrTemperatureDisabled is returned when the device was opened without
	// temperature support.
	ErrTemperatureDisabled = errors.New("temperature reporting disabled")
)

// Settling delays after register writes, from the datasheet timing.
const (
	settleLong  = 10 * time.Millisecond
	settleShort = 1 * time.Millisecond
)

// Temperature conversion, °C = raw/326.8 + 25.
const (
	tempSensitivity = 326.8
	tempOffset      = 25.0
)

type initStep struct {
	reg    byte
	value  byte
	settle time.Duration
}

var initSequence = []initStep{
	{RegPwrMgmt1, pwrMgmt1Clear, settleLong},
	{RegPwrMgmt1, pwrMgmt1Reset, settleLong},
	{RegPwrMgmt1, pwrMgmt1ClkAuto, settleLong},
	{RegAccelConfig, DefaultAccelScale.configValue(), settleShort},
	{RegGyroConfig, DefaultGyroScale.configValue(), settleShort},
	{RegConfig, configDLPF1kHz, settleShort},
	{RegSmplrtDiv, smplrtDiv500Hz, settleShort},
	{RegIntEnable, 0x00, settleShort},
	{RegAccelConfig2, 0x00, settleShort},
	{RegUserCtrl, 0x00, settleShort},
	{RegFIFOEn, 0x00, settleShort},
	{RegIntPinCfg, intPinCfgLatched, settleShort},
	{RegIntEnable, intEnableDataRdy, settleLong},
}

// Opts configures a Dev.
type Opts struct {
	// Name prefixes log lines, e.g. "unit".
	Name string
	// Sleep implements settling delays. Defaults to time.Sleep.
	Sleep func(time.Duration)
	// Temperature enables Temperature() and the temperature field of Sample.
	Temperature bool
}

// DefaultOpts enables every feature and sleeps for real.
var DefaultOpts = Opts{
	Name:        "imu",
	Temperature: true,
}

// Dev is an MPU6886 on a register bus. All methods are safe for concurrent
// use; each one holds the device for its whole bus transaction, settling
// delays included, so read-modify-write sequences are never interleaved.
//
// Every operation initializes the device on first use.
type Dev struct {
	mu          sync.Mutex
	bus         bus.Bus
	name        string
	sleep       func(time.Duration)
	temperature bool

	initialized bool
	whoAmI      byte
	accelScale  AccelScale
	gyroScale   GyroScale
	aRes        float64
	gRes        float64
}

// New returns an uninitialized device on b. opts may be nil.
func New(b bus.Bus, opts *Opts) *Dev {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{
		bus:         b,
		name:        opts.Name,
		sleep:       opts.Sleep,
		temperature: opts.Temperature,
		accelScale:  DefaultAccelScale,
		gyroScale:   DefaultGyroScale,
		aRes:        DefaultAccelScale.Resolution(),
		gRes:        DefaultGyroScale.Resolution(),
	}
	if d.name == "" {
		d.name = "imu"
	}
	if d.sleep == nil {
		d.sleep = time.Sleep
	}
	return d
}

func (d *Dev) String() string {
	return fmt.Sprintf("MPU6886{%s accel:%s gyro:%s}", d.name, d.AccelScale(), d.GyroScale())
}

// Init runs the power-up sequence. Calling it again is a no-op. If the bus
// fails part-way the device stays uninitialized and the next call restarts
// the sequence from the top.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureInit()
}

// Reinit forgets the previous initialization and runs the power-up sequence
// again. Scales return to their defaults.
func (d *Dev) Reinit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
	return d.ensureInit()
}

// Initialized reports whether the power-up sequence has completed.
func (d *Dev) Initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

func (d *Dev) ensureInit() error {
	if d.initialized {
		return nil
	}
	d.sleep(settleLong)

	id, err := d.bus.ReadRegister(RegWhoAmI)
	if err != nil {
		return fmt.Errorf("%s: read WHO_AM_I: %w", d.name, err)
	}
	d.whoAmI = id
	log.Debugf("%s: WHO_AM_I = 0x%02X", d.name, id)

	for _, step := range initSequence {
		if err := d.bus.WriteRegister(step.reg, step.value); err != nil {
			return fmt.Errorf("%s: init write 0x%02X=0x%02X: %w", d.name, step.reg, step.value, err)
		}
		d.sleep(step.settle)
	}

	d.accelScale = DefaultAccelScale
	d.gyroScale = DefaultGyroScale
	d.aRes = d.accelScale.Resolution()
	d.gRes = d.gyroScale.Resolution()
	d.initialized = true
	log.Infof("%s: initialized (accel %s, gyro %s)", d.name, d.accelScale, d.gyroScale)
	return nil
}

// WhoAmI returns the identity byte read during Init. It is informational
// only; an unexpected value does not stop initialization.
func (d *Dev) WhoAmI() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return 0, err
	}
	return d.whoAmI, nil
}

// SetAccelScale programs the accelerometer range and recomputes the
// resolution factor. Selectors are not validated.
func (d *Dev) SetAccelScale(s AccelScale) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return err
	}
	if err := d.bus.WriteRegister(RegAccelConfig, s.configValue()); err != nil {
		return fmt.Errorf("%s: set accel scale %s: %w", d.name, s, err)
	}
	d.sleep(settleLong)
	d.accelScale = s
	d.aRes = s.Resolution()
	return nil
}

// SetGyroScale programs the gyroscope range and recomputes the resolution
// factor. Selectors are not validated.
func (d *Dev) SetGyroScale(s GyroScale) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return err
	}
	if err := d.bus.WriteRegister(RegGyroConfig, s.configValue()); err != nil {
		return fmt.Errorf("%s: set gyro scale %s: %w", d.name, s, err)
	}
	d.sleep(settleLong)
	d.gyroScale = s
	d.gRes = s.Resolution()
	return nil
}

func (d *Dev) AccelScale() AccelScale {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accelScale
}

func (d *Dev) GyroScale() GyroScale {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gyroScale
}

// AccelResolution returns the active g per LSB.
func (d *Dev) AccelResolution() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.aRes
}

// GyroResolution returns the active °/s per LSB.
func (d *Dev) GyroResolution() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gRes
}

func (d *Dev) readTriplet(base byte) ([3]int16, error) {
	buf, err := d.bus.ReadRegisters(base, 6)
	if err != nil {
		return [3]int16{}, err
	}
	return decodeTriplet(buf), nil
}

// ReadAcceleration returns the acceleration vector in g.
func (d *Dev) ReadAcceleration() (Vector3, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return Vector3{}, err
	}
	raw, err := d.readTriplet(RegAccelXoutH)
	if err != nil {
		return Vector3{}, fmt.Errorf("%s: read accel: %w", d.name, err)
	}
	return scaleTriplet(raw, d.aRes), nil
}

// ReadGyroscope returns the angular rate vector in °/s.
func (d *Dev) ReadGyroscope() (Vector3, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return Vector3{}, err
	}
	raw, err := d.readTriplet(RegGyroXoutH)
	if err != nil {
		return Vector3{}, fmt.Errorf("%s: read gyro: %w", d.name, err)
	}
	return scaleTriplet(raw, d.gRes), nil
}

// Acceleration returns one axis of ReadAcceleration.
func (d *Dev) Acceleration(axis Axis) (float64, error) {
	if !axis.valid() {
		return 0, fmt.Errorf("%s: accel axis %d: %w", d.name, axis, ErrInvalidAxis)
	}
	v, err := d.ReadAcceleration()
	if err != nil {
		return 0, err
	}
	return v.Component(axis), nil
}

// Gyroscope returns one axis of ReadGyroscope.
func (d *Dev) Gyroscope(axis Axis) (float64, error) {
	if !axis.valid() {
		return 0, fmt.Errorf("%s: gyro axis %d: %w", d.name, axis, ErrInvalidAxis)
	}
	v, err := d.ReadGyroscope()
	if err != nil {
		return 0, err
	}
	return v.Component(axis), nil
}

// AccelRaw reads the unscaled ADC count of one accelerometer axis.
func (d *Dev) AccelRaw(axis Axis) (int16, error) {
	return d.readAxisRaw(RegAccelXoutH, axis)
}

// GyroRaw reads the unscaled ADC count of one gyroscope axis.
func (d *Dev) GyroRaw(axis Axis) (int16, error) {
	return d.readAxisRaw(RegGyroXoutH, axis)
}

func (d *Dev) readAxisRaw(base byte, axis Axis) (int16, error) {
	if !axis.valid() {
		return 0, fmt.Errorf("%s: raw axis %d: %w", d.name, axis, ErrInvalidAxis)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return 0, err
	}
	addr := base + byte(axis)*2
	buf, err := d.bus.ReadRegisters(addr, 2)
	if err != nil {
		return 0, fmt.Errorf("%s: read raw 0x%02X: %w", d.name, addr, err)
	}
	return DecodeSigned16(buf[0], buf[1]), nil
}

// Temperature returns the die temperature in °C.
func (d *Dev) Temperature() (float64, error) {
	if !d.temperature {
		return 0, ErrTemperatureDisabled
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return 0, err
	}
	buf, err := d.bus.ReadRegisters(RegTempOutH, 2)
	if err != nil {
		return 0, fmt.Errorf("%s: read temperature: %w", d.name, err)
	}
	return tempCelsius(DecodeSigned16(buf[0], buf[1])), nil
}

func tempCelsius(raw int16) float64 {
	return float64(raw)/tempSensitivity + tempOffset
}

// ReadRegister reads one register for debugging tools.
func (d *Dev) ReadRegister(addr byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return 0, err
	}
	return d.bus.ReadRegister(addr)
}

// WriteRegister writes one register for debugging tools. Writing a range
// register behind the driver's back leaves the cached resolution stale;
// use SetAccelScale / SetGyroScale for that.
func (d *Dev) WriteRegister(addr, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return err
	}
	return d.bus.WriteRegister(addr, value)
}

// ReadAllRegisters reads every register listed in RegisterMap.
func (d *Dev) ReadAllRegisters() (map[byte]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return nil, err
	}
	out := make(map[byte]byte, len(registerMap))
	for _, r := range registerMap {
		v, err := d.bus.ReadRegister(r.Address)
		if err != nil {
			return nil, fmt.Errorf("%s: read %s: %w", d.name, r.Name, err)
		}
		out[r.Address] = v
	}
	return out, nil
}
