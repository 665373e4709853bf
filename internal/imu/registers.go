// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"strings"
)

// MPU6886 register addresses.
const (
	RegSmplrtDiv    = 0x19
	RegConfig       = 0x1A
	RegGyroConfig   = 0x1B
	RegAccelConfig  = 0x1C
	RegAccelConfig2 = 0x1D
	RegFIFOEn       = 0x23
	RegIntPinCfg    = 0x37
	RegIntEnable    = 0x38
	RegIntStatus    = 0x3A
	RegAccelXoutH   = 0x3B
	RegTempOutH     = 0x41
	RegGyroXoutH    = 0x43
	RegUserCtrl     = 0x6A
	RegPwrMgmt1     = 0x6B
	RegPwrMgmt2     = 0x6C
	RegFIFOCountH   = 0x72
	RegFIFORW       = 0x74
	RegWhoAmI       = 0x75
)

// Bit values used by the driver.
const (
	pwrMgmt1Clear    = 0x00
	pwrMgmt1Reset    = 0x80 // H_RESET
	pwrMgmt1ClkAuto  = 0x01 // CLKSEL auto, leaves reset
	configDLPF1kHz   = 0x01
	smplrtDiv500Hz   = 0x01
	intPinCfgLatched = 0x22 // LATCH_INT_EN | BYPASS_EN
	intEnableDataRdy = 0x01

	fifoEnAccelGyro = 0x18
	userCtrlFIFOEn  = 0x40
	userCtrlFIFORst = 0x04
)

// BitField describes one field of a register for debugging tools.
type BitField struct {
	Bits        string `json:"bits" yaml:"bits"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Values      string `json:"values,omitempty" yaml:"values,omitempty"`
}

// RegisterInfo is register metadata: name, access and bit layout.
type RegisterInfo struct {
	Address     byte       `json:"address" yaml:"address"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Access      string     `json:"access" yaml:"access"` // "R", "W", "RW"
	Default     byte       `json:"default" yaml:"default"`
	BitFields   []BitField `json:"bit_fields,omitempty" yaml:"bit_fields,omitempty"`
}

// Writable reports whether the register accepts writes.
func (r RegisterInfo) Writable() bool {
	return strings.Contains(r.Access, "W")
}

// Hex returns the address formatted as 0xNN.
func (r RegisterInfo) Hex() string {
	return fmt.Sprintf("0x%02X", r.Address)
}

var registerMap = []RegisterInfo{
	{Address: RegSmplrtDiv, Name: "SMPLRT_DIV", Description: "Sample Rate Divider", Access: "RW",
		BitFields: []BitField{
			{Bits: "7:0", Name: "SMPLRT_DIV", Description: "Sample Rate = Internal_Sample_Rate / (1 + SMPLRT_DIV)", Values: "0-255"},
		}},
	{Address: RegConfig, Name: "CONFIG", Description: "Configuration (gyro DLPF)", Access: "RW", Default: 0x80,
		BitFields: []BitField{
			{Bits: "6", Name: "FIFO_MODE", Description: "FIFO mode", Values: "0=Overwrite, 1=Block new data"},
			{Bits: "2:0", Name: "DLPF_CFG", Description: "Digital Low Pass Filter", Values: "0=250Hz, 1=176Hz, 2=92Hz, 3=41Hz, 4=20Hz, 5=10Hz, 6=5Hz, 7=3281Hz"},
		}},
	{Address: RegGyroConfig, Name: "GYRO_CONFIG", Description: "Gyroscope Configuration", Access: "RW",
		BitFields: []BitField{
			{Bits: "4:3", Name: "FS_SEL", Description: "Gyro Full Scale Range", Values: "0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s"},
			{Bits: "1:0", Name: "FCHOICE_B", Description: "Gyro DLPF bypass", Values: "0=DLPF enabled"},
		}},
	{Address: RegAccelConfig, Name: "ACCEL_CONFIG", Description: "Accelerometer Configuration", Access: "RW",
		BitFields: []BitField{
			{Bits: "4:3", Name: "ACCEL_FS_SEL", Description: "Accel Full Scale Range", Values: "0=±2g, 1=±4g, 2=±8g, 3=±16g"},
		}},
	{Address: RegAccelConfig2, Name: "ACCEL_CONFIG2", Description: "Accelerometer Configuration 2", Access: "RW",
		BitFields: []BitField{
			{Bits: "5:4", Name: "DEC2_CFG", Description: "Low-power averaging", Values: "0=4, 1=8, 2=16, 3=32 samples"},
			{Bits: "3", Name: "ACCEL_FCHOICE_B", Description: "Accel DLPF bypass", Values: "0=DLPF enabled, 1=Bypass"},
			{Bits: "2:0", Name: "A_DLPF_CFG", Description: "Accel DLPF Config", Values: "0=218Hz ... 7=420Hz"},
		}},
	{Address: RegFIFOEn, Name: "FIFO_EN", Description: "FIFO Enable", Access: "RW",
		BitFields: []BitField{
			{Bits: "4", Name: "GYRO_FIFO_EN", Description: "Write gyro and temperature to FIFO", Values: "0=Disabled, 1=Enabled"},
			{Bits: "3", Name: "ACC_FIFO_EN", Description: "Write accelerometer to FIFO", Values: "0=Disabled, 1=Enabled"},
		}},
	{Address: RegIntPinCfg, Name: "INT_PIN_CFG", Description: "INT Pin Configuration", Access: "RW",
		BitFields: []BitField{
			{Bits: "7", Name: "INT_LEVEL", Description: "INT pin active low", Values: "0=Active high, 1=Active low"},
			{Bits: "6", Name: "INT_OPEN", Description: "INT pin open drain", Values: "0=Push-pull, 1=Open drain"},
			{Bits: "5", Name: "LATCH_INT_EN", Description: "Latch INT pin", Values: "0=50us pulse, 1=Latch until cleared"},
			{Bits: "4", Name: "INT_RD_CLEAR", Description: "Clear INT on any read", Values: "0=Status read only, 1=Any read"},
			{Bits: "1", Name: "BYPASS_EN", Description: "Bypass enable", Values: "0=Disabled, 1=Enabled"},
		}},
	{Address: RegIntEnable, Name: "INT_ENABLE", Description: "Interrupt Enable", Access: "RW",
		BitFields: []BitField{
			{Bits: "4", Name: "FIFO_OFLOW_INT_EN", Description: "FIFO overflow interrupt", Values: "0=Disabled, 1=Enabled"},
			{Bits: "0", Name: "DATA_RDY_INT_EN", Description: "Data ready interrupt", Values: "0=Disabled, 1=Enabled"},
		}},
	{Address: RegIntStatus, Name: "INT_STATUS", Description: "Interrupt Status", Access: "R"},

	{Address: RegAccelXoutH, Name: "ACCEL_XOUT_H", Description: "Accelerometer X-Axis High Byte", Access: "R"},
	{Address: RegAccelXoutH + 1, Name: "ACCEL_XOUT_L", Description: "Accelerometer X-Axis Low Byte", Access: "R"},
	{Address: RegAccelXoutH + 2, Name: "ACCEL_YOUT_H", Description: "Accelerometer Y-Axis High Byte", Access: "R"},
	{Address: RegAccelXoutH + 3, Name: "ACCEL_YOUT_L", Description: "Accelerometer Y-Axis Low Byte", Access: "R"},
	{Address: RegAccelXoutH + 4, Name: "ACCEL_ZOUT_H", Description: "Accelerometer Z-Axis High Byte", Access: "R"},
	{Address: RegAccelXoutH + 5, Name: "ACCEL_ZOUT_L", Description: "Accelerometer Z-Axis Low Byte", Access: "R"},
	{Address: RegTempOutH, Name: "TEMP_OUT_H", Description: "Temperature High Byte", Access: "R"},
	{Address: RegTempOutH + 1, Name: "TEMP_OUT_L", Description: "Temperature Low Byte", Access: "R"},
	{Address: RegGyroXoutH, Name: "GYRO_XOUT_H", Description: "Gyroscope X-Axis High Byte", Access: "R"},
	{Address: RegGyroXoutH + 1, Name: "GYRO_XOUT_L", Description: "Gyroscope X-Axis Low Byte", Access: "R"},
	{Address: RegGyroXoutH + 2, Name: "GYRO_YOUT_H", Description: "Gyroscope Y-Axis High Byte", Access: "R"},
	{Address: RegGyroXoutH + 3, Name: "GYRO_YOUT_L", Description: "Gyroscope Y-Axis Low Byte", Access: "R"},
	{Address: RegGyroXoutH + 4, Name: "GYRO_ZOUT_H", Description: "Gyroscope Z-Axis High Byte", Access: "R"},
	{Address: RegGyroXoutH + 5, Name: "GYRO_ZOUT_L", Description: "Gyroscope Z-Axis Low Byte", Access: "R"},

	{Address: RegUserCtrl, Name: "USER_CTRL", Description: "User Control", Access: "RW",
		BitFields: []BitField{
			{Bits: "6", Name: "FIFO_EN", Description: "Enable FIFO", Values: "0=Disabled, 1=Enabled"},
			{Bits: "2", Name: "FIFO_RST", Description: "Reset FIFO", Values: "1=Reset (self-clearing)"},
			{Bits: "0", Name: "SIG_COND_RST", Description: "Reset signal paths", Values: "1=Reset"},
		}},
	{Address: RegPwrMgmt1, Name: "PWR_MGMT_1", Description: "Power Management 1", Access: "RW", Default: 0x41,
		BitFields: []BitField{
			{Bits: "7", Name: "DEVICE_RESET", Description: "Device reset", Values: "1=Reset device"},
			{Bits: "6", Name: "SLEEP", Description: "Sleep mode", Values: "0=Disabled, 1=Sleep"},
			{Bits: "5", Name: "CYCLE", Description: "Cycle mode", Values: "0=Disabled, 1=Cycle"},
			{Bits: "3", Name: "TEMP_DIS", Description: "Temperature sensor", Values: "0=Enabled, 1=Disabled"},
			{Bits: "2:0", Name: "CLKSEL", Description: "Clock source", Values: "0=Internal 20MHz, 1=Auto select best"},
		}},
	{Address: RegPwrMgmt2, Name: "PWR_MGMT_2", Description: "Power Management 2", Access: "RW",
		BitFields: []BitField{
			{Bits: "5:3", Name: "STBY_XA..ZA", Description: "Accelerometer axis standby", Values: "0=On, 1=Standby"},
			{Bits: "2:0", Name: "STBY_XG..ZG", Description: "Gyro axis standby", Values: "0=On, 1=Standby"},
		}},
	{Address: RegFIFOCountH, Name: "FIFO_COUNTH", Description: "FIFO Count High Byte", Access: "R"},
	{Address: RegFIFOCountH + 1, Name: "FIFO_COUNTL", Description: "FIFO Count Low Byte", Access: "R"},
	{Address: RegFIFORW, Name: "FIFO_R_W", Description: "FIFO Read Write", Access: "RW"},
	{Address: RegWhoAmI, Name: "WHO_AM_I", Description: "Device ID (0x19 on MPU6886)", Access: "R", Default: 0x19},
}

// RegisterMap returns metadata for every register the driver knows about.
func RegisterMap() []RegisterInfo {
	out := make([]RegisterInfo, len(registerMap))
	copy(out, registerMap)
	return out
}

// LookupRegister finds metadata by address.
func LookupRegister(addr byte) (RegisterInfo, bool) {
	for _, r := range registerMap {
		if r.Address == addr {
			return r, true
		}
	}
	return RegisterInfo{}, false
}
