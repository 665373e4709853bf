package app

import (
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/unit_imu/internal/config"
	"github.com/relabs-tech/unit_imu/internal/imu"
)

// RegisterValue is one register in a snapshot.
type RegisterValue struct {
	Address string `json:"addr" yaml:"addr"`
	Name    string `json:"name" yaml:"name"`
	Value   string `json:"value" yaml:"value"`
}

// RegisterSnapshot is the exported register state of the sensor, written as
// JSON by the debug UI and as YAML by the dump command.
type RegisterSnapshot struct {
	Version    int             `json:"version" yaml:"version"`
	Device     string          `json:"device" yaml:"device"`
	Timestamp  string          `json:"timestamp" yaml:"timestamp"`
	WhoAmI     string          `json:"who_am_i" yaml:"who_am_i"`
	AccelScale string          `json:"accel_scale" yaml:"accel_scale"`
	GyroScale  string          `json:"gyro_scale" yaml:"gyro_scale"`
	Registers  []RegisterValue `json:"registers" yaml:"registers"`
}

// TakeSnapshot reads every mapped register, ordered by address.
func TakeSnapshot(dev *imu.Dev) (RegisterSnapshot, error) {
	regs, err := dev.ReadAllRegisters()
	if err != nil {
		return RegisterSnapshot{}, err
	}
	id, err := dev.WhoAmI()
	if err != nil {
		return RegisterSnapshot{}, err
	}

	snap := RegisterSnapshot{
		Version:    1,
		Device:     "mpu6886",
		Timestamp:  time.Now().Format(time.RFC3339),
		WhoAmI:     fmt.Sprintf("0x%02X", id),
		AccelScale: dev.AccelScale().String(),
		GyroScale:  dev.GyroScale().String(),
	}

	addrs := make([]int, 0, len(regs))
	for a := range regs {
		addrs = append(addrs, int(a))
	}
	sort.Ints(addrs)
	for _, a := range addrs {
		info, _ := imu.LookupRegister(byte(a))
		snap.Registers = append(snap.Registers, RegisterValue{
			Address: info.Hex(),
			Name:    info.Name,
			Value:   fmt.Sprintf("0x%02X", regs[byte(a)]),
		})
	}
	return snap, nil
}

// DumpRegisters writes a YAML register snapshot to w.
func DumpRegisters(dev *imu.Dev, w io.Writer) error {
	snap, err := TakeSnapshot(dev)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}

// RunDump opens the sensor and writes one YAML register snapshot to w.
func RunDump(cfg *config.Config, w io.Writer) error {
	unit, err := OpenUnit(cfg)
	if err != nil {
		return err
	}
	defer unit.Close()
	return DumpRegisters(unit.Dev, w)
}
