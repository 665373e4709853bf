package imu

import (
	"fmt"
	"time"
)

// IMUSample is one burst read of accelerometer, temperature and gyroscope,
// both raw and scaled.
type IMUSample struct {
	Source string    `json:"source"`
	Time   time.Time `json:"time"`

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Accel Vector3 `json:"accel_g"`
	Gyro  Vector3 `json:"gyro_dps"`

	TempC *float64 `json:"temp_c,omitempty"`

	AccelScale string `json:"accel_scale"`
	GyroScale  string `json:"gyro_scale"`
}

// burst covers ACCEL_XOUT_H..GYRO_ZOUT_L.
const burstLen = 14

// Sample reads accelerometer, temperature and gyroscope in a single burst so
// all three come from the same sampling instant.
func (d *Dev) Sample() (IMUSample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureInit(); err != nil {
		return IMUSample{}, err
	}
	buf, err := d.bus.ReadRegisters(RegAccelXoutH, burstLen)
	if err != nil {
		return IMUSample{}, fmt.Errorf("%s: burst read: %w", d.name, err)
	}

	a := decodeTriplet(buf[0:6])
	g := decodeTriplet(buf[8:14])
	s := IMUSample{
		Source:     d.name,
		Time:       time.Now().UTC(),
		Ax:         a[0],
		Ay:         a[1],
		Az:         a[2],
		Gx:         g[0],
		Gy:         g[1],
		Gz:         g[2],
		Accel:      scaleTriplet(a, d.aRes),
		Gyro:       scaleTriplet(g, d.gRes),
		AccelScale: d.accelScale.String(),
		GyroScale:  d.gyroScale.String(),
	}
	if d.temperature {
		t := tempCelsius(DecodeSigned16(buf[6], buf[7]))
		s.TempC = &t
	}
	return s, nil
}
