package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/unit_imu/internal/imu"
)

// simStep is one pose of the simulated unit: gravity direction in g and
// the angular rate seen while moving into it, in dps.
type simStep struct {
	accel imu.Vector3
	gyro  imu.Vector3
}

// A slow tumble through every face so --sim runs produce events.
var simTumble = []simStep{
	{accel: imu.Vector3{Z: 1}},
	{accel: imu.Vector3{X: 1}, gyro: imu.Vector3{Y: 90}},
	{accel: imu.Vector3{Y: 1}, gyro: imu.Vector3{X: -90}},
	{accel: imu.Vector3{Z: -1}, gyro: imu.Vector3{Y: -90}},
	{accel: imu.Vector3{X: -1}, gyro: imu.Vector3{Z: 120}},
	{accel: imu.Vector3{Y: -1}, gyro: imu.Vector3{Z: -120}},
}

// Animate walks the simulator through simTumble, one step per period. The
// angular rate is held for a quarter period, then the unit rests.
// It does nothing on hardware.
func (u *Unit) Animate(ctx context.Context, period time.Duration) {
	if u.Sim == nil {
		return
	}
	log.Debugf("sim: tumbling every %v", period)

	for i := 0; ; i = (i + 1) % len(simTumble) {
		u.applySim(simTumble[i].accel, simTumble[i].gyro)
		if !sleepCtx(ctx, period/4) {
			return
		}
		u.applySim(simTumble[i].accel, imu.Vector3{})
		if !sleepCtx(ctx, period-period/4) {
			return
		}
	}
}

func (u *Unit) applySim(accel, gyro imu.Vector3) {
	aRes := u.Dev.AccelResolution()
	gRes := u.Dev.GyroResolution()
	u.Sim.SetTriplet(imu.RegAccelXoutH, toRaw(accel.X, aRes), toRaw(accel.Y, aRes), toRaw(accel.Z, aRes))
	u.Sim.SetTriplet(imu.RegGyroXoutH, toRaw(gyro.X, gRes), toRaw(gyro.Y, gRes), toRaw(gyro.Z, gRes))
}

// toRaw is the inverse of imu.ToPhysical, saturating at the int16 limits.
func toRaw(v, res float64) int16 {
	r := v / res
	switch {
	case r > 32767:
		return 32767
	case r < -32768:
		return -32768
	}
	return int16(r)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
