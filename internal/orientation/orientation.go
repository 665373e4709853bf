// Package orientation reduces accelerometer and gyroscope vectors to
// discrete labels: which face of the unit points up, and which way it is
// being turned.
package orientation

import (
	"errors"
	"fmt"
	"math"

	"github.com/relabs-tech/unit_imu/internal/imu"
)

// Orientation is the face of the unit the dominant acceleration points to.
type Orientation int

const (
	Top Orientation = iota
	Bottom
	Left
	Right
	Front
	Back
)

// Is reports whether o equals other.
func (o Orientation) Is(other Orientation) bool { return o == other }

func (o Orientation) String() string { return OrientationName(o) }

// Rotation is the dominant direction of angular motion.
type Rotation int

const (
	RollRight Rotation = iota
	RollLeft
	PitchUp
	PitchDown
	YawRight
	YawLeft
	// None means no axis exceeds RotationThreshold.
	None
)

func (r Rotation) String() string { return RotationName(r) }

// RotationThreshold is the deadband in °/s below which an axis is noise.
const RotationThreshold = 20.0

// ErrRotationDisabled is returned by Classifier.Rotation when the unit was
// configured without rotation reporting.
var ErrRotationDisabled = errors.New("rotation reporting disabled")

// dominantAxis picks the largest magnitude; ties go to X, then Y.
func dominantAxis(a imu.Vector3) imu.Axis {
	if a.X >= a.Y && a.X >= a.Z {
		return imu.X
	}
	if a.Y >= a.X && a.Y >= a.Z {
		return imu.Y
	}
	return imu.Z
}

// ClassifyOrientation labels an acceleration vector. It is stateless: no
// hysteresis between calls.
func ClassifyOrientation(v imu.Vector3, layout Layout) Orientation {
	axis := dominantAxis(v.Abs())
	pos, neg := layout.faces(axis)
	if v.Component(axis) >= 0 {
		return pos
	}
	return neg
}

// ClassifyRotation labels an angular rate vector in °/s.
func ClassifyRotation(v imu.Vector3) Rotation {
	a := v.Abs()
	if a.X < RotationThreshold && a.Y < RotationThreshold && a.Z < RotationThreshold {
		return None
	}
	switch dominantAxis(a) {
	case imu.X:
		if v.X >= 0 {
			return PitchUp
		}
		return PitchDown
	case imu.Y:
		if v.Y >= 0 {
			return RollRight
		}
		return RollLeft
	default:
		if v.Z >= 0 {
			return YawLeft
		}
		return YawRight
	}
}

// Tilt is roll and pitch in degrees derived from gravity alone. Yaw is not
// observable from an accelerometer.
type Tilt struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// TiltFromAccel uses the usual tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func TiltFromAccel(v imu.Vector3) Tilt {
	roll := math.Atan2(v.Y, v.Z)
	pitch := math.Atan2(-v.X, math.Sqrt(v.Y*v.Y+v.Z*v.Z))
	return Tilt{
		Roll:  roll * 180.0 / math.Pi,
		Pitch: pitch * 180.0 / math.Pi,
	}
}

// Reader is the part of imu.Dev the classifier needs.
type Reader interface {
	ReadAcceleration() (imu.Vector3, error)
	ReadGyroscope() (imu.Vector3, error)
}

// Classifier reads fresh vectors and labels them.
type Classifier struct {
	r        Reader
	layout   Layout
	rotation bool
}

// NewClassifier returns a classifier over r. rotation enables Rotation();
// not every unit variant reports it.
func NewClassifier(r Reader, layout Layout, rotation bool) *Classifier {
	return &Classifier{r: r, layout: layout, rotation: rotation}
}

func (c *Classifier) Layout() Layout { return c.layout }

func (c *Classifier) RotationEnabled() bool { return c.rotation }

// Orientation reads the accelerometer and classifies it.
func (c *Classifier) Orientation() (Orientation, error) {
	v, err := c.r.ReadAcceleration()
	if err != nil {
		return 0, fmt.Errorf("classify orientation: %w", err)
	}
	return ClassifyOrientation(v, c.layout), nil
}

// Rotation reads the gyroscope and classifies it.
func (c *Classifier) Rotation() (Rotation, error) {
	if !c.rotation {
		return None, ErrRotationDisabled
	}
	v, err := c.r.ReadGyroscope()
	if err != nil {
		return None, fmt.Errorf("classify rotation: %w", err)
	}
	return ClassifyRotation(v), nil
}

// Tilt reads the accelerometer and returns roll/pitch.
func (c *Classifier) Tilt() (Tilt, error) {
	v, err := c.r.ReadAcceleration()
	if err != nil {
		return Tilt{}, fmt.Errorf("tilt: %w", err)
	}
	return TiltFromAccel(v), nil
}
