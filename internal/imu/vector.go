// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"math"
)

// Axis selects one sensor axis.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

func (a Axis) valid() bool { return a >= X && a <= Z }

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return "unknown"
}

// ParseAxis accepts "x", "y" or "z" in either case.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x", "X":
		return X, nil
	case "y", "Y":
		return Y, nil
	case "z", "Z":
		return Z, nil
	}
	return 0, fmt.Errorf("axis %q: %w", s, ErrInvalidAxis)
}

// Vector3 is a sample in physical units (g or °/s).
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Component returns the value on axis, 0 for an invalid axis.
func (v Vector3) Component(axis Axis) float64 {
	switch axis {
	case X:
		return v.X
	case Y:
		return v.Y
	case Z:
		return v.Z
	}
	return 0
}

// Abs returns the component-wise absolute value.
func (v Vector3) Abs() Vector3 {
	return Vector3{X: math.Abs(v.X), Y: math.Abs(v.Y), Z: math.Abs(v.Z)}
}

// Norm returns the Euclidean length.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func scaleTriplet(raw [3]int16, res float64) Vector3 {
	return Vector3{
		X: ToPhysical(raw[0], res),
		Y: ToPhysical(raw[1], res),
		Z: ToPhysical(raw[2], res),
	}
}
