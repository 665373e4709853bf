// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// DecodeSigned16 combines a big-endian register pair into a signed sample.
// Values above 32767 wrap to negative by subtracting 65536.
func DecodeSigned16(hi, lo byte) int16 {
	v := int32(hi)<<8 | int32(lo)
	if v > 32767 {
		v -= 65536
	}
	return int16(v)
}

// EncodeSigned16 is the inverse of DecodeSigned16.
func EncodeSigned16(v int16) (hi, lo byte) {
	u := int32(v)
	if u < 0 {
		u += 65536
	}
	return byte(u >> 8), byte(u)
}

// ToPhysical scales a raw count by a resolution factor (units per LSB).
func ToPhysical(raw int16, resolution float64) float64 {
	return float64(raw) * resolution
}

func decodeTriplet(buf []byte) [3]int16 {
	return [3]int16{
		DecodeSigned16(buf[0], buf[1]),
		DecodeSigned16(buf[2], buf[3]),
		DecodeSigned16(buf[4], buf[5]),
	}
}
