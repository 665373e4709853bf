package orientation

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/unit_imu/internal/imu"
)

const unknownLabel = "unknown"

// Layout maps sensor axes to unit faces. Hardware variants mount the
// sensor differently; the classification algorithm is the same for all.
type Layout int

const (
	// LayoutFaces: X±→right/left, Y±→front/back, Z±→top/bottom.
	LayoutFaces Layout = iota
	// LayoutUpright: X±→right/left, Y±→up/down, Z±→front/back.
	LayoutUpright
)

func (l Layout) String() string {
	switch l {
	case LayoutFaces:
		return "faces"
	case LayoutUpright:
		return "upright"
	}
	return unknownLabel
}

// ParseLayout accepts the names returned by Layout.String.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "faces":
		return LayoutFaces, nil
	case "upright":
		return LayoutUpright, nil
	}
	return 0, fmt.Errorf("unknown label layout %q (want faces or upright)", s)
}

func (l Layout) faces(axis imu.Axis) (pos, neg Orientation) {
	switch axis {
	case imu.X:
		return Right, Left
	case imu.Y:
		if l == LayoutUpright {
			return Top, Bottom
		}
		return Front, Back
	default:
		if l == LayoutUpright {
			return Front, Back
		}
		return Top, Bottom
	}
}

// Name renders o with this layout's wording. The upright layout calls the
// top and bottom faces "up" and "down".
func (l Layout) Name(o Orientation) string {
	if l == LayoutUpright {
		switch o {
		case Top:
			return "up"
		case Bottom:
			return "down"
		}
	}
	return OrientationName(o)
}

// OrientationName renders o; unknown values render as "unknown".
func OrientationName(o Orientation) string {
	switch o {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	case Front:
		return "front"
	case Back:
		return "back"
	}
	return unknownLabel
}

// RotationName renders r; unknown values render as "unknown".
func RotationName(r Rotation) string {
	switch r {
	case RollRight:
		return "roll right"
	case RollLeft:
		return "roll left"
	case PitchUp:
		return "pitch up"
	case PitchDown:
		return "pitch down"
	case YawRight:
		return "yaw right"
	case YawLeft:
		return "yaw left"
	case None:
		return "none"
	}
	return unknownLabel
}
