package app

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/unit_imu/internal/events"
	"github.com/relabs-tech/unit_imu/internal/imu"
)

func TestDisplayLinesWaiting(t *testing.T) {
	d := &DisplayData{}
	assert.Equal(t, []string{"unit_imu", "Waiting..."}, d.Lines())
}

func TestDisplayLinesFallBackToReading(t *testing.T) {
	d := &DisplayData{}
	d.OnReading(Reading{
		IMUSample:   imu.IMUSample{Accel: imu.Vector3{Z: 1}},
		Roll:        1.3,
		Pitch:       -3,
		Orientation: "top",
	})

	assert.Equal(t, []string{
		"Face: top",
		"R:   1.3 P:  -3.0",
		"|a|: 1.00g",
	}, d.Lines())
}

func TestDisplayLinesPreferEvents(t *testing.T) {
	d := &DisplayData{}
	d.OnReading(Reading{Orientation: "top", Rotation: "none"})
	d.OnEvent(events.Event{Stream: events.StreamOrientation, Label: "left"})
	d.OnEvent(events.Event{Stream: events.StreamRotation, Label: "yaw right"})
	d.OnEvent(events.Event{Stream: "unrelated", Label: "ignored"})

	lines := d.Lines()
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "Face: left", lines[0])
	assert.Equal(t, "Rot:  yaw right", lines[1])
}

func TestDisplayLinesEventOnly(t *testing.T) {
	d := &DisplayData{}
	d.OnEvent(events.Event{Stream: events.StreamOrientation, Label: "back"})
	assert.Equal(t, []string{"Face: back"}, d.Lines())
}

func litPixels(img *image1bit.VerticalLSB, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderLines(t *testing.T) {
	blank := renderLines(nil)
	assert.Equal(t, image.Rect(0, 0, displayWidth, displayHeight), blank.Bounds())
	assert.Zero(t, litPixels(blank, blank.Bounds()))

	img := renderLines([]string{"Face: top"})
	assert.Positive(t, litPixels(img, image.Rect(0, 0, displayWidth, lineHeight)))
	assert.Zero(t, litPixels(img, image.Rect(0, lineHeight+3, displayWidth, displayHeight)))
}

type recordingScreen struct {
	draws int
	img   image.Image
}

func (r *recordingScreen) Bounds() image.Rectangle {
	return image.Rect(0, 0, displayWidth, displayHeight)
}

func (r *recordingScreen) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	r.draws++
	r.img = src
	return nil
}

func TestDrawLines(t *testing.T) {
	s := &recordingScreen{}
	require.NoError(t, drawLines(s, []string{"a", "b", "c", "d", "e", "f"}))
	assert.Equal(t, 1, s.draws)
	assert.IsType(t, &image1bit.VerticalLSB{}, s.img)
}

type fakeI2C struct {
	addrs []uint16
	err   error
}

func (f *fakeI2C) String() string                    { return "fake" }
func (f *fakeI2C) SetSpeed(physic.Frequency) error   { return nil }
func (f *fakeI2C) Tx(addr uint16, _, _ []byte) error { f.addrs = append(f.addrs, addr); return f.err }

func TestFixedAddrBusRedirects(t *testing.T) {
	f := &fakeI2C{}
	b := fixedAddrBus{Bus: f, addr: 0x3D}

	require.NoError(t, b.Tx(0x3C, []byte{0x00}, nil))
	require.NoError(t, b.Tx(0x10, []byte{0x00}, nil))
	assert.Equal(t, []uint16{0x3D, 0x3D}, f.addrs)

	f.err = errors.New("nack")
	assert.ErrorIs(t, b.Tx(0x3C, nil, nil), f.err)
	assert.Equal(t, "fake", b.String())
}

func TestLogScreenOnlyLogsChanges(t *testing.T) {
	l := &logScreen{}
	l.show([]string{"Face: top"})
	assert.Equal(t, "Face: top", l.last)
	l.show([]string{"Face: top", "Rot:  none"})
	assert.Equal(t, "Face: top | Rot:  none", l.last)
}
