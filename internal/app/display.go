package app

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/unit_imu/internal/config"
	"github.com/relabs-tech/unit_imu/internal/events"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
)

// Screen is the part of ssd1306.Dev the display loop draws on.
type Screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// DisplayData holds the latest data for display.
type DisplayData struct {
	mu sync.RWMutex

	reading     Reading
	haveReading bool

	face     string // from orientation events
	rotation string // from rotation events
}

// OnReading records the latest sample.
func (d *DisplayData) OnReading(r Reading) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reading = r
	d.haveReading = true
}

// OnEvent records the latest label of each stream.
func (d *DisplayData) OnEvent(ev events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch ev.Stream {
	case events.StreamOrientation:
		d.face = ev.Label
	case events.StreamRotation:
		d.rotation = ev.Label
	}
}

// Lines returns the text shown on the panel.
func (d *DisplayData) Lines() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.haveReading && d.face == "" {
		return []string{"unit_imu", "Waiting..."}
	}

	// events are debounced; fall back to the reading until the first one
	face := d.face
	if face == "" {
		face = d.reading.Orientation
	}
	rot := d.rotation
	if rot == "" {
		rot = d.reading.Rotation
	}

	lines := []string{"Face: " + face}
	if rot != "" {
		lines = append(lines, "Rot:  "+rot)
	}
	if d.haveReading {
		lines = append(lines,
			fmt.Sprintf("R:%6.1f P:%6.1f", d.reading.Roll, d.reading.Pitch),
			fmt.Sprintf("|a|: %.2fg", d.reading.Accel.Norm()),
		)
	}
	return lines
}

// renderLines draws up to four lines of 7x13 text onto a blank 1-bit frame.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		y := (i + 1) * lineHeight
		if y > displayHeight {
			break
		}
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(line)
	}
	return img
}

func drawLines(s Screen, lines []string) error {
	return s.Draw(s.Bounds(), renderLines(lines), image.Point{})
}

// logScreen stands in for the panel in --sim runs and logs each new frame.
type logScreen struct {
	last string
}

func (l *logScreen) Bounds() image.Rectangle {
	return image.Rect(0, 0, displayWidth, displayHeight)
}

func (l *logScreen) Draw(image.Rectangle, image.Image, image.Point) error { return nil }

func (l *logScreen) show(lines []string) {
	text := strings.Join(lines, " | ")
	if text != l.last {
		log.Printf("display: %s", text)
		l.last = text
	}
}

// fixedAddrBus sends every transaction to addr. The ssd1306 driver always
// addresses 0x3C; panels strapped to 0x3D need the redirect.
type fixedAddrBus struct {
	i2c.Bus
	addr uint16
}

func (b fixedAddrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

func openPanel(cfg *config.Config) (*ssd1306.Dev, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	b, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(fixedAddrBus{Bus: b, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		b.Close()
		return nil, nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)
	return dev, b.Close, nil
}

// RunDisplay mirrors the producer's readings and events on an SSD1306 panel.
func RunDisplay(ctx context.Context, cfg *config.Config) error {
	var (
		screen Screen
		sim    *logScreen
	)
	if cfg.UseSim {
		sim = &logScreen{}
		screen = sim
	} else {
		dev, closeBus, err := openPanel(cfg)
		if err != nil {
			return err
		}
		defer closeBus()
		defer dev.Halt()
		screen = dev
	}

	if err := drawLines(screen, []string{"unit_imu", "MPU6886", "connecting..."}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	codec, err := events.NewCodec(cfg.PayloadFormat)
	if err != nil {
		return err
	}
	client, err := connectMQTT(cfg, "display")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	data := &DisplayData{}
	onErr := func(err error) { log.Printf("display: %v", err) }
	if err := events.SubscribeSamples(client, cfg.TopicPrefix, codec, data.OnReading, onErr); err != nil {
		return err
	}
	if err := events.Subscribe(client, events.EventWildcard(cfg.TopicPrefix), codec, data.OnEvent, onErr); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.DisplayPeriod())
	defer ticker.Stop()
	log.Println("display: starting update loop")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			lines := data.Lines()
			if sim != nil {
				sim.show(lines)
			}
			if err := drawLines(screen, lines); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
