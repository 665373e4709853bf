// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/unit_imu/internal/config"
	"github.com/relabs-tech/unit_imu/internal/events"
	"github.com/relabs-tech/unit_imu/internal/imu"
	"github.com/relabs-tech/unit_imu/internal/monitor"
	"github.com/relabs-tech/unit_imu/internal/orientation"
)

// Reading is what the producer publishes on the sample topic: the burst
// sample plus the labels and tilt derived from it.
type Reading struct {
	imu.IMUSample
	Roll        float64 `json:"roll" cbor:"roll"`
	Pitch       float64 `json:"pitch" cbor:"pitch"`
	Orientation string  `json:"orientation" cbor:"orientation"`
	Rotation    string  `json:"rotation,omitempty" cbor:"rotation,omitempty"`
}

// simTumblePeriod is how long the simulator rests on each face.
const simTumblePeriod = 3 * time.Second

// Producer turns the sensor into MQTT traffic: one event per classification
// change and a periodic reading.
type Producer struct {
	unit     *Unit
	pub      *events.Publisher
	interval time.Duration

	orient *monitor.Monitor[orientation.Orientation]
	rot    *monitor.Monitor[orientation.Rotation] // nil when rotation is disabled
}

// NewProducer polls the classifiers every monitorInterval once started.
func NewProducer(u *Unit, pub *events.Publisher, monitorInterval time.Duration) *Producer {
	return &Producer{unit: u, pub: pub, interval: monitorInterval}
}

// Start registers a change monitor for orientation and, when enabled,
// for rotation. Each transition is logged and raised as an event.
func (p *Producer) Start(ctx context.Context) {
	c := p.unit.Classifier
	layout := c.Layout()

	p.orient = monitor.New[orientation.Orientation](events.StreamOrientation, c.Orientation, monitor.WithInterval(p.interval))
	p.orient.Register(ctx, func(o orientation.Orientation) {
		p.raise(events.StreamOrientation, int(o), layout.Name(o))
	})

	if c.RotationEnabled() {
		p.rot = monitor.New[orientation.Rotation](events.StreamRotation, c.Rotation, monitor.WithInterval(p.interval))
		p.rot.Register(ctx, func(r orientation.Rotation) {
			p.raise(events.StreamRotation, int(r), orientation.RotationName(r))
		})
	}
}

// Stop halts the monitors and waits for their loops to exit.
func (p *Producer) Stop() {
	if p.orient != nil {
		p.orient.Stop()
		<-p.orient.Done()
	}
	if p.rot != nil {
		p.rot.Stop()
		<-p.rot.Done()
	}
}

func (p *Producer) raise(stream string, value int, label string) {
	log.WithField("stream", stream).Infof("-> %s", label)
	if _, err := p.pub.Raise(stream, value, label); err != nil {
		log.WithField("stream", stream).Errorf("publish event: %v", err)
	}
}

// Read takes one burst sample and classifies it.
func (p *Producer) Read() (Reading, error) {
	s, err := p.unit.Dev.Sample()
	if err != nil {
		return Reading{}, err
	}
	c := p.unit.Classifier
	tilt := orientation.TiltFromAccel(s.Accel)
	r := Reading{
		IMUSample:   s,
		Roll:        tilt.Roll,
		Pitch:       tilt.Pitch,
		Orientation: c.Layout().Name(orientation.ClassifyOrientation(s.Accel, c.Layout())),
	}
	if c.RotationEnabled() {
		r.Rotation = orientation.RotationName(orientation.ClassifyRotation(s.Gyro))
	}
	return r, nil
}

// PublishReading reads and publishes one sample.
func (p *Producer) PublishReading() error {
	r, err := p.Read()
	if err != nil {
		return err
	}
	return p.pub.PublishSample(r)
}

// Run publishes a reading every interval until ctx ends. Read and publish
// errors are logged and the loop carries on.
func (p *Producer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PublishReading(); err != nil {
				log.Printf("sample: %v", err)
			}
		}
	}
}

// RunProducer opens the sensor, connects to MQTT and publishes until ctx ends.
func RunProducer(ctx context.Context, cfg *config.Config) error {
	log.Println("starting unit_imu producer")

	unit, err := OpenUnit(cfg)
	if err != nil {
		return err
	}
	defer unit.Close()

	codec, err := events.NewCodec(cfg.PayloadFormat)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg, "producer")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	pub := events.NewPublisher(client, codec, cfg.TopicPrefix)
	p := NewProducer(unit, pub, cfg.MonitorPeriod())
	p.Start(ctx)
	defer p.Stop()

	if unit.Sim != nil {
		go unit.Animate(ctx, simTumblePeriod)
	}

	log.Printf("publishing to %s every %v (%s)", events.SampleTopic(pub.Prefix()), cfg.SamplePeriod(), codec.Format())
	p.Run(ctx, cfg.SamplePeriod())
	return nil
}
