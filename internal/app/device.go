// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/unit_imu/internal/bus"
	"github.com/relabs-tech/unit_imu/internal/config"
	"github.com/relabs-tech/unit_imu/internal/imu"
	"github.com/relabs-tech/unit_imu/internal/orientation"
)

// Unit bundles an initialized sensor with its classifier.
type Unit struct {
	Dev        *imu.Dev
	Classifier *orientation.Classifier
	Sim        *bus.Sim // nil on hardware

	closer io.Closer
}

// Close releases the bus.
func (u *Unit) Close() error {
	if u.closer == nil {
		return nil
	}
	return u.closer.Close()
}

// OpenUnit opens the configured bus (hardware or simulator), brings the
// sensor up and applies the configured full-scale ranges.
func OpenUnit(cfg *config.Config) (*Unit, error) {
	var (
		b   bus.Bus
		u   = &Unit{}
		err error
	)
	if cfg.UseSim {
		u.Sim = bus.NewSim()
		b = u.Sim
		log.Println("using simulated MPU6886")
	} else {
		i2cBus, err := bus.Open(cfg.I2CBus, cfg.I2CAddr)
		if err != nil {
			return nil, err
		}
		u.closer = i2cBus
		b = i2cBus
		log.Printf("using %s", i2cBus)
	}

	u.Dev = imu.New(b, &imu.Opts{Name: "imu", Temperature: cfg.EnableTemperature})
	if err = u.Dev.Init(); err != nil {
		u.Close()
		return nil, fmt.Errorf("failed to initialize IMU: %w", err)
	}
	if err = u.Dev.SetAccelScale(cfg.AccelRange); err != nil {
		u.Close()
		return nil, err
	}
	if err = u.Dev.SetGyroScale(cfg.GyroRange); err != nil {
		u.Close()
		return nil, err
	}
	if u.Sim != nil {
		// resting flat, scaled for the configured ranges
		u.applySim(imu.Vector3{Z: 1}, imu.Vector3{})
	}

	u.Classifier = orientation.NewClassifier(u.Dev, cfg.LabelLayout, cfg.EnableRotation)
	log.Printf("%s ready, layout %s, rotation %v", u.Dev, cfg.LabelLayout, cfg.EnableRotation)
	return u, nil
}

// connectMQTT connects a client whose id is MQTT_CLIENT_ID-role-<random>,
// so several tools can share one broker.
func connectMQTT(cfg *config.Config, role string) (mqtt.Client, error) {
	clientID := fmt.Sprintf("%s-%s-%s", cfg.MQTTClientID, role, uuid.NewString()[:8])
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", cfg.MQTTBroker, token.Error())
	}
	log.Printf("%s: connected to MQTT broker at %s as %s", role, cfg.MQTTBroker, clientID)
	return client, nil
}

// waitDone blocks until ctx ends and disconnects client.
func waitDone(ctx context.Context, client mqtt.Client, role string) {
	<-ctx.Done()
	log.Printf("%s: shutting down", role)
	client.Disconnect(250)
}
