// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package events carries discrete classification changes over MQTT.
//
// Each change is an Event published to <prefix>/event/<stream>. Consumers
// subscribe per stream or to every stream with the wildcard topic.
package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Stream names.
const (
	StreamOrientation = "orientation"
	StreamRotation    = "rotation"
)

// Numeric stream ids used by the firmware event bus.
var streamIDs = map[string]int{
	StreamOrientation: 3100,
	StreamRotation:    3101,
}

// StreamID returns the numeric id for a stream, or 0 if it has none.
func StreamID(stream string) int {
	return streamIDs[stream]
}

// DefaultPrefix is the topic prefix when none is configured.
const DefaultPrefix = "unit_imu"

// ErrEmptyStream is returned when an event has no stream name.
var ErrEmptyStream = errors.New("events: empty stream name")

// Event is one classification change. Value is the enum ordinal and Label
// its rendered name, so consumers need not share the enum tables.
type Event struct {
	ID     uuid.UUID `json:"id" cbor:"1,keyasint"`
	Stream string    `json:"stream" cbor:"2,keyasint"`
	Value  int       `json:"value" cbor:"3,keyasint"`
	Label  string    `json:"label" cbor:"4,keyasint"`
	Time   time.Time `json:"time" cbor:"5,keyasint"`
}

// New stamps a fresh event.
func New(stream string, value int, label string) Event {
	return Event{
		ID:     uuid.New(),
		Stream: stream,
		Value:  value,
		Label:  label,
		Time:   time.Now().UTC(),
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%s=%s(%d)", e.Stream, e.Label, e.Value)
}

// EventTopic returns <prefix>/event/<stream>.
func EventTopic(prefix, stream string) string {
	return cleanPrefix(prefix) + "/event/" + stream
}

// EventWildcard matches the topics of every stream under prefix.
func EventWildcard(prefix string) string {
	return cleanPrefix(prefix) + "/event/+"
}

// SampleTopic returns <prefix>/sample.
func SampleTopic(prefix string) string {
	return cleanPrefix(prefix) + "/sample"
}

func cleanPrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix
}

// Client is the part of mqtt.Client the publisher and subscribers use.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Publisher raises events and publishes samples.
type Publisher struct {
	client Client
	codec  Codec
	prefix string
}

// NewPublisher binds a client, a codec and a topic prefix.
func NewPublisher(client Client, codec Codec, prefix string) *Publisher {
	return &Publisher{client: client, codec: codec, prefix: cleanPrefix(prefix)}
}

// Prefix returns the topic prefix in use.
func (p *Publisher) Prefix() string { return p.prefix }

// Raise builds an event for stream and publishes it.
func (p *Publisher) Raise(stream string, value int, label string) (Event, error) {
	ev := New(stream, value, label)
	return ev, p.Publish(ev)
}

// Publish sends ev retained at QoS 0 so late subscribers see the current state.
func (p *Publisher) Publish(ev Event) error {
	if ev.Stream == "" {
		return ErrEmptyStream
	}
	return p.send(EventTopic(p.prefix, ev.Stream), ev)
}

// PublishSample sends a sensor snapshot to <prefix>/sample.
func (p *Publisher) PublishSample(v any) error {
	return p.send(SampleTopic(p.prefix), v)
}

func (p *Publisher) send(topic string, v any) error {
	payload, err := p.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s marshal (%s): %w", p.codec.Format(), topic, err)
	}
	if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish (%s): %w", topic, token.Error())
	}
	return nil
}

// Subscribe delivers every decodable event on topic to handler. Payloads
// that fail to decode are reported to onError, which may be nil.
func Subscribe(client Client, topic string, codec Codec, handler func(Event), onError func(error)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev Event
		if err := codec.Unmarshal(msg.Payload(), &ev); err != nil {
			if onError != nil {
				onError(fmt.Errorf("decode event on %s: %w", msg.Topic(), err))
			}
			return
		}
		handler(ev)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe (%s): %w", topic, token.Error())
	}
	return nil
}

// SubscribeSamples decodes each payload on the sample topic into a T.
func SubscribeSamples[T any](client Client, prefix string, codec Codec, handler func(T), onError func(error)) error {
	topic := SampleTopic(prefix)
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := codec.Unmarshal(msg.Payload(), &v); err != nil {
			if onError != nil {
				onError(fmt.Errorf("decode sample on %s: %w", msg.Topic(), err))
			}
			return
		}
		handler(v)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe (%s): %w", topic, token.Error())
	}
	return nil
}
