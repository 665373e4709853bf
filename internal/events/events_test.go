package events_test

import (
	"errors"
	"testing"
	"time"

	"github.com/relabs-tech/unit_imu/internal/events"
	"github.com/relabs-tech/unit_imu/internal/events/eventstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "imu/event/orientation", events.EventTopic("imu", events.StreamOrientation))
	assert.Equal(t, "imu/event/+", events.EventWildcard("/imu/"))
	assert.Equal(t, "unit_imu/sample", events.SampleTopic(""))
}

func TestStreamID(t *testing.T) {
	assert.Equal(t, 3100, events.StreamID(events.StreamOrientation))
	assert.Equal(t, 3101, events.StreamID(events.StreamRotation))
	assert.Zero(t, events.StreamID("tilt"))
}

func TestNewCodec(t *testing.T) {
	c, err := events.NewCodec("")
	require.NoError(t, err)
	assert.Equal(t, events.FormatJSON, c.Format())

	c, err = events.NewCodec(" CBOR ")
	require.NoError(t, err)
	assert.Equal(t, events.FormatCBOR, c.Format())

	_, err = events.NewCodec("xml")
	assert.Error(t, err)
}

func TestCodecsCarryEvents(t *testing.T) {
	ev := events.New(events.StreamRotation, 4, "yaw right")

	for _, format := range []string{events.FormatJSON, events.FormatCBOR} {
		t.Run(format, func(t *testing.T) {
			c, err := events.NewCodec(format)
			require.NoError(t, err)

			data, err := c.Marshal(ev)
			require.NoError(t, err)

			var got events.Event
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, ev.ID, got.ID)
			assert.Equal(t, ev.Stream, got.Stream)
			assert.Equal(t, ev.Value, got.Value)
			assert.Equal(t, ev.Label, got.Label)
			assert.True(t, ev.Time.Equal(got.Time), "time %v != %v", ev.Time, got.Time)
		})
	}
}

func TestCBORIsDeterministic(t *testing.T) {
	c, err := events.NewCodec(events.FormatCBOR)
	require.NoError(t, err)

	ev := events.Event{Stream: "orientation", Value: 1, Label: "bottom", Time: time.Unix(1700000000, 0).UTC()}
	a, err := c.Marshal(ev)
	require.NoError(t, err)
	b, err := c.Marshal(ev)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewStampsIDAndTime(t *testing.T) {
	a := events.New(events.StreamOrientation, 0, "top")
	b := events.New(events.StreamOrientation, 0, "top")
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Time.IsZero())
	assert.Equal(t, "orientation=top(0)", a.String())
}

func TestPublishAndSubscribe(t *testing.T) {
	client := eventstest.NewClient()
	codec, err := events.NewCodec(events.FormatCBOR)
	require.NoError(t, err)

	var got []events.Event
	require.NoError(t, events.Subscribe(client, events.EventWildcard("imu"), codec,
		func(ev events.Event) { got = append(got, ev) }, nil))

	pub := events.NewPublisher(client, codec, "imu")
	sent, err := pub.Raise(events.StreamOrientation, 2, "left")
	require.NoError(t, err)

	published := client.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "imu/event/orientation", published[0].Topic)
	assert.True(t, published[0].Retained)
	assert.Equal(t, byte(0), published[0].QoS)

	require.Len(t, got, 1)
	assert.Equal(t, sent.ID, got[0].ID)
	assert.Equal(t, "left", got[0].Label)
}

func TestPublishRejectsEmptyStream(t *testing.T) {
	pub := events.NewPublisher(eventstest.NewClient(), mustCodec(t, "json"), "")
	assert.ErrorIs(t, pub.Publish(events.Event{}), events.ErrEmptyStream)
	assert.Equal(t, events.DefaultPrefix, pub.Prefix())
}

func TestPublishError(t *testing.T) {
	client := eventstest.NewClient()
	boom := errors.New("broker gone")
	client.PublishErr = boom

	pub := events.NewPublisher(client, mustCodec(t, "json"), "imu")
	_, err := pub.Raise(events.StreamRotation, 6, "none")
	assert.ErrorIs(t, err, boom)
}

func TestSubscribeReportsUndecodablePayloads(t *testing.T) {
	client := eventstest.NewClient()
	var errs []error
	require.NoError(t, events.Subscribe(client, "imu/event/rotation", mustCodec(t, "json"),
		func(events.Event) { t.Error("handler must not run") },
		func(err error) { errs = append(errs, err) }))

	client.Deliver("imu/event/rotation", []byte("not json"))
	assert.Len(t, errs, 1)
}

func TestSubscribeError(t *testing.T) {
	client := eventstest.NewClient()
	client.SubscribeErr = errors.New("not authorized")
	err := events.Subscribe(client, "x", mustCodec(t, "json"), func(events.Event) {}, nil)
	assert.ErrorIs(t, err, client.SubscribeErr)
}

func TestSamplesRoundTripThroughBroker(t *testing.T) {
	type sample struct {
		Ax float64 `json:"ax"`
	}
	client := eventstest.NewClient()
	codec := mustCodec(t, "json")

	var got []sample
	require.NoError(t, events.SubscribeSamples(client, "imu", codec, func(s sample) { got = append(got, s) }, nil))
	require.NoError(t, events.NewPublisher(client, codec, "imu").PublishSample(sample{Ax: 0.5}))
	assert.Equal(t, []sample{{Ax: 0.5}}, got)
}

func TestMatch(t *testing.T) {
	assert.True(t, eventstest.Match("a/+/c", "a/b/c"))
	assert.True(t, eventstest.Match("a/#", "a/b/c"))
	assert.False(t, eventstest.Match("a/+", "a/b/c"))
	assert.False(t, eventstest.Match("a/b", "a/c"))
}

func mustCodec(t *testing.T, format string) events.Codec {
	t.Helper()
	c, err := events.NewCodec(format)
	require.NoError(t, err)
	return c
}
