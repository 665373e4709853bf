package app

import (
	"bytes"
	"testing"

	"github.com/relabs-tech/unit_imu/internal/events"
	"github.com/relabs-tech/unit_imu/internal/events/eventstest"
	"github.com/relabs-tech/unit_imu/internal/imu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolePrintsSamplesAndEvents(t *testing.T) {
	client := eventstest.NewClient()
	codec := mustJSON(t)
	var out bytes.Buffer
	require.NoError(t, subscribeConsole(client, "t", codec, &out))
	assert.ElementsMatch(t, []string{"t/sample", "t/event/+"}, client.Subscriptions())

	pub := events.NewPublisher(client, codec, "t")
	require.NoError(t, pub.PublishSample(Reading{IMUSample: imu.IMUSample{Ax: 12, Gz: -7}, Orientation: "left"}))
	_, err := pub.Raise(events.StreamOrientation, 2, "left")
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "[IMU ]")
	assert.Contains(t, text, "ax=    12")
	assert.Contains(t, text, "gz=    -7")
	assert.Contains(t, text, "[EVT ]  orientation -> left")
}

func TestConsoleSkipsBadPayloads(t *testing.T) {
	client := eventstest.NewClient()
	var out bytes.Buffer
	require.NoError(t, subscribeConsole(client, "t", mustJSON(t), &out))

	client.Deliver("t/sample", []byte("{"))
	client.Deliver("t/event/rotation", []byte("nope"))
	assert.Empty(t, out.String())
}
