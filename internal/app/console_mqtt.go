package app

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/unit_imu/internal/config"
	"github.com/relabs-tech/unit_imu/internal/events"
)

func printReading(w io.Writer, r Reading) {
	fmt.Fprintf(w,
		"[IMU ]  ax=%6d ay=%6d az=%6d  gx=%6d gy=%6d gz=%6d  |a|=%4.2fg  roll=%6.1f pitch=%6.1f  %s %s\n",
		r.Ax, r.Ay, r.Az, r.Gx, r.Gy, r.Gz, r.Accel.Norm(), r.Roll, r.Pitch, r.Orientation, r.Rotation,
	)
}

func printEvent(w io.Writer, ev events.Event) {
	fmt.Fprintf(w, "[EVT ]  %-11s -> %-10s (%d)  %s\n",
		ev.Stream, ev.Label, ev.Value, ev.Time.Local().Format("15:04:05.000"))
}

// subscribeConsole wires sample and event printers onto client.
func subscribeConsole(client events.Client, prefix string, codec events.Codec, w io.Writer) error {
	onErr := func(err error) { log.Printf("console: %v", err) }

	if err := events.SubscribeSamples(client, prefix, codec, func(r Reading) { printReading(w, r) }, onErr); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", events.SampleTopic(prefix))

	if err := events.Subscribe(client, events.EventWildcard(prefix), codec, func(ev events.Event) { printEvent(w, ev) }, onErr); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", events.EventWildcard(prefix))
	return nil
}

// RunConsoleMQTT prints everything the producer publishes until ctx ends.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	codec, err := events.NewCodec(cfg.PayloadFormat)
	if err != nil {
		return err
	}
	client, err := connectMQTT(cfg, "console")
	if err != nil {
		return err
	}
	if err := subscribeConsole(client, cfg.TopicPrefix, codec, os.Stdout); err != nil {
		client.Disconnect(250)
		return err
	}
	waitDone(ctx, client, "console")
	return nil
}
