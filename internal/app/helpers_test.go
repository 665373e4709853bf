package app

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/unit_imu/internal/bus"
	"github.com/relabs-tech/unit_imu/internal/imu"
	"github.com/relabs-tech/unit_imu/internal/orientation"
	"github.com/stretchr/testify/require"
)

// newTestUnit returns a simulated unit resting flat, with no settle delays.
func newTestUnit(t *testing.T, layout orientation.Layout, rotation bool) *Unit {
	t.Helper()
	sim := bus.NewSim()
	dev := imu.New(sim, &imu.Opts{Name: "test", Sleep: func(time.Duration) {}, Temperature: true})
	require.NoError(t, dev.Init())

	u := &Unit{
		Dev:        dev,
		Sim:        sim,
		Classifier: orientation.NewClassifier(dev, layout, rotation),
	}
	u.applySim(imu.Vector3{Z: 1}, imu.Vector3{})
	return u
}

// syncBuffer is a bytes.Buffer safe for monitor goroutines to write into.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
