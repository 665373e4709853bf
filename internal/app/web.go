package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/unit_imu/internal/config"
	"github.com/relabs-tech/unit_imu/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tooling, any origin
	},
}

// eventBacklog bounds how far a slow websocket client may fall behind
// before events are dropped for it.
const eventBacklog = 32

// OrientationState is the /api/orientation payload.
type OrientationState struct {
	Orientation *events.Event `json:"orientation,omitempty"`
	Rotation    *events.Event `json:"rotation,omitempty"`
	Roll        float64       `json:"roll"`
	Pitch       float64       `json:"pitch"`
	Label       string        `json:"label,omitempty"` // from the latest reading
}

// WebServer caches what the producer publishes and serves it over HTTP.
type WebServer struct {
	mu          sync.RWMutex
	reading     Reading
	haveReading bool
	latest      map[string]events.Event

	clientsMu sync.Mutex
	clients   map[chan events.Event]struct{}

	staticDir string
}

// NewWebServer serves static files from staticDir when it exists.
func NewWebServer(staticDir string) *WebServer {
	return &WebServer{
		latest:    make(map[string]events.Event),
		clients:   make(map[chan events.Event]struct{}),
		staticDir: staticDir,
	}
}

// OnReading records the latest sample.
func (s *WebServer) OnReading(r Reading) {
	s.mu.Lock()
	s.reading = r
	s.haveReading = true
	s.mu.Unlock()
}

// OnEvent records ev as the latest for its stream and forwards it to every
// websocket client.
func (s *WebServer) OnEvent(ev events.Event) {
	s.mu.Lock()
	s.latest[ev.Stream] = ev
	s.mu.Unlock()

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- ev:
		default:
			log.Warnf("web: client backlog full, dropping %s", ev)
		}
	}
}

// Handler returns the HTTP routes.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orientation", s.handleOrientation)
	mux.HandleFunc("/api/sample", s.handleSample)
	mux.HandleFunc("/ws/events", s.handleEvents)

	if s.staticDir != "" {
		if st, err := os.Stat(s.staticDir); err == nil && st.IsDir() {
			mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
		}
	}
	return mux
}

func (s *WebServer) handleOrientation(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	state := OrientationState{}
	if ev, ok := s.latest[events.StreamOrientation]; ok {
		state.Orientation = &ev
	}
	if ev, ok := s.latest[events.StreamRotation]; ok {
		state.Rotation = &ev
	}
	if s.haveReading {
		state.Roll = s.reading.Roll
		state.Pitch = s.reading.Pitch
		state.Label = s.reading.Orientation
	}
	empty := !s.haveReading && len(s.latest) == 0
	s.mu.RUnlock()

	if empty {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, state)
}

func (s *WebServer) handleSample(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	reading, ok := s.reading, s.haveReading
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, reading)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleEvents streams events to a websocket client, starting with the
// latest event of each stream.
func (s *WebServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := make(chan events.Event, eventBacklog)
	s.mu.RLock()
	for _, stream := range []string{events.StreamOrientation, events.StreamRotation} {
		if ev, ok := s.latest[stream]; ok {
			ch <- ev
		}
	}
	s.mu.RUnlock()

	s.clientsMu.Lock()
	s.clients[ch] = struct{}{}
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, ch)
		s.clientsMu.Unlock()
	}()

	// The client never sends anything useful; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev := <-ch:
			if err := conn.WriteJSON(ev); err != nil {
				log.Debugf("web: websocket write: %v", err)
				return
			}
		}
	}
}

// RunWeb subscribes to the producer's topics and serves the cache until ctx ends.
func RunWeb(ctx context.Context, cfg *config.Config) error {
	codec, err := events.NewCodec(cfg.PayloadFormat)
	if err != nil {
		return err
	}
	client, err := connectMQTT(cfg, "web")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	srv := NewWebServer("web")
	onErr := func(err error) { log.Printf("web: %v", err) }
	if err := events.SubscribeSamples(client, cfg.TopicPrefix, codec, srv.OnReading, onErr); err != nil {
		return err
	}
	if err := events.Subscribe(client, events.EventWildcard(cfg.TopicPrefix), codec, srv.OnEvent, onErr); err != nil {
		return err
	}

	return serveHTTP(ctx, fmt.Sprintf(":%d", cfg.WebServerPort), srv.Handler(), "web")
}

// serveHTTP runs an HTTP server until ctx ends, then shuts it down gracefully.
func serveHTTP(ctx context.Context, addr string, h http.Handler, role string) error {
	httpSrv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("%s: listening on %s", role, addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		log.Printf("%s: shutting down", role)
		return httpSrv.Shutdown(shutdownCtx)
	}
}
