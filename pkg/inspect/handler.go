package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/reactivity/pkg/reactivity"
	"golang.org/x/time/rate"
)

// HandlerConfig configures the inspector HTTP handler.
type HandlerConfig struct {
	// Gatherer, when set, is served on GET /metrics.
	Gatherer prometheus.Gatherer

	// Stats, when set, is served on GET /stats. It is called from HTTP
	// goroutines, so it must hop onto the engine goroutine itself
	// (typically with Loop.Do).
	Stats func(r *http.Request) (reactivity.Stats, error)

	// StreamRate limits events per second sent to each stream client.
	// Events over the limit are dropped and counted. Default: 100.
	StreamRate rate.Limit

	// StreamBurst is the limiter burst. Default: 50.
	StreamBurst int

	// StreamBuffer is the per-client subscription buffer. Default: 256.
	StreamBuffer int

	// WriteTimeout bounds each websocket write. Default: 5s.
	WriteTimeout time.Duration

	// CheckOrigin validates websocket upgrade requests.
	// Default: same-origin only.
	CheckOrigin func(r *http.Request) bool

	// Logger receives stream errors. Default: slog.Default().
	Logger *slog.Logger
}

// HandlerOption configures the inspector handler.
type HandlerOption func(*HandlerConfig)

// WithGatherer serves metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) HandlerOption {
	return func(c *HandlerConfig) {
		c.Gatherer = g
	}
}

// WithStats serves engine statistics on /stats.
func WithStats(fn func(r *http.Request) (reactivity.Stats, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.Stats = fn
	}
}

// WithStreamRate sets the per-client stream rate limit.
func WithStreamRate(limit rate.Limit, burst int) HandlerOption {
	return func(c *HandlerConfig) {
		c.StreamRate = limit
		c.StreamBurst = burst
	}
}

// WithStreamBuffer sets the per-client subscription buffer.
func WithStreamBuffer(n int) HandlerOption {
	return func(c *HandlerConfig) {
		c.StreamBuffer = n
	}
}

// WithCheckOrigin sets the websocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.CheckOrigin = fn
	}
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(c *HandlerConfig) {
		c.Logger = l
	}
}

func defaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		StreamRate:   100,
		StreamBurst:  50,
		StreamBuffer: 256,
		WriteTimeout: 5 * time.Second,
		CheckOrigin:  SameOriginCheck,
		Logger:       slog.Default(),
	}
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, scheme := range []string{"http://", "https://"} {
		if origin == scheme+r.Host {
			return true
		}
	}
	return false
}

type handler struct {
	rec      *Recorder
	config   HandlerConfig
	upgrader websocket.Upgrader
}

// NewHandler returns the inspector routes:
//
//	GET /healthz         liveness and recorder counters
//	GET /events?limit=n  most recent events, oldest first
//	GET /events/stream   websocket stream of new events
//	GET /stats           engine statistics (WithStats)
//	GET /metrics         Prometheus exposition (WithGatherer)
func NewHandler(rec *Recorder, opts ...HandlerOption) http.Handler {
	config := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&config)
	}
	h := &handler{
		rec:    rec,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", h.healthz)
	r.Get("/events", h.events)
	r.Get("/events/stream", h.stream)
	if config.Stats != nil {
		r.Get("/stats", h.stats)
	}
	if config.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// Health is the body of GET /healthz.
type Health struct {
	Status      string `json:"status"`
	Events      uint64 `json:"events"`
	Dropped     uint64 `json:"dropped"`
	Subscribers int    `json:"subscribers"`
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Health{
		Status:      "ok",
		Events:      h.rec.Total(),
		Dropped:     h.rec.Dropped(),
		Subscribers: h.rec.Subscribers(),
	})
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.rec.Events(limit))
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.config.Stats(r)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// StreamMessage is one websocket frame of /events/stream.
type StreamMessage struct {
	// Type is "hello" for the first frame and "event" afterwards.
	Type string `json:"type"`

	// Subscriber identifies the stream in the hello frame.
	Subscriber string `json:"subscriber,omitempty"`

	Event *Event `json:"event,omitempty"`

	// Dropped counts events withheld by the rate limiter since the
	// previous frame.
	Dropped uint64 `json:"dropped,omitempty"`
}

func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an error status.
		return
	}
	defer conn.Close()

	id, events, cancel := h.rec.Subscribe(h.config.StreamBuffer)
	defer cancel()
	logger := h.config.Logger.With("subscriber", id)

	// The client never sends anything we need; reading only detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg StreamMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug("inspect: stream write failed", "error", err)
			return false
		}
		return true
	}

	if !send(StreamMessage{Type: "hello", Subscriber: id}) {
		return
	}

	limiter := rate.NewLimiter(h.config.StreamRate, h.config.StreamBurst)
	var dropped uint64
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !limiter.Allow() {
				dropped++
				continue
			}
			if !send(StreamMessage{Type: "event", Event: &ev, Dropped: dropped}) {
				return
			}
			dropped = 0
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
