package transport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/whisperlive/whisperlive/internal/stream"
	"github.com/whisperlive/whisperlive/pkg/events"
	"github.com/whisperlive/whisperlive/pkg/profiles"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig carries the streaming defaults applied to each session.
type HandlerConfig struct {
	Buffer   stream.BufferConfig
	Language string
	BeamSize int
}

// Handler upgrades streaming requests and drives one session controller
// per connection.
type Handler struct {
	registry    *stream.Registry
	transcriber stream.Transcriber
	sink        stream.TranscriptSink
	pub         *events.Publisher
	profiles    *profiles.Loader
	cfg         HandlerConfig
}

func NewHandler(registry *stream.Registry, transcriber stream.Transcriber, sink stream.TranscriptSink, pub *events.Publisher, loader *profiles.Loader, cfg HandlerConfig) *Handler {
	return &Handler{
		registry:    registry,
		transcriber: transcriber,
		sink:        sink,
		pub:         pub,
		profiles:    loader,
		cfg:         cfg,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.transcriber == nil {
		http.Error(w, "transcription engine unavailable", http.StatusServiceUnavailable)
		return
	}

	language := h.cfg.Language
	beamSize := h.cfg.BeamSize
	profileName := r.URL.Query().Get("profile")
	if profileName != "" && h.profiles != nil {
		if p, ok := h.profiles.Get(profileName); ok {
			if p.Language != "" {
				language = p.Language
			}
			if p.BeamSize > 0 {
				beamSize = p.BeamSize
			}
		} else {
			slog.WarnContext(r.Context(), "unknown profile requested",
				slog.String("profile", profileName))
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	session := h.registry.Create(h.cfg.Buffer, language, profileName)
	slog.InfoContext(r.Context(), "streaming session connected",
		slog.String("session_id", session.ID),
		slog.String("language", language),
		slog.String("profile", profileName))

	ctrl := stream.NewController(session, h.registry, h.transcriber, newConn(conn), h.sink, h.pub, stream.ControllerConfig{
		SampleRate: h.cfg.Buffer.SampleRate,
		Language:   language,
		BeamSize:   beamSize,
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go pingLoop(conn, stopPing)

	if err := ctrl.Run(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "streaming session ended with error",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()))
	}
}

// pingLoop keeps the connection alive. WriteControl is safe to call
// concurrently with the controller's data writes.
func pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// controlMessage is an inbound text frame. Binary frames carry audio;
// text frames carry control events.
type controlMessage struct {
	Event string `json:"event"`
}

// wsConn adapts a websocket connection to the controller's transport.
type wsConn struct {
	conn *websocket.Conn
}

func newConn(conn *websocket.Conn) *wsConn {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &wsConn{conn: conn}
}

// ReadFrame maps the next websocket message to a controller frame. Close
// frames and dropped connections surface as io.EOF so the controller
// finalizes gracefully.
func (c *wsConn) ReadFrame() (*stream.Frame, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure) {
				return nil, io.EOF
			}
			return nil, err
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch messageType {
		case websocket.BinaryMessage:
			return &stream.Frame{Audio: data}, nil
		case websocket.TextMessage:
			var msg controlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				slog.Warn("unparseable control message", slog.String("error", err.Error()))
				continue
			}
			if msg.Event == "finalize" {
				return &stream.Frame{Finalize: true}, nil
			}
			// Unknown control events are ignored.
		}
	}
}

func (c *wsConn) WriteJSON(v any) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}
