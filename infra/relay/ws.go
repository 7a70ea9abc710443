package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	corelogger "github.com/fleetops/shiftd/core/logger"
	corerelay "github.com/fleetops/shiftd/core/relay"
	"github.com/fleetops/shiftd/infra/logger"
)

// Config defines the dashboard listener endpoint.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	// QueueSize bounds the per-listener outbound event queue.
	QueueSize int `json:"queue_size"`
	// WriteTimeoutSeconds bounds one outbound write to a listener.
	WriteTimeoutSeconds int `json:"write_timeout_seconds"`
}

// SetDefaults fills unset fields with production defaults.
func (c *Config) SetDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8085"
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.WriteTimeoutSeconds <= 0 {
		c.WriteTimeoutSeconds = 5
	}
}

// wsListener adapts a coder/websocket.Conn to the hub's Listener
// interface. A write deadline makes a stalled client fail its Send
// instead of blocking the write pump forever.
type wsListener struct {
	id           string
	conn         *websocket.Conn
	ctx          context.Context
	writeTimeout time.Duration
}

func (l *wsListener) ID() string { return l.id }

func (l *wsListener) Send(data []byte) error {
	ctx, cancel := context.WithTimeout(l.ctx, l.writeTimeout)
	defer cancel()
	return l.conn.Write(ctx, websocket.MessageText, data)
}

func (l *wsListener) Close() error {
	return l.conn.Close(websocket.StatusNormalClosure, "")
}

// Server accepts dashboard websocket connections and attaches each one
// to the fan-out hub.
type Server struct {
	hub          *corerelay.Hub
	cfg          Config
	log          corelogger.Logger
	writeTimeout time.Duration
}

// NewServer creates a relay Server.
func NewServer(hub *corerelay.Hub, cfg Config) *Server {
	cfg.SetDefaults()
	return &Server{
		hub:          hub,
		cfg:          cfg,
		log:          logger.New("relay-server"),
		writeTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}
}

// Handler returns the websocket upgrade handler.
func (s *Server) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Dashboards are served from a different origin in every
			// deployment seen so far.
			InsecureSkipVerify: true,
		})
		if err != nil {
			s.log.Warnf("websocket accept: %v", err)
			return
		}
		listener := &wsListener{
			id:           uuid.NewString(),
			conn:         conn,
			ctx:          ctx,
			writeTimeout: s.writeTimeout,
		}
		s.hub.Attach(listener)
		go s.readLoop(ctx, listener)
	})
}

// readLoop consumes listener requests until the connection drops, then
// detaches the listener from the hub.
func (s *Server) readLoop(ctx context.Context, l *wsListener) {
	defer s.hub.Detach(l.id)
	for {
		_, data, err := l.conn.Read(ctx)
		if err != nil {
			return
		}
		if err := s.hub.HandleRequest(l.id, data); err != nil {
			s.log.Warnf("%v", err)
		}
	}
}

// Run serves the listener endpoint until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Handler(ctx))
	srv := &http.Server{Addr: s.cfg.ListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Infof("relay listening on %s", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
