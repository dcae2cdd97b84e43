package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/internal/service"
	"github.com/cwrk-planet/coderjam/pkg/errs"
	"github.com/cwrk-planet/coderjam/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var (
	errMalformed   = errs.New(errs.ErrInvalidInput, "malformed message")
	errRateLimited = errs.New(errs.ErrInvalidInput, "rate limit exceeded")
)

type SessionSvc interface {
	Connect(peer service.Peer) *service.Session
	Join(ctx context.Context, sess *service.Session, padID, userName, key string) error
	Update(ctx context.Context, sess *service.Session, u domain.PartialUpdate) error
	Rename(ctx context.Context, sess *service.Session, padID, newName string) error
	Disconnect(ctx context.Context, sess *service.Session)
}

type Options struct {
	PingEvery         time.Duration
	MaxMessageBytes   int64
	MessagesPerSecond float64 // <= 0 disables the limit
	Burst             int
	SendQueue         int
	// AllowedOrigins empty or containing "*" accepts any origin.
	AllowedOrigins []string
}

func (o *Options) setDefaults() {
	if o.PingEvery <= 0 {
		o.PingEvery = 15 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 1 << 20
	}
	if o.Burst <= 0 {
		o.Burst = 50
	}
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	sessions SessionSvc
	opts     Options
}

func NewServer(hub *Hub, sessions SessionSvc, opts Options) *Server {
	opts.setDefaults()
	return &Server{
		hub:      hub,
		sessions: sessions,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// WS endpoint: GET /ws. Pads are joined over the socket with join_pad.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, uuid.NewString(), s.opts.SendQueue)
	ctx := logger.With(r.Context(), "conn", c.id)
	log := logger.FromCtx(ctx)

	s.hub.Add(c)
	sess := s.sessions.Connect(c)
	log.Debug("ws connected", "remote", r.RemoteAddr)

	go s.writeLoop(ctx, c)
	s.readLoop(ctx, c, sess)

	// the request context may already be cancelled; teardown must still run
	s.sessions.Disconnect(context.WithoutCancel(ctx), sess)
	s.hub.Remove(c)
	if err := c.Close(); err != nil {
		log.Debug("ws close failed", "err", err)
	}
	log.Debug("ws disconnected")
}

func (s *Server) readLoop(ctx context.Context, c *wsConn, sess *service.Session) {
	log := logger.FromCtx(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("ws read loop panic", "panic", rec)
		}
	}()

	limit := rate.Inf
	if s.opts.MessagesPerSecond > 0 {
		limit = rate.Limit(s.opts.MessagesPerSecond)
	}
	limiter := rate.NewLimiter(limit, s.opts.Burst)

	c.conn.SetReadLimit(s.opts.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("ws read failed", "err", err)
			}
			return
		}
		if !limiter.Allow() {
			s.reply(c, errRateLimited)
			continue
		}
		s.dispatch(ctx, c, sess, data)
	}
}

func (s *Server) dispatch(ctx context.Context, c *wsConn, sess *service.Session, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reply(c, errMalformed)
		return
	}

	// service errors have already been reported or deliberately dropped
	switch msg.Type {
	case TypeJoinPad:
		var p JoinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.reply(c, errMalformed)
			return
		}
		_ = s.sessions.Join(ctx, sess, p.PadID, p.UserName, p.Key)
	case TypePadStateUpdate:
		var u domain.PartialUpdate
		if err := json.Unmarshal(msg.Payload, &u); err != nil {
			s.reply(c, errMalformed)
			return
		}
		_ = s.sessions.Update(ctx, sess, u)
	case TypeUserRename:
		var p RenamePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.reply(c, errMalformed)
			return
		}
		_ = s.sessions.Rename(ctx, sess, p.PadID, p.NewName)
	default:
		logger.FromCtx(ctx).Debug("ws unknown event ignored", "type", msg.Type)
	}
}

func (s *Server) reply(c *wsConn, err error) {
	_ = c.Send(service.Event{
		Type:    service.EventError,
		Payload: service.ErrorPayload{Message: errs.ClientMessage(err)},
	})
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.opts.PingEvery)
	defer ticker.Stop()
	log := logger.FromCtx(ctx)

	for {
		select {
		case ev := <-c.send:
			if err := c.write(ev); err != nil {
				log.Debug("ws write failed", "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}
