package live

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/recera/pivot/pkg/chart"
	"github.com/recera/pivot/pkg/reactive"
)

// ChartFactory builds the chart a new session explores. sched is the
// session's scheduler.
type ChartFactory func(sched reactive.Scheduler) *chart.Chart

// Server accepts live sessions over websockets
type Server struct {
	upgrader websocket.Upgrader
	sessions map[string]*Session
	mu       sync.RWMutex
	factory  ChartFactory
	views    []chart.View
	verbose  bool
}

// NewServer creates a live server whose sessions explore charts built by
// factory
func NewServer(factory ChartFactory) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// SetVerbose logs every frame
func (s *Server) SetVerbose(v bool) {
	s.verbose = v
}

// SetViews sets the views a client can switch between. Without views a
// switch only changes the chart kind.
func (s *Server) SetViews(views []chart.View) {
	s.views = views
}

// SetCheckOrigin overrides the origin check of the upgrader
func (s *Server) SetCheckOrigin(fn func(r *http.Request) bool) {
	s.upgrader.CheckOrigin = fn
}

// Routes mounts the websocket endpoints: /live starts a session and
// /live/{session} takes over an open one
func (s *Server) Routes(r chi.Router) {
	r.Get("/live", s.HandleWebSocket)
	r.Get("/live/{session}", s.HandleWebSocket)
}

// HandleWebSocket upgrades the request and runs the session on it
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if _, err := uuid.Parse(sessionID); err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Live Server] Failed to upgrade connection: %v", err)
		return
	}

	session := s.getOrCreateSession(sessionID, conn)
	go session.handleConnection()
}

// getOrCreateSession hands conn to an open session or starts a new one
func (s *Server) getOrCreateSession(sessionID string, conn *websocket.Conn) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, exists := s.sessions[sessionID]; exists {
		session.replaceConn(conn)
		return session
	}

	session := newSession(sessionID, conn, s)
	s.sessions[sessionID] = session
	return session
}

// GetSession retrieves a session by ID
func (s *Server) GetSession(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// SessionCount returns the number of open sessions
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RemoveSession ends a session and forgets it
func (s *Server) RemoveSession(sessionID string) {
	s.mu.Lock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if exists {
		session.detach()
	}
}

// Refresh reloads the chart of every open session, as after the data
// changed underneath them
func (s *Server) Refresh(ctx context.Context) {
	s.mu.RLock()
	charts := make([]*chart.Chart, 0, len(s.sessions))
	for _, session := range s.sessions {
		charts = append(charts, session.chart)
	}
	s.mu.RUnlock()

	for _, c := range charts {
		c.Refresh(ctx)
	}
}

// Shutdown ends every session
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.RemoveSession(id)
	}
	return nil
}

// handleConnection manages the websocket connection of a session
func (s *Session) handleConnection() {
	conn, closeChan := s.connection()

	var closeOnce sync.Once
	cleanup := func() {
		closeOnce.Do(func() {
			conn.Close()
			select {
			case <-closeChan:
			default:
				close(closeChan)
			}
		})
	}
	defer cleanup()

	go s.writer(conn, closeChan)
	s.sendHello()
	log.Printf("[Live Session %s] Sent server HELLO", s.ID)

	conn.SetReadDeadline(time.Now().Add(300 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(300 * time.Second))
		return nil
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Live Session %s] Unexpected close: %v", s.ID, err)
			}
			break
		}
		switch messageType {
		case websocket.BinaryMessage:
			s.handleBinaryMessage(data)
		case websocket.TextMessage:
			log.Printf("[Live Session %s] Text message: %s", s.ID, string(data))
		}
	}

	// A replaced connection leaves the session to its successor
	if current, _ := s.connection(); current == conn {
		s.server.RemoveSession(s.ID)
	}
}

// writer drains the send queue onto conn until closeChan closes
func (s *Session) writer(conn *websocket.Conn, closeChan chan struct{}) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.sendChan:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				log.Printf("[Live Session %s] Failed to write message: %v", s.ID, err)
				return
			}
			if s.server.verbose {
				log.Printf("[Live Session %s] Wrote %d bytes", s.ID, len(message))
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closeChan:
			return
		}
	}
}
