package live

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/recera/pivot/pkg/chart"
	"github.com/recera/pivot/pkg/interaction"
	"github.com/recera/pivot/pkg/scheduler"
)

// Session is one remote explorer: a connection, a scheduler rendering the
// session's chart, and the page level listener bus the chart mounts on
type Session struct {
	ID     string
	server *Server

	mu        sync.RWMutex
	conn      *websocket.Conn
	closeChan chan struct{}
	lastSeq   uint64
	sendChan  chan []byte

	sched   *scheduler.Scheduler
	chart   *chart.Chart
	fiber   *scheduler.Fiber
	bus     *interaction.Listeners
	release func()
	cancel  context.CancelFunc
}

func newSession(id string, conn *websocket.Conn, server *Server) *Session {
	s := &Session{
		ID:        id,
		server:    server,
		conn:      conn,
		closeChan: make(chan struct{}),
		sendChan:  make(chan []byte, 256),
		sched:     scheduler.NewScheduler(),
		bus:       interaction.NewListeners(),
	}
	s.attach()
	return s
}

// attach builds the session's chart and starts rendering it
func (s *Session) attach() {
	s.chart = s.server.factory(s.sched)

	s.sched.SetFrameSink(func(_ *scheduler.Fiber, frame string) {
		s.sendRender(frame)
	})
	s.sched.SetDefaultErrorHandler(func(fiber *scheduler.Fiber, err interface{}) bool {
		log.Printf("[Live Session %s] Render error: %v", s.ID, err)
		return true
	})

	s.fiber = s.sched.CreateFiber(s.chart.Render, nil)
	s.chart.Watch(s.fiber)

	release, err := s.chart.Mount(s.bus)
	if err != nil {
		log.Printf("[Live Session %s] Failed to mount chart: %v", s.ID, err)
		release = func() {}
	}
	s.release = release

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.sched.Start()
	s.sched.MarkDirty(s.fiber)
	s.chart.Refresh(ctx)
}

// detach stops rendering and releases everything attach acquired
func (s *Session) detach() {
	s.cancel()
	s.release()
	s.bus.Close()
	s.sched.Stop()
	s.chart.Close()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	conn.Close()
	log.Printf("[Live Session %s] Closed", s.ID)
}

func (s *Session) connection() (*websocket.Conn, chan struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn, s.closeChan
}

// replaceConn hands the session to a new connection, closing the old one
func (s *Session) replaceConn(conn *websocket.Conn) {
	s.mu.Lock()
	old, oldClose := s.conn, s.closeChan
	s.conn = conn
	s.closeChan = make(chan struct{})
	s.mu.Unlock()

	select {
	case <-oldClose:
	default:
		close(oldClose)
	}
	old.Close()
	// The new client starts from a blank screen
	if frame := s.fiber.Frame(); frame != "" {
		s.sendRender(frame)
	}
}

// Chart returns the session's chart
func (s *Session) Chart() *chart.Chart {
	return s.chart
}

// sendHello announces the session ID and the last frame sequence
func (s *Session) sendHello() {
	s.mu.RLock()
	seq := s.lastSeq
	s.mu.RUnlock()
	s.send(EncodeControl("HELLO", s.ID, strconv.FormatUint(seq, 10)))
}

func (s *Session) sendRender(frame string) {
	s.mu.Lock()
	s.lastSeq++
	seq := s.lastSeq
	s.mu.Unlock()
	s.send(EncodeRender(Render{Seq: seq, Status: s.chart.Status(), Frame: frame}))
}

// send queues a frame without blocking. A full queue drops the frame; the
// next render supersedes it anyway.
func (s *Session) send(data []byte) {
	select {
	case s.sendChan <- data:
	default:
		log.Printf("[Live Session %s] Send buffer full, dropping frame", s.ID)
	}
}

// handleBinaryMessage processes binary protocol messages
func (s *Session) handleBinaryMessage(data []byte) {
	if len(data) == 0 {
		return
	}

	switch MessageType(data[0]) {
	case FrameEvent:
		event, err := DecodeEvent(data)
		if err != nil {
			log.Printf("[Live Session %s] Failed to decode event: %v", s.ID, err)
			return
		}
		if err := s.handleEvent(event); err != nil {
			log.Printf("[Live Session %s] %v", s.ID, err)
		}

	case FrameControl:
		name, args, err := DecodeControl(data)
		if err != nil {
			log.Printf("[Live Session %s] Failed to decode control message: %v", s.ID, err)
			return
		}
		switch name {
		case "HELLO":
			log.Printf("[Live Session %s] Client hello: %v", s.ID, args)
		case "PING":
			s.send(EncodeControl("PONG"))
		}
	}
}

// MaxViewport bounds the columns and rows a client may resize to
const MaxViewport = 1000

// handleEvent routes a client event into the chart
func (s *Session) handleEvent(event *Event) error {
	if s.server.verbose {
		log.Printf("[Live Session %s] Event: type=%v, x=%v, y=%v", s.ID, event.Type, event.X, event.Y)
	}
	c := s.chart
	switch event.Type {
	case EventMove:
		c.MouseMove(event.X, event.Y)
	case EventDown:
		c.MouseDown(event.X, event.Y)
	case EventUp:
		s.bus.Emit(interaction.EventPointerUp)
	case EventLeave:
		c.MouseLeave()
	case EventClick:
		c.Click(event.X, event.Y)
	case EventScroll:
		c.ScrollBy(event.Y, event.X)
	case EventEscape:
		s.bus.Emit(interaction.EventEscape)
	case EventResize:
		w, h := int(event.X), int(event.Y)
		if w < 1 || w > MaxViewport || h < 1 || h > MaxViewport {
			return fmt.Errorf("resize %dx%d out of range 1..%d", w, h, MaxViewport)
		}
		c.Resize(w, h)
	case EventAccept:
		c.Accept()
	case EventKind:
		i := int(event.X)
		if views := s.server.views; len(views) > 0 {
			if i < 0 || i >= len(views) {
				return fmt.Errorf("unknown view %d", i)
			}
			c.Show(context.Background(), views[i])
			return nil
		}
		if i < 0 || i >= len(chart.Kinds) {
			return fmt.Errorf("unknown chart kind %d", i)
		}
		c.SetKind(chart.Kinds[i])
	default:
		return fmt.Errorf("unknown event type %d", event.Type)
	}
	return nil
}
