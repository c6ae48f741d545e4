package channel

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	pkgerrors "github.com/angelmondragon/storebridge/pkg/errors"
	"github.com/angelmondragon/storebridge/pkg/logger"
	"github.com/angelmondragon/storebridge/pkg/types"
)

// Dispatcher routes one method call to the bridge.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, args json.RawMessage) (any, error)
}

// Session is one connected host application. All writes to the underlying
// connection go through the outbound queue and a single write pump, so
// replies and pushed events never interleave mid-frame.
type Session struct {
	id         string
	conn       *websocket.Conn
	dispatcher Dispatcher
	logg       *logger.Logger

	outbound chan any
	closed   chan struct{}
	once     sync.Once
}

func newSession(id string, conn *websocket.Conn, dispatcher Dispatcher, logg *logger.Logger, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Session{
		id:         id,
		conn:       conn,
		dispatcher: dispatcher,
		logg:       logg,
		outbound:   make(chan any, queueSize),
		closed:     make(chan struct{}),
	}
}

// run blocks until the connection drops or the context is cancelled.
func (s *Session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(s.logg.WithClientID(ctx, s.id))
	defer cancel()

	go s.writePump(ctx)
	s.readLoop(ctx)
}

func (s *Session) readLoop(ctx context.Context) {
	defer s.close()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "channel read failed")
			}
			return
		}

		var call types.Call
		if err := json.Unmarshal(payload, &call); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "discarding unparseable frame")
			continue
		}
		if call.ID == "" || call.Method == "" {
			s.logg.Warn(ctx, "discarding call without id or method")
			continue
		}

		// Each call runs on its own goroutine; a purchase waiting on user
		// approval must not stall unrelated calls on the same channel.
		go s.handleCall(ctx, call)
	}
}

func (s *Session) handleCall(ctx context.Context, call types.Call) {
	result, err := s.dispatcher.Dispatch(ctx, call.Method, call.Args)

	reply := types.Reply{ID: call.ID, Result: result}
	if err != nil {
		reply.Result = nil
		reply.Error = wireError(err)
	}
	s.send(ctx, reply)
}

// send delivers a reply, blocking until the write pump takes it. Replies
// are never dropped while the session lives.
func (s *Session) send(ctx context.Context, msg any) {
	select {
	case s.outbound <- msg:
	case <-s.closed:
	case <-ctx.Done():
	}
}

// enqueue offers an event without blocking. A host that stops draining its
// channel loses events rather than wedging the update listener.
func (s *Session) enqueue(ctx context.Context, event types.Event) bool {
	select {
	case s.outbound <- event:
		return true
	case <-s.closed:
		return false
	default:
		s.logg.Warn(s.logg.WithClientID(ctx, s.id), "event queue full, dropping event")
		return false
	}
}

func (s *Session) writePump(ctx context.Context) {
	for {
		select {
		case msg := <-s.outbound:
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "channel write failed")
				s.close()
				return
			}
		case <-s.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) close() {
	s.once.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

func wireError(err error) *types.WireError {
	typed := pkgerrors.Normalize(err)
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := typed.Message()
	if msg == "" {
		msg = meta.PublicMessage
	}
	wire := &types.WireError{Code: string(typed.Code()), Message: msg}
	if meta.DetailsAllowed {
		wire.Details = typed.Details()
	}
	return wire
}
