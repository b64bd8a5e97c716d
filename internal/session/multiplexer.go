package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pipecdp/pipecdp/internal/cdperr"
	"github.com/pipecdp/pipecdp/internal/wire"
)

// Sender delivers one encoded frame to the transport. The Multiplexer
// depends only on this narrow interface, not on the transport type, so it
// can be driven by a fake in tests.
type Sender interface {
	Send(f *wire.Frame) error
}

// pendingCall is the command registry's completion slot: the expected
// response decoder target is left to the caller (Call unmarshals directly
// into the result pointer it was given), so the slot only needs to carry
// the raw bytes or error back across the goroutine boundary.
type pendingCall struct {
	sessionID string
	resultCh  chan callResult
}

type callResult struct {
	result json.RawMessage
	err    error
}

// Multiplexer allocates monotonic command ids, matches responses to them,
// and fans events out to per-session dispatch tables. Shared resources are
// mutated only under mu.
type Multiplexer struct {
	sender Sender

	mu        sync.Mutex
	nextID    uint64
	pending   map[uint64]*pendingCall
	sessions  map[string]*Session
	closed    bool
	closeErr  error
	lastFrame time.Time
}

// New constructs a Multiplexer that writes outbound frames via sender. The
// browser-level session (empty id) is registered up front.
func New(sender Sender) *Multiplexer {
	m := &Multiplexer{
		sender:    sender,
		pending:   make(map[uint64]*pendingCall),
		sessions:  make(map[string]*Session),
		lastFrame: time.Now(),
	}
	m.sessions[""] = newSession("")
	return m
}

// SinceLastFrame reports how long it has been since any frame, response or
// event, was last handed to HandleFrame. WaitIdle polls this to detect a
// pipe that has gone quiet after the initial auto-attach fan-out settles.
func (m *Multiplexer) SinceLastFrame() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastFrame)
}

// NewSession registers a fresh session under id. Re-registering an id that
// already exists replaces its table. On and WaitForEvent also create a
// session the first time they see an unknown id, which is how a Tab's
// session comes into being when it attaches.
func (m *Multiplexer) NewSession(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newSession(id)
	m.sessions[id] = s
	return s
}

// Session looks up a session by id. The empty string is always present.
func (m *Multiplexer) Session(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// DetachSession marks a session detached: every pending command issued on
// it fails with DetachedTab, every outstanding waiter fails the same way,
// and the session itself stops accepting new dispatch. This
// must happen before any subsequent command on that session can succeed —
// Call checks Detached() before ever allocating an id.
func (m *Multiplexer) DetachSession(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	var toFail []*pendingCall
	for _, p := range m.pending {
		if p.sessionID == id {
			toFail = append(toFail, p)
		}
	}
	m.mu.Unlock()

	s.markDetached()
	for _, p := range toFail {
		select {
		case p.resultCh <- callResult{err: &cdperr.DetachedTabError{SessionID: id}}:
		default:
		}
	}
}

// Call implements the outbound call contract:
// allocate an id, register a completion slot, hand the frame to the
// sender, and await completion, deadline, or transport-closed — whichever
// comes first. result, if non-nil, receives the decoded response payload.
func (m *Multiplexer) Call(ctx context.Context, sessionID, method string, params interface{}, result interface{}) error {
	m.mu.Lock()
	if m.closed {
		err := m.closeErrLocked()
		m.mu.Unlock()
		return err
	}
	if s, ok := m.sessions[sessionID]; ok && s.Detached() {
		m.mu.Unlock()
		return &cdperr.DetachedTabError{SessionID: sessionID}
	}
	m.nextID++
	id := m.nextID
	slot := &pendingCall{sessionID: sessionID, resultCh: make(chan callResult, 1)}
	m.pending[id] = slot
	m.mu.Unlock()

	cleanup := func() {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
	}

	frame, err := wire.NewCommand(id, sessionID, method, params)
	if err != nil {
		cleanup()
		return err
	}
	if err := m.sender.Send(frame); err != nil {
		cleanup()
		return &cdperr.ConnectionLostError{Reason: err}
	}

	select {
	case r := <-slot.resultCh:
		cleanup()
		if r.err != nil {
			return r.err
		}
		if result != nil && len(r.result) > 0 {
			if err := json.Unmarshal(r.result, result); err != nil {
				return err
			}
		}
		return nil
	case <-ctx.Done():
		cleanup()
		return &cdperr.TimeoutError{Op: method}
	}
}

func (m *Multiplexer) closeErrLocked() error {
	return &cdperr.ConnectionLostError{Reason: m.closeErr}
}

// HandleFrame is the Transport's onFrame callback: it routes a response to
// its waiting caller by id, or fans an event out through its session.
// Missing-slot responses and frames addressed to an unknown session are
// dropped — never fatal.
func (m *Multiplexer) HandleFrame(f *wire.Frame) {
	m.mu.Lock()
	m.lastFrame = time.Now()
	m.mu.Unlock()

	if f.IsResponse() {
		m.mu.Lock()
		slot, ok := m.pending[f.ID]
		if ok {
			delete(m.pending, f.ID)
		}
		m.mu.Unlock()
		if !ok {
			return
		}
		if f.Error != nil {
			slot.resultCh <- callResult{err: &cdperr.ProtocolError{Code: f.Error.Code, Message: f.Error.Message, Data: f.Error.Data}}
			return
		}
		slot.resultCh <- callResult{result: f.Result}
		return
	}

	if !f.IsEvent() {
		return
	}
	m.mu.Lock()
	s, ok := m.sessions[f.SessionID]
	m.mu.Unlock()
	if !ok {
		return
	}
	s.dispatch(f.Method, f.Params)
}

// OnClosed is the Transport's onClosed callback. Every outstanding command
// and every outstanding waiter, across every session, resolves exactly
// once with a ConnectionLost error.
func (m *Multiplexer) OnClosed(reason error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.closeErr = reason
	pending := m.pending
	m.pending = make(map[uint64]*pendingCall)
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	err := &cdperr.ConnectionLostError{Reason: reason}
	for _, p := range pending {
		select {
		case p.resultCh <- callResult{err: err}:
		default:
		}
	}
	for _, s := range sessions {
		s.failAllWaiters(err)
	}
}

// On registers a persistent handler on the named session for method and
// returns a token for Off. sessionID "" is the browser-level session.
func (m *Multiplexer) On(sessionID, method string, h HandlerFunc) uint64 {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = newSession(sessionID)
		m.sessions[sessionID] = s
	}
	m.mu.Unlock()
	return s.on(method, h)
}

// Off removes a handler previously registered with On.
func (m *Multiplexer) Off(sessionID, method string, tok uint64) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}
	s.off(method, tok)
}

// WaitForEvent implements the waiter contract:
// wait_for_event(session, event_kind, predicate?, deadline) → event |
// Timeout. The waiter is removed from its table before its deadline
// expires on any exit path, so a late event that would have matched still
// only reaches persistent handlers.
func (m *Multiplexer) WaitForEvent(ctx context.Context, sessionID, method string, predicate func(json.RawMessage) bool) (json.RawMessage, error) {
	m.mu.Lock()
	if m.closed {
		err := m.closeErrLocked()
		m.mu.Unlock()
		return nil, err
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		s = newSession(sessionID)
		m.sessions[sessionID] = s
	}
	m.mu.Unlock()

	if s.Detached() {
		return nil, &cdperr.DetachedTabError{SessionID: sessionID}
	}

	w := s.addWaiter(method, predicate)
	params, err := waitFor(ctx, w)
	if err != nil {
		s.removeWaiter(method, w)
	}
	return params, err
}
