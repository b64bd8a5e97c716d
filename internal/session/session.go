// Package session implements the multiplexer: it owns
// the command registry, matches responses to outstanding calls by id, and
// fans events out to per-session handlers and one-shot waiters.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pipecdp/pipecdp/internal/cdperr"
)

// HandlerFunc receives the raw params of a dispatched event. It is run as
// an independent goroutine — the reader never awaits it.
type HandlerFunc func(params json.RawMessage)

// waiter is a one-shot completion slot registered by WaitForEvent.
type waiter struct {
	predicate func(json.RawMessage) bool
	resultCh  chan waitResult
	removed   bool
}

type waitResult struct {
	params json.RawMessage
	err    error
}

// Session is an identifier string (empty ≡ browser-level) plus its event
// dispatch table and pending-waiter table. A Session does
// not own a transport; the Multiplexer routes frames into it by id.
type Session struct {
	id string

	mu        sync.Mutex
	handlers  map[string][]handlerEntry
	nextHID   uint64
	waiters   map[string][]*waiter
	detached  bool
}

type handlerEntry struct {
	id uint64
	fn HandlerFunc
}

// ID returns the session's identifier; the empty string denotes the
// browser-level session.
func (s *Session) ID() string { return s.id }

// Detached reports whether this session has torn down.
func (s *Session) Detached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}

func newSession(id string) *Session {
	return &Session{
		id:       id,
		handlers: make(map[string][]handlerEntry),
		waiters:  make(map[string][]*waiter),
	}
}

// on registers a persistent handler for method, run in dispatch order, and
// returns a token identifying this registration for Off.
func (s *Session) on(method string, h HandlerFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHID++
	id := s.nextHID
	s.handlers[method] = append(s.handlers[method], handlerEntry{id: id, fn: h})
	return id
}

// off removes a previously registered handler by the token On returned.
func (s *Session) off(method string, tok uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hs := s.handlers[method]
	for i, e := range hs {
		if e.id == tok {
			s.handlers[method] = append(hs[:i], hs[i+1:]...)
			return
		}
	}
}

// dispatch routes one event frame's params to this session's handlers
// (each scheduled as an independent goroutine, never inline) and then
// resolves matching one-shot waiters in FIFO order. A detached session
// drops the event.
func (s *Session) dispatch(method string, params json.RawMessage) {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	entries := append([]handlerEntry(nil), s.handlers[method]...)
	ws := s.waiters[method]
	var matched []*waiter
	remaining := ws[:0:0]
	for _, w := range ws {
		if w.removed {
			continue
		}
		if w.predicate == nil || w.predicate(params) {
			matched = append(matched, w)
			continue
		}
		remaining = append(remaining, w)
	}
	if len(matched) > 0 {
		s.waiters[method] = remaining
	}
	s.mu.Unlock()

	for _, e := range entries {
		go safeInvoke(e.fn, params)
	}
	for _, w := range matched {
		w.resultCh <- waitResult{params: params}
	}
}

// safeInvoke runs a handler and swallows any panic so one misbehaving
// handler can never poison the reader or other handlers.
func safeInvoke(h HandlerFunc, params json.RawMessage) {
	defer func() { _ = recover() }()
	h(params)
}

// addWaiter registers a one-shot waiter under method and returns it.
func (s *Session) addWaiter(method string, predicate func(json.RawMessage) bool) *waiter {
	w := &waiter{predicate: predicate, resultCh: make(chan waitResult, 1)}
	s.mu.Lock()
	s.waiters[method] = append(s.waiters[method], w)
	s.mu.Unlock()
	return w
}

// removeWaiter detaches a waiter from its table, e.g. on timeout or
// cancellation, so a late matching event does not try to deliver to it.
func (s *Session) removeWaiter(method string, w *waiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.removed = true
	ws := s.waiters[method]
	for i, x := range ws {
		if x == w {
			s.waiters[method] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
}

// markDetached transitions the session to detached and fails every
// outstanding waiter with a DetachedTab error exactly once.
func (s *Session) markDetached() {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.detached = true
	waiters := s.waiters
	s.waiters = make(map[string][]*waiter)
	s.mu.Unlock()

	for _, ws := range waiters {
		for _, w := range ws {
			if !w.removed {
				w.resultCh <- waitResult{err: &cdperr.DetachedTabError{SessionID: s.id}}
			}
		}
	}
}

// failAllWaiters resolves every outstanding waiter with err, used when the
// transport closes: every outstanding command and waiter completes
// exactly once with a ConnectionLost error.
func (s *Session) failAllWaiters(err error) {
	s.mu.Lock()
	waiters := s.waiters
	s.waiters = make(map[string][]*waiter)
	s.mu.Unlock()

	for _, ws := range waiters {
		for _, w := range ws {
			if !w.removed {
				w.resultCh <- waitResult{err: err}
			}
		}
	}
}

// waitFor blocks on a single waiter until it resolves, ctx is cancelled, or
// the zero-timeout fast path applies. Zero-duration contexts (a
// wait with timeout 0 resolves from already-queued dispatch on the same
// tick, or times out, never blocks longer) are satisfied naturally here:
// ctx.Done() fires immediately once its deadline has already passed, and
// select has no preference order between two ready cases, so a resultCh
// that was filled synchronously before the context ever expires can still
// win the race.
func waitFor(ctx context.Context, w *waiter) (json.RawMessage, error) {
	select {
	case r := <-w.resultCh:
		return r.params, r.err
	case <-ctx.Done():
		return nil, &cdperr.TimeoutError{Op: "wait_for_event"}
	}
}
