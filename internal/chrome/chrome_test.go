package chrome

import (
	"encoding/json"
	"sync"

	"github.com/pipecdp/pipecdp/internal/session"
	"github.com/pipecdp/pipecdp/internal/wire"
)

// scriptedSender stands in for a Transport in chrome package tests, the
// same role fakeSender plays in internal/session's own tests: it records
// outbound frames and answers each by method name, defaulting to an empty
// success result for anything unscripted (e.g. the domain-enable calls
// newTab issues that no test cares about the response to).
type scriptedSender struct {
	mu       sync.Mutex
	mux      *session.Multiplexer
	sent     []*wire.Frame
	handlers map[string]func(*wire.Frame) *wire.Frame
}

func newScriptedSender() *scriptedSender {
	return &scriptedSender{handlers: make(map[string]func(*wire.Frame) *wire.Frame)}
}

func (s *scriptedSender) on(method string, h func(*wire.Frame) *wire.Frame) {
	s.mu.Lock()
	s.handlers[method] = h
	s.mu.Unlock()
}

func (s *scriptedSender) Send(f *wire.Frame) error {
	s.mu.Lock()
	s.sent = append(s.sent, f)
	h := s.handlers[f.Method]
	s.mu.Unlock()

	var resp *wire.Frame
	if h != nil {
		resp = h(f)
	} else {
		resp = &wire.Frame{ID: f.ID, Result: json.RawMessage(`{}`)}
	}
	if resp != nil {
		go s.mux.HandleFrame(resp)
	}
	return nil
}

func (s *scriptedSender) sentMethods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	methods := make([]string, len(s.sent))
	for i, f := range s.sent {
		methods[i] = f.Method
	}
	return methods
}

// newTestTab builds a Tab against a scripted sender rather than a real
// Transport, the way chrome package tests exercise Tab/Elem logic without
// launching a browser. The caller's handlers answer whatever methods the
// test cares about; everything else gets an empty success.
func newTestTab(handlers map[string]func(*wire.Frame) *wire.Frame) (*Tab, *scriptedSender) {
	sender := newScriptedSender()
	for method, h := range handlers {
		sender.on(method, h)
	}
	mux := session.New(sender)
	sender.mux = mux

	b := &Browser{mux: mux, tabs: make(map[string]*Tab)}
	tab := newTab(b, "session-1", "target-1", "about:blank")
	b.tabs[tab.sessionID] = tab
	return tab, sender
}

func jsonResult(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
