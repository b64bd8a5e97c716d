package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pipecdp/pipecdp/internal/cdp"
	"github.com/pipecdp/pipecdp/internal/launcher"
	"github.com/pipecdp/pipecdp/internal/session"
	"github.com/pipecdp/pipecdp/internal/transport"
	"github.com/pipecdp/pipecdp/internal/wire"
)

// lazySender breaks the construction cycle between the Multiplexer (which
// needs something to send through) and the Transport (whose onFrame
// callback needs the Multiplexer to already exist). The Transport is
// filled in immediately after both are constructed, before either one's
// goroutines can race ahead of it.
type lazySender struct {
	mu sync.Mutex
	t  *transport.Transport
}

func (l *lazySender) Send(f *wire.Frame) error {
	l.mu.Lock()
	t := l.t
	l.mu.Unlock()
	if t == nil {
		return fmt.Errorf("send %s: transport not ready", f.Method)
	}
	return t.Send(f)
}

func (l *lazySender) set(t *transport.Transport) {
	l.mu.Lock()
	l.t = t
	l.mu.Unlock()
}

// Browser owns the Supervisor, Transport, and Multiplexer exclusively
// and tracks every attached page target.
type Browser struct {
	cfg  Config
	inst *launcher.Instance
	t    *transport.Transport
	mux  *session.Multiplexer

	mu       sync.Mutex
	tabs     map[string]*Tab // sessionID -> Tab
	firstTab *Tab
	closed   bool

	firstTabOnce sync.Once
	firstTabCh   chan struct{}
}

// Start launches a new browser session: allocate the user
// data dir, launch Chromium via the Supervisor, wire up the Transport and
// Multiplexer, enable target discovery and flat auto-attach, and wait for
// the first page target to attach. Any failure along the way performs
// full cleanup before returning.
func Start(ctx context.Context, cfg Config) (*Browser, error) {
	cfg = cfg.withDefaults()

	inst, err := launcher.Launch(cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("launching chromium: %w", err)
	}

	b := &Browser{
		cfg:        cfg,
		inst:       inst,
		tabs:       make(map[string]*Tab),
		firstTabCh: make(chan struct{}),
	}

	sender := &lazySender{}
	mux := session.New(sender)
	b.mux = mux
	tr := transport.New(inst.ReadFile, inst.WriteFile, mux.HandleFrame, b.onTransportClosed)
	sender.set(tr)
	b.t = tr

	b.registerTargetHandlers()

	startupCtx, cancel := context.WithTimeout(ctx, cfg.FirstTabTimeout)
	defer cancel()

	if err := b.mux.Call(startupCtx, "", cdp.MethodTargetSetDiscoverTargets,
		cdp.SetDiscoverTargetsParams{Discover: true}, nil); err != nil {
		b.Close(context.Background())
		return nil, fmt.Errorf("enabling target discovery: %w", err)
	}
	if err := b.mux.Call(startupCtx, "", cdp.MethodTargetSetAutoAttach,
		cdp.SetAutoAttachParams{AutoAttach: true, Flatten: true}, nil); err != nil {
		b.Close(context.Background())
		return nil, fmt.Errorf("enabling flat auto-attach: %w", err)
	}

	b.WaitIdle(startupCtx, idleThreshold, idleTimeout)

	select {
	case <-b.firstTabCh:
	case <-startupCtx.Done():
		b.Close(context.Background())
		return nil, fmt.Errorf("waiting for first page target: %w", startupCtx.Err())
	}

	return b, nil
}

func (b *Browser) registerTargetHandlers() {
	b.mux.On("", cdp.EventTargetAttachedToTarget, func(params json.RawMessage) {
		var ev cdp.AttachedToTargetEvent
		if err := json.Unmarshal(params, &ev); err != nil {
			logf("decoding attachedToTarget: %v", err)
			return
		}
		if ev.TargetInfo.Type != "page" {
			return
		}
		b.handleAttached(ev)
	})
	b.mux.On("", cdp.EventTargetDetachedFromTarget, func(params json.RawMessage) {
		var ev cdp.DetachedFromTargetEvent
		if err := json.Unmarshal(params, &ev); err != nil {
			logf("decoding detachedFromTarget: %v", err)
			return
		}
		b.handleDetached(ev.SessionID)
	})
	b.mux.On("", cdp.EventTargetDestroyed, func(params json.RawMessage) {
		var ev cdp.TargetDestroyedEvent
		if err := json.Unmarshal(params, &ev); err != nil {
			return
		}
		b.mu.Lock()
		var sessionID string
		for sid, tab := range b.tabs {
			if tab.targetID == ev.TargetID {
				sessionID = sid
				break
			}
		}
		b.mu.Unlock()
		if sessionID != "" {
			b.handleDetached(sessionID)
		}
	})
}

func (b *Browser) handleAttached(ev cdp.AttachedToTargetEvent) {
	tab := newTab(b, ev.SessionID, ev.TargetInfo.TargetID, ev.TargetInfo.URL)
	logDebugf("tab attached: session=%s target=%s url=%s", ev.SessionID, ev.TargetInfo.TargetID, ev.TargetInfo.URL)

	b.mu.Lock()
	b.tabs[ev.SessionID] = tab
	if b.firstTab == nil {
		b.firstTab = tab
	}
	b.mu.Unlock()

	b.firstTabOnce.Do(func() { close(b.firstTabCh) })
}

func (b *Browser) handleDetached(sessionID string) {
	b.mu.Lock()
	tab, ok := b.tabs[sessionID]
	if ok {
		delete(b.tabs, sessionID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	logDebugf("tab detached: session=%s target=%s", sessionID, tab.targetID)
	tab.markDetached()
	b.mux.DetachSession(sessionID)
}

func (b *Browser) onTransportClosed(reason error) {
	logf("transport closed: %v", reason)
	b.mux.OnClosed(reason)
}

// idleThreshold and idleTimeout are the defaults Start uses for its
// internal WaitIdle call: settle for 150ms of silence, but never hold up
// launch for more than 2s waiting for one.
const (
	idleThreshold = 150 * time.Millisecond
	idleTimeout   = 2 * time.Second
)

// WaitIdle blocks until the CDP pipe has gone quiet — no frame received —
// for threshold, or until timeout elapses, whichever comes first. It never
// fails: a pipe that never settles just means the caller proceeds as soon
// as timeout runs out rather than blocking indefinitely.
func (b *Browser) WaitIdle(ctx context.Context, threshold, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if b.mux.SinceLastFrame() >= threshold || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// FirstTab returns the tab designated during Start, or nil if none has
// attached yet (it always has by the time Start returns successfully).
func (b *Browser) FirstTab() *Tab {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.firstTab
}

// Navigate navigates to url, returning the Tab it navigated: reuse the first tab
// if one exists, otherwise mint a new target, then issue Page.navigate on
// it without waiting for load — that's the caller's job via WaitForEvent.
func (b *Browser) Navigate(ctx context.Context, url string) (*Tab, error) {
	b.mu.Lock()
	tab := b.firstTab
	b.mu.Unlock()

	if tab == nil {
		var result cdp.CreateTargetResult
		if err := b.mux.Call(ctx, "", cdp.MethodTargetCreateTarget, cdp.CreateTargetParams{URL: "about:blank"}, &result); err != nil {
			return nil, err
		}
		tab = b.waitForTabByTarget(ctx, result.TargetID)
		if tab == nil {
			return nil, fmt.Errorf("target %s did not attach", result.TargetID)
		}
	}

	if err := tab.Navigate(ctx, url); err != nil {
		return nil, err
	}
	return tab, nil
}

func (b *Browser) waitForTabByTarget(ctx context.Context, targetID string) *Tab {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		for _, tab := range b.tabs {
			if tab.targetID == targetID {
				b.mu.Unlock()
				return tab
			}
		}
		b.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}

// Version issues Browser.getVersion, mostly useful for smoke-testing that
// a launched Chromium is responsive at all.
func (b *Browser) Version(ctx context.Context) (cdp.GetVersionResult, error) {
	var result cdp.GetVersionResult
	err := b.mux.Call(ctx, "", cdp.MethodBrowserGetVersion, nil, &result)
	return result, err
}

// On registers a persistent browser-session handler.
func (b *Browser) On(eventKind string, h func(params json.RawMessage)) uint64 {
	return b.mux.On("", eventKind, h)
}

// Off removes a handler previously registered with On.
func (b *Browser) Off(eventKind string, tok uint64) {
	b.mux.Off("", eventKind, tok)
}

// Close shuts the browser down; idempotent. Attempts a graceful
// Browser.close and then tears down the Transport (which fails every
// still-pending operation with ConnectionLost) while the Supervisor races
// its own SIGTERM→SIGKILL escalation against the child exiting on its
// own — the two run concurrently via errgroup rather than as a sequential
// wait chain, since neither depends on the other's completion.
func (b *Browser) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = b.mux.Call(closeCtx, "", cdp.MethodBrowserClose, nil, nil)
		b.t.Close()
		return nil
	})
	g.Go(func() error {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return b.inst.Stop(stopCtx)
	})
	return g.Wait()
}
