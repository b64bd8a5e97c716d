package chrome

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pipecdp/pipecdp/internal/cdp"
	"github.com/pipecdp/pipecdp/internal/cdperr"
	"github.com/pipecdp/pipecdp/internal/session"
	"github.com/pipecdp/pipecdp/internal/wire"
)

// newTestBrowser builds a Browser wired to a scripted sender instead of a
// real Transport, so target attach/detach fan-out can be exercised by
// feeding event frames directly into the Multiplexer.
func newTestBrowser() (*Browser, *scriptedSender) {
	sender := newScriptedSender()
	mux := session.New(sender)
	sender.mux = mux

	b := &Browser{mux: mux, tabs: make(map[string]*Tab), firstTabCh: make(chan struct{})}
	b.registerTargetHandlers()
	return b, sender
}

func attachEvent(sessionID, targetID, url string) *wire.Frame {
	return &wire.Frame{
		Method: cdp.EventTargetAttachedToTarget,
		Params: jsonResult(cdp.AttachedToTargetEvent{
			SessionID:  sessionID,
			TargetInfo: cdp.TargetInfo{TargetID: targetID, Type: "page", URL: url},
		}),
	}
}

func TestHandleAttachedRegistersFirstTab(t *testing.T) {
	b, _ := newTestBrowser()

	b.mux.HandleFrame(attachEvent("sess-1", "target-1", "about:blank"))

	select {
	case <-b.firstTabCh:
	case <-time.After(time.Second):
		t.Fatal("firstTabCh was never closed after attach")
	}

	tab := b.FirstTab()
	if tab == nil {
		t.Fatal("expected FirstTab to be set after attach")
	}
	if tab.sessionID != "sess-1" || tab.targetID != "target-1" {
		t.Fatalf("unexpected tab identity: %+v", tab)
	}
}

func TestHandleAttachedIgnoresNonPageTargets(t *testing.T) {
	b, _ := newTestBrowser()

	frame := &wire.Frame{
		Method: cdp.EventTargetAttachedToTarget,
		Params: jsonResult(cdp.AttachedToTargetEvent{
			SessionID:  "sess-1",
			TargetInfo: cdp.TargetInfo{TargetID: "target-1", Type: "service_worker"},
		}),
	}
	b.mux.HandleFrame(frame)

	select {
	case <-b.firstTabCh:
		t.Fatal("non-page target should not have triggered firstTabCh")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleDetachedRemovesTabAndMarksIt(t *testing.T) {
	b, _ := newTestBrowser()
	b.mux.HandleFrame(attachEvent("sess-1", "target-1", "about:blank"))

	<-b.firstTabCh
	tab := b.FirstTab()

	b.mux.HandleFrame(&wire.Frame{
		Method: cdp.EventTargetDetachedFromTarget,
		Params: jsonResult(cdp.DetachedFromTargetEvent{SessionID: "sess-1", TargetID: "target-1"}),
	})

	deadline := time.Now().Add(time.Second)
	for !tab.Detached() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !tab.Detached() {
		t.Fatal("expected tab to be marked detached")
	}

	b.mu.Lock()
	_, stillPresent := b.tabs["sess-1"]
	b.mu.Unlock()
	if stillPresent {
		t.Fatal("expected detached tab to be removed from Browser.tabs")
	}
}

func TestTransportClosedFailsOutstandingTabCalls(t *testing.T) {
	b, sender := newTestBrowser()
	b.mux.HandleFrame(attachEvent("sess-1", "target-1", "about:blank"))
	<-b.firstTabCh
	tab := b.FirstTab()

	// Never answer this call; the transport closing should still resolve it.
	sender.on(cdp.MethodRuntimeEvaluate, func(f *wire.Frame) *wire.Frame { return nil })

	errCh := make(chan error, 1)
	go func() {
		_, err := tab.Eval(context.Background(), "1+1", true)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	b.onTransportClosed(errors.New("child process exited"))

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected Eval to fail once the transport closes")
		}
		var cerr *cdperr.ConnectionLostError
		if !errors.As(err, &cerr) {
			t.Fatalf("expected *cdperr.ConnectionLostError, got %T: %v", err, err)
		}
	case <-time.After(time.Second):
		t.Fatal("Eval never returned after transport closed")
	}
}

func TestWaitIdleReturnsOnceThePipeGoesQuiet(t *testing.T) {
	b, _ := newTestBrowser()

	start := time.Now()
	b.WaitIdle(context.Background(), 30*time.Millisecond, time.Second)
	elapsed := time.Since(start)

	if elapsed < 30*time.Millisecond {
		t.Fatalf("expected WaitIdle to wait at least the threshold, got %v", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("expected WaitIdle to return promptly once idle, got %v", elapsed)
	}
}

func TestWaitIdleGivesUpAtTimeoutWhenFramesKeepArriving(t *testing.T) {
	b, _ := newTestBrowser()

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				b.mux.HandleFrame(&wire.Frame{Method: "Page.loadEventFired", Params: jsonResult(struct{}{})})
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
	defer close(stop)

	start := time.Now()
	b.WaitIdle(context.Background(), 50*time.Millisecond, 100*time.Millisecond)
	elapsed := time.Since(start)

	if elapsed < 100*time.Millisecond {
		t.Fatalf("expected WaitIdle to run out its timeout against a noisy pipe, got %v", elapsed)
	}
	if elapsed > 400*time.Millisecond {
		t.Fatalf("expected WaitIdle to stop at its timeout, got %v", elapsed)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b, sender := newTestBrowser()
	sender.on(cdp.MethodBrowserClose, func(f *wire.Frame) *wire.Frame {
		return &wire.Frame{ID: f.ID, Result: jsonResult(struct{}{})}
	})
	b.inst = nil // exercised paths below never reach inst.Stop in this harness
	b.t = nil

	// Close without a real Transport/Instance would panic on b.t.Close()
	// and b.inst.Stop(); this test only exercises the idempotency guard
	// itself, not the full shutdown sequence covered by the launcher and
	// transport packages' own tests.
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close on an already-closed browser should be a no-op, got %v", err)
	}
}
