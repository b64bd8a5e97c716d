package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pipecdp/pipecdp/internal/cdp"
	"github.com/pipecdp/pipecdp/internal/cdperr"
	"github.com/pipecdp/pipecdp/internal/wire"
)

func TestFindElemReturnsNilWhenNoMatch(t *testing.T) {
	tab, _ := newTestTab(map[string]func(*wire.Frame) *wire.Frame{
		cdp.MethodDOMGetDocument: func(f *wire.Frame) *wire.Frame {
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.GetDocumentResult{Root: cdp.Node{NodeID: 1}})}
		},
		cdp.MethodDOMQuerySelector: func(f *wire.Frame) *wire.Frame {
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.QuerySelectorResult{NodeID: 0})}
		},
	})

	elem, err := tab.FindElem(context.Background(), "#missing")
	if err != nil {
		t.Fatalf("FindElem: %v", err)
	}
	if elem != nil {
		t.Fatalf("expected nil elem for no match, got %+v", elem)
	}
}

func TestFindElemCachesDocumentRoot(t *testing.T) {
	getDocumentCalls := 0
	tab, sender := newTestTab(map[string]func(*wire.Frame) *wire.Frame{
		cdp.MethodDOMGetDocument: func(f *wire.Frame) *wire.Frame {
			getDocumentCalls++
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.GetDocumentResult{Root: cdp.Node{NodeID: 7}})}
		},
		cdp.MethodDOMQuerySelector: func(f *wire.Frame) *wire.Frame {
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.QuerySelectorResult{NodeID: 42})}
		},
	})

	ctx := context.Background()
	if _, err := tab.FindElem(ctx, "a"); err != nil {
		t.Fatalf("first FindElem: %v", err)
	}
	if _, err := tab.FindElem(ctx, "b"); err != nil {
		t.Fatalf("second FindElem: %v", err)
	}

	if getDocumentCalls != 1 {
		t.Fatalf("expected DOM.getDocument to be called once (cached), got %d calls", getDocumentCalls)
	}
	_ = sender
}

func TestNavigateInvalidatesDocumentCache(t *testing.T) {
	getDocumentCalls := 0
	tab, _ := newTestTab(map[string]func(*wire.Frame) *wire.Frame{
		cdp.MethodDOMGetDocument: func(f *wire.Frame) *wire.Frame {
			getDocumentCalls++
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.GetDocumentResult{Root: cdp.Node{NodeID: 1}})}
		},
		cdp.MethodDOMQuerySelector: func(f *wire.Frame) *wire.Frame {
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.QuerySelectorResult{NodeID: 5})}
		},
		cdp.MethodPageNavigate: func(f *wire.Frame) *wire.Frame {
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.NavigateResult{})}
		},
	})

	ctx := context.Background()
	if _, err := tab.FindElem(ctx, "a"); err != nil {
		t.Fatalf("FindElem: %v", err)
	}
	if err := tab.Navigate(ctx, "https://example.com"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if _, err := tab.FindElem(ctx, "a"); err != nil {
		t.Fatalf("FindElem after navigate: %v", err)
	}

	if getDocumentCalls != 2 {
		t.Fatalf("expected DOM.getDocument to be re-fetched after navigate, got %d calls", getDocumentCalls)
	}
}

func TestEvalSurfacesExceptionAsProtocolError(t *testing.T) {
	tab, _ := newTestTab(map[string]func(*wire.Frame) *wire.Frame{
		cdp.MethodRuntimeEvaluate: func(f *wire.Frame) *wire.Frame {
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.EvaluateResult{
				ExceptionDetails: &cdp.ExceptionDetails{ExceptionID: 3, Text: "ReferenceError: x is not defined"},
			})}
		},
	})

	_, err := tab.Eval(context.Background(), "x.y", true)
	if err == nil {
		t.Fatal("expected an error from a throwing evaluate")
	}
	var perr *cdperr.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *cdperr.ProtocolError, got %T: %v", err, err)
	}
}

func TestWaitForElemTimesOutWhenSelectorNeverAppears(t *testing.T) {
	tab, _ := newTestTab(map[string]func(*wire.Frame) *wire.Frame{
		cdp.MethodDOMGetDocument: func(f *wire.Frame) *wire.Frame {
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.GetDocumentResult{Root: cdp.Node{NodeID: 1}})}
		},
		cdp.MethodDOMQuerySelector: func(f *wire.Frame) *wire.Frame {
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.QuerySelectorResult{NodeID: 0})}
		},
	})

	_, err := tab.WaitForElem(context.Background(), "#never", 120*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	var terr *cdperr.TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *cdperr.TimeoutError, got %T: %v", err, err)
	}
}

func TestCookiesRoundTripsThroughNetworkDomain(t *testing.T) {
	var setCalled, getCalled bool
	tab, _ := newTestTab(map[string]func(*wire.Frame) *wire.Frame{
		cdp.MethodNetworkSetCookie: func(f *wire.Frame) *wire.Frame {
			setCalled = true
			return &wire.Frame{ID: f.ID, Result: jsonResult(struct{}{})}
		},
		cdp.MethodNetworkGetCookies: func(f *wire.Frame) *wire.Frame {
			getCalled = true
			return &wire.Frame{ID: f.ID, Result: jsonResult(cdp.GetCookiesResult{
				Cookies: []cdp.Cookie{{Name: "session", Value: "abc", Domain: "example.com"}},
			})}
		},
	})

	ctx := context.Background()
	if err := tab.SetCookie(ctx, cdp.SetCookieParams{Name: "session", Value: "abc"}); err != nil {
		t.Fatalf("SetCookie: %v", err)
	}
	if !setCalled {
		t.Fatal("expected Network.setCookie to be called")
	}

	cookies, err := tab.Cookies(ctx)
	if err != nil {
		t.Fatalf("Cookies: %v", err)
	}
	if !getCalled {
		t.Fatal("expected Network.getCookies to be called")
	}
	if len(cookies) != 1 || cookies[0].Name != "session" {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
}

func TestOnFansEventOutToEveryRegisteredHandler(t *testing.T) {
	tab, sender := newTestTab(nil)

	var calls []string
	var mu sync.Mutex
	record := func(name string) func(json.RawMessage) {
		return func(json.RawMessage) {
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
		}
	}
	tab.On(cdp.EventRuntimeConsoleAPICalled, record("a"))
	tab.On(cdp.EventRuntimeConsoleAPICalled, record("b"))
	tab.On(cdp.EventRuntimeConsoleAPICalled, record("c"))

	sender.mux.HandleFrame(&wire.Frame{
		Method:    cdp.EventRuntimeConsoleAPICalled,
		SessionID: tab.sessionID,
		Params:    jsonResult(cdp.ConsoleAPICalledEvent{Type: "log"}),
	})

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(calls)
		mu.Unlock()
		if n == 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 3 {
		t.Fatalf("expected all 3 handlers to fire, got %v", calls)
	}
}

func TestDetachedTabRejectsOperations(t *testing.T) {
	tab, _ := newTestTab(nil)
	tab.markDetached()

	if _, err := tab.Eval(context.Background(), "1+1", true); err == nil {
		t.Fatal("expected detached tab to reject Eval")
	} else if !IsDetachedTab(err) {
		t.Fatalf("expected a DetachedTab error, got %v", err)
	}

	if err := tab.Navigate(context.Background(), "https://example.com"); err == nil {
		t.Fatal("expected detached tab to reject Navigate")
	}
}
