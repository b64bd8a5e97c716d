package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pipecdp/pipecdp/internal/cdp"
	"github.com/pipecdp/pipecdp/internal/cdperr"
)

// Tab binds a CDP session to a page target. Its state machine
// is attached → detached, detached being terminal; Elems issued from a Tab
// hold only a non-owning reference back to it.
type Tab struct {
	browser   *Browser
	sessionID string
	targetID  string

	mu        sync.Mutex
	url       string
	detached  bool
	docNodeID int    // 0 means "not cached yet"
	frameID   string // root frame id; a page target's frame id equals its target id
}

func newTab(b *Browser, sessionID, targetID, url string) *Tab {
	t := &Tab{browser: b, sessionID: sessionID, targetID: targetID, url: url, frameID: targetID}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Enable the domains Tab/Elem operations depend on; failures here are
	// logged, not fatal — a tab that can't enable Runtime, say, will just
	// fail its first eval() with a protocol error, which is no worse than
	// the enable call itself failing.
	for _, method := range []string{cdp.MethodPageEnable, cdp.MethodRuntimeEnable, cdp.MethodDOMEnable} {
		if err := b.mux.Call(ctx, sessionID, method, nil, nil); err != nil {
			logf("enabling %s on session %s: %v", method, sessionID, err)
		}
	}

	t.browser.mux.On(sessionID, cdp.EventPageFrameNavigated, func(params json.RawMessage) {
		t.invalidateDocumentCache()
	})

	return t
}

// invalidateDocumentCache drops the cached root document node id so the
// next find_elem/find_elems re-fetches it, so stale ids never survive a
// cross-document navigation.
func (t *Tab) invalidateDocumentCache() {
	t.mu.Lock()
	t.docNodeID = 0
	t.mu.Unlock()
}

// Detached reports whether this tab's session has torn down.
func (t *Tab) Detached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.detached
}

func (t *Tab) markDetached() {
	t.mu.Lock()
	t.detached = true
	t.mu.Unlock()
}

func (t *Tab) checkAttached() error {
	if t.Detached() {
		return &cdperr.DetachedTabError{SessionID: t.sessionID}
	}
	return nil
}

// Send is a thin wrapper over Multiplexer.call with this tab's session id.
func (t *Tab) Send(ctx context.Context, method string, params, result interface{}) error {
	if err := t.checkAttached(); err != nil {
		return err
	}
	return t.browser.mux.Call(ctx, t.sessionID, method, params, result)
}

// Navigate issues Page.navigate on this tab's session and updates the
// cached URL; it does not wait for load.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	var result cdp.NavigateResult
	if err := t.Send(ctx, cdp.MethodPageNavigate, cdp.NavigateParams{URL: url}, &result); err != nil {
		return err
	}
	if result.ErrorText != "" {
		return &cdperr.ProtocolError{Message: result.ErrorText}
	}
	t.mu.Lock()
	t.url = url
	t.docNodeID = 0
	if result.FrameID != "" {
		t.frameID = result.FrameID
	}
	t.mu.Unlock()
	return nil
}

// rootFrameID returns the tab's current root frame id, used to recognize
// when a click's navigation destroyed the frame it targeted.
func (t *Tab) rootFrameID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frameID
}

// URL returns the last URL this tab navigated to (or attached with).
func (t *Tab) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// Eval issues Runtime.evaluate with the caller's returnByValue and surfaces
// any exceptionDetails as a ProtocolError rather than returning it silently.
func (t *Tab) Eval(ctx context.Context, expression string, returnByValue bool) (*cdp.RemoteObject, error) {
	var result cdp.EvaluateResult
	if err := t.Send(ctx, cdp.MethodRuntimeEvaluate, cdp.EvaluateParams{
		Expression:    expression,
		ReturnByValue: returnByValue,
	}, &result); err != nil {
		return nil, err
	}
	if result.ExceptionDetails != nil {
		msg := result.ExceptionDetails.Text
		if result.ExceptionDetails.Exception != nil && result.ExceptionDetails.Exception.Description != "" {
			msg = result.ExceptionDetails.Exception.Description
		}
		return nil, &cdperr.ProtocolError{Code: result.ExceptionDetails.ExceptionID, Message: msg}
	}
	return &result.Result, nil
}

// Cookies returns the cookies visible to this tab's current document.
func (t *Tab) Cookies(ctx context.Context) ([]cdp.Cookie, error) {
	if err := t.Send(ctx, cdp.MethodNetworkEnable, nil, nil); err != nil {
		return nil, err
	}
	var result cdp.GetCookiesResult
	if err := t.Send(ctx, cdp.MethodNetworkGetCookies, nil, &result); err != nil {
		return nil, err
	}
	return result.Cookies, nil
}

// SetCookie sets a cookie scoped to this tab's current URL unless the
// caller overrides Domain/URL in params.
func (t *Tab) SetCookie(ctx context.Context, params cdp.SetCookieParams) error {
	if params.URL == "" {
		params.URL = t.URL()
	}
	if err := t.Send(ctx, cdp.MethodNetworkEnable, nil, nil); err != nil {
		return err
	}
	return t.Send(ctx, cdp.MethodNetworkSetCookie, params, nil)
}

// DeleteCookie removes cookies matching params by name, scoped to this
// tab's current URL unless the caller overrides Domain/URL.
func (t *Tab) DeleteCookie(ctx context.Context, params cdp.DeleteCookiesParams) error {
	if params.URL == "" {
		params.URL = t.URL()
	}
	return t.Send(ctx, cdp.MethodNetworkDeleteCookies, params, nil)
}

// ClearCookies removes every cookie in the browser's cookie jar, not just
// those visible to this tab — Network.clearBrowserCookies has no
// per-session scope.
func (t *Tab) ClearCookies(ctx context.Context) error {
	return t.Send(ctx, cdp.MethodNetworkClearBrowserCookies, nil, nil)
}

// documentRoot returns the cached root node id, fetching and caching it on
// first use per attachment.
func (t *Tab) documentRoot(ctx context.Context) (int, error) {
	t.mu.Lock()
	cached := t.docNodeID
	t.mu.Unlock()
	if cached != 0 {
		return cached, nil
	}

	var result cdp.GetDocumentResult
	if err := t.Send(ctx, cdp.MethodDOMGetDocument, nil, &result); err != nil {
		return 0, err
	}

	t.mu.Lock()
	t.docNodeID = result.Root.NodeID
	t.mu.Unlock()
	return result.Root.NodeID, nil
}

// FindElem finds the first element matching selector, or nil if none match.
func (t *Tab) FindElem(ctx context.Context, selector string) (*Elem, error) {
	root, err := t.documentRoot(ctx)
	if err != nil {
		return nil, err
	}
	var result cdp.QuerySelectorResult
	if err := t.Send(ctx, cdp.MethodDOMQuerySelector, cdp.QuerySelectorParams{NodeID: root, Selector: selector}, &result); err != nil {
		return nil, err
	}
	if result.NodeID == 0 {
		return nil, nil
	}
	return newElem(t, result.NodeID), nil
}

// FindElems finds every element matching selector.
func (t *Tab) FindElems(ctx context.Context, selector string) ([]*Elem, error) {
	root, err := t.documentRoot(ctx)
	if err != nil {
		return nil, err
	}
	var result cdp.QuerySelectorAllResult
	if err := t.Send(ctx, cdp.MethodDOMQuerySelectorAll, cdp.QuerySelectorAllParams{NodeID: root, Selector: selector}, &result); err != nil {
		return nil, err
	}
	elems := make([]*Elem, 0, len(result.NodeIDs))
	for _, id := range result.NodeIDs {
		elems = append(elems, newElem(t, id))
	}
	return elems, nil
}

// backoffSchedule yields exponential-backoff poll delays: 50ms, 100ms,
// 200ms, then holding at the 200ms ceiling.
func backoffSchedule() func() time.Duration {
	delay := 50 * time.Millisecond
	const ceiling = 200 * time.Millisecond
	first := true
	return func() time.Duration {
		if first {
			first = false
			return delay
		}
		delay *= 2
		if delay > ceiling {
			delay = ceiling
		}
		return delay
	}
}

// WaitForElem polls for a selector to match, up to timeout.
func (t *Tab) WaitForElem(ctx context.Context, selector string, timeout time.Duration) (*Elem, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	next := backoffSchedule()
	for {
		elem, err := t.FindElem(ctx, selector)
		if err != nil {
			return nil, err
		}
		if elem != nil {
			return elem, nil
		}
		select {
		case <-ctx.Done():
			return nil, &cdperr.TimeoutError{Op: fmt.Sprintf("wait_for_elem(%q)", selector)}
		case <-time.After(next()):
		}
	}
}

// WaitForElems polls for a selector to match at least min_count elements,
// up to timeout.
func (t *Tab) WaitForElems(ctx context.Context, selector string, timeout time.Duration, minCount int) ([]*Elem, error) {
	if minCount <= 0 {
		minCount = 1
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	next := backoffSchedule()
	for {
		elems, err := t.FindElems(ctx, selector)
		if err != nil {
			return nil, err
		}
		if len(elems) >= minCount {
			return elems, nil
		}
		select {
		case <-ctx.Done():
			return nil, &cdperr.TimeoutError{Op: fmt.Sprintf("wait_for_elems(%q)", selector)}
		case <-time.After(next()):
		}
	}
}

// WaitForEvent delegates to the Multiplexer, scoped to this tab's session.
func (t *Tab) WaitForEvent(ctx context.Context, eventKind string, predicate func(json.RawMessage) bool) (json.RawMessage, error) {
	if err := t.checkAttached(); err != nil {
		return nil, err
	}
	return t.browser.mux.WaitForEvent(ctx, t.sessionID, eventKind, predicate)
}

// On registers a session-scoped persistent handler.
func (t *Tab) On(eventKind string, h func(params json.RawMessage)) uint64 {
	return t.browser.mux.On(t.sessionID, eventKind, h)
}

// Off removes a handler registered with On.
func (t *Tab) Off(eventKind string, tok uint64) {
	t.browser.mux.Off(t.sessionID, eventKind, tok)
}

// Close issues Target.closeTarget for this tab and swallows the
// already-detached case, since closing a tab that is already gone is not
// an error from the caller's point of view.
func (t *Tab) Close(ctx context.Context) error {
	if t.Detached() {
		return nil
	}
	err := t.browser.mux.Call(ctx, "", cdp.MethodTargetCloseTarget, cdp.CloseTargetParams{TargetID: t.targetID}, nil)
	if err != nil && !IsDetachedTab(err) {
		return err
	}
	return nil
}

// IsDetachedTab reports whether err is (or wraps) a DetachedTab error.
func IsDetachedTab(err error) bool {
	return errors.Is(err, cdperr.ErrDetachedTab)
}
