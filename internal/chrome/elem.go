package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode"

	"github.com/pipecdp/pipecdp/internal/cdp"
)

// clickFrameDetachGrace is how long Click waits, after its mouse events are
// dispatched, for a Page.frameDetached naming the clicked frame to arrive —
// long enough to catch a navigation the click itself triggered, short
// enough that a click with no such effect returns promptly.
const clickFrameDetachGrace = 100 * time.Millisecond

// Elem holds a non-owning reference back to the Tab it came from plus its
// DOM node identity: a nodeId and a lazily-resolved Runtime objectId for
// operations that need one. The node's backendNodeId is not kept.
type Elem struct {
	tab    *Tab
	nodeID int

	objectID string // resolved lazily, empty until first needed
}

func newElem(t *Tab, nodeID int) *Elem {
	return &Elem{tab: t, nodeID: nodeID}
}

// checkAttached asserts the owning Tab is still attached before every
// operation — an Elem outlives neither its Tab's session nor the DOM
// node it names.
func (e *Elem) checkAttached() error {
	return e.tab.checkAttached()
}

func (e *Elem) resolveObjectID(ctx context.Context) (string, error) {
	if e.objectID != "" {
		return e.objectID, nil
	}
	var result cdp.ResolveNodeResult
	if err := e.tab.Send(ctx, cdp.MethodDOMResolveNode, cdp.ResolveNodeParams{NodeID: e.nodeID}, &result); err != nil {
		return "", err
	}
	e.objectID = result.Object.ObjectID
	return e.objectID, nil
}

func (e *Elem) boxModel(ctx context.Context) (cdp.BoxModel, error) {
	var result cdp.GetBoxModelResult
	if err := e.tab.Send(ctx, cdp.MethodDOMGetBoxModel, cdp.GetBoxModelParams{NodeID: e.nodeID}, &result); err != nil {
		return cdp.BoxModel{}, err
	}
	return result.Model, nil
}

// Click calls getBoxModel, averages the content quad's four corners, then
// dispatches a mousePressed/mouseReleased pair at the center — the same
// sequence a real pointer click produces. If that dispatch triggers a
// navigation that destroys the frame the element lived in, Click returns
// the owning Tab (which may now point at a new document); otherwise it
// returns nil.
func (e *Elem) Click(ctx context.Context) (*Tab, error) {
	if err := e.checkAttached(); err != nil {
		return nil, err
	}
	model, err := e.boxModel(ctx)
	if err != nil {
		return nil, err
	}
	x, y := model.Center()
	if x == 0 && y == 0 {
		return nil, fmt.Errorf("click: element has no box model (not rendered?)")
	}

	frameID := e.tab.rootFrameID()
	detached := make(chan struct{}, 1)
	tok := e.tab.browser.mux.On(e.tab.sessionID, cdp.EventPageFrameDetached, func(params json.RawMessage) {
		var ev cdp.FrameDetachedEvent
		if err := json.Unmarshal(params, &ev); err != nil || ev.FrameID != frameID {
			return
		}
		select {
		case detached <- struct{}{}:
		default:
		}
	})
	defer e.tab.browser.mux.Off(e.tab.sessionID, cdp.EventPageFrameDetached, tok)

	press := cdp.DispatchMouseEventParams{Type: "mousePressed", X: x, Y: y, Button: "left", ClickCount: 1}
	release := cdp.DispatchMouseEventParams{Type: "mouseReleased", X: x, Y: y, Button: "left", ClickCount: 1}
	if err := e.tab.Send(ctx, cdp.MethodInputDispatchMouseEvent, press, nil); err != nil {
		return nil, err
	}
	if err := e.tab.Send(ctx, cdp.MethodInputDispatchMouseEvent, release, nil); err != nil {
		return nil, err
	}

	select {
	case <-detached:
		return e.tab, nil
	case <-time.After(clickFrameDetachGrace):
		return nil, nil
	case <-ctx.Done():
		return nil, nil
	}
}

// Type dispatches a keyDown/char/keyUp sequence per code point — char is
// what actually inserts text into the page; keyDown/keyUp alone just
// notify key-aware page scripts (autocomplete, input masks) without
// producing a character, same as a real keyboard's event stream.
func (e *Elem) Type(ctx context.Context, text string) error {
	if err := e.checkAttached(); err != nil {
		return err
	}
	if _, err := e.Click(ctx); err != nil {
		return err
	}
	for _, r := range text {
		ch := string(r)
		down := cdp.DispatchKeyEventParams{Type: "keyDown", Text: ch, UnmodifiedText: ch, Key: ch}
		up := cdp.DispatchKeyEventParams{Type: "keyUp", Text: ch, UnmodifiedText: ch, Key: ch}
		if code, ok := cdp.KeyCode(ch); ok {
			down.WindowsVirtualKeyCode = code
			down.NativeVirtualKeyCode = code
			up.WindowsVirtualKeyCode = code
			up.NativeVirtualKeyCode = code
		}
		if err := e.tab.Send(ctx, cdp.MethodInputDispatchKeyEvent, down, nil); err != nil {
			return err
		}
		if unicode.IsPrint(r) {
			char := cdp.DispatchKeyEventParams{Type: "char", Text: ch, UnmodifiedText: ch}
			if err := e.tab.Send(ctx, cdp.MethodInputDispatchKeyEvent, char, nil); err != nil {
				return err
			}
		}
		if err := e.tab.Send(ctx, cdp.MethodInputDispatchKeyEvent, up, nil); err != nil {
			return err
		}
	}
	return nil
}

// Text returns innerText via a JS call on this node's resolved objectId.
func (e *Elem) Text(ctx context.Context) (string, error) {
	if err := e.checkAttached(); err != nil {
		return "", err
	}
	objectID, err := e.resolveObjectID(ctx)
	if err != nil {
		return "", err
	}
	var result cdp.CallFunctionOnResult
	err = e.tab.Send(ctx, cdp.MethodRuntimeCallFunctionOn, cdp.CallFunctionOnParams{
		FunctionDeclaration: "function() { return this.innerText; }",
		ObjectID:             objectID,
		ReturnByValue:        true,
	}, &result)
	if err != nil {
		return "", err
	}
	if result.ExceptionDetails != nil {
		return "", fmt.Errorf("text: %s", result.ExceptionDetails.Text)
	}
	var text string
	if err := json.Unmarshal(result.Result.Value, &text); err != nil {
		return "", fmt.Errorf("text: decoding innerText: %w", err)
	}
	return text, nil
}

// GetAttr returns the named attribute's value, and whether it is present.
func (e *Elem) GetAttr(ctx context.Context, name string) (string, bool, error) {
	if err := e.checkAttached(); err != nil {
		return "", false, err
	}
	var result cdp.GetAttributesResult
	if err := e.tab.Send(ctx, cdp.MethodDOMGetAttributes, cdp.GetAttributesParams{NodeID: e.nodeID}, &result); err != nil {
		return "", false, err
	}
	v, ok := result.AsMap()[name]
	return v, ok, nil
}

// ScrollIntoView scrolls the element into the viewport if it isn't already.
func (e *Elem) ScrollIntoView(ctx context.Context) error {
	if err := e.checkAttached(); err != nil {
		return err
	}
	return e.tab.Send(ctx, cdp.MethodDOMScrollIntoViewIfNeeded, cdp.ScrollIntoViewIfNeededParams{NodeID: e.nodeID}, nil)
}

// Children describes the node one level deep and wraps each child nodeId
// as an Elem.
func (e *Elem) Children(ctx context.Context) ([]*Elem, error) {
	if err := e.checkAttached(); err != nil {
		return nil, err
	}
	var result cdp.DescribeNodeResult
	if err := e.tab.Send(ctx, cdp.MethodDOMDescribeNode, cdp.DescribeNodeParams{NodeID: e.nodeID, Depth: 1}, &result); err != nil {
		return nil, err
	}
	children := make([]*Elem, 0, len(result.Node.Children))
	for _, child := range result.Node.Children {
		children = append(children, newElem(e.tab, child.NodeID))
	}
	return children, nil
}

// Parent returns the element's parent, or nil if it has none. It issues
// the same DOM.describeNode call Children uses and wraps the parentId that
// call reports; a zero parentId means no parent.
func (e *Elem) Parent(ctx context.Context) (*Elem, error) {
	if err := e.checkAttached(); err != nil {
		return nil, err
	}
	var result cdp.DescribeNodeResult
	if err := e.tab.Send(ctx, cdp.MethodDOMDescribeNode, cdp.DescribeNodeParams{NodeID: e.nodeID}, &result); err != nil {
		return nil, err
	}
	if result.Node.ParentID == 0 {
		return nil, nil
	}
	return newElem(e.tab, result.Node.ParentID), nil
}

// HTML returns the element's outer HTML.
func (e *Elem) HTML(ctx context.Context) (string, error) {
	if err := e.checkAttached(); err != nil {
		return "", err
	}
	var result cdp.GetOuterHTMLResult
	if err := e.tab.Send(ctx, cdp.MethodDOMGetOuterHTML, cdp.GetOuterHTMLParams{NodeID: e.nodeID}, &result); err != nil {
		return "", err
	}
	return result.OuterHTML, nil
}

// SetValue assigns .value directly via JS rather than simulating
// keystrokes, for form fields where synthetic typing is unnecessary
// overhead, and fires an input event so framework-bound listeners notice.
func (e *Elem) SetValue(ctx context.Context, value string) error {
	if err := e.checkAttached(); err != nil {
		return err
	}
	objectID, err := e.resolveObjectID(ctx)
	if err != nil {
		return err
	}
	args, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var result cdp.CallFunctionOnResult
	err = e.tab.Send(ctx, cdp.MethodRuntimeCallFunctionOn, cdp.CallFunctionOnParams{
		FunctionDeclaration: "function(v) { this.value = v; this.dispatchEvent(new Event('input', {bubbles: true})); }",
		ObjectID:             objectID,
		Arguments:            []cdp.CallArgument{{Value: json.RawMessage(args)}},
	}, &result)
	if err != nil {
		return err
	}
	if result.ExceptionDetails != nil {
		return fmt.Errorf("set_value: %s", result.ExceptionDetails.Text)
	}
	return nil
}
