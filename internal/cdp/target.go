// Package cdp is the driver's own catalog of CDP command and event shapes:
// typed parameter and result structs for the slice of the protocol this
// driver speaks, hand-written as flat structs with json tags rather than
// generated from the upstream protocol schema — see DESIGN.md for why.
package cdp

// Target domain: target discovery, attach/detach, lifecycle events.

const (
	MethodTargetSetDiscoverTargets = "Target.setDiscoverTargets"
	MethodTargetSetAutoAttach      = "Target.setAutoAttach"
	MethodTargetAttachToTarget     = "Target.attachToTarget"
	MethodTargetDetachFromTarget   = "Target.detachFromTarget"
	MethodTargetCloseTarget        = "Target.closeTarget"
	MethodTargetCreateTarget       = "Target.createTarget"
	MethodTargetGetTargets         = "Target.getTargets"

	EventTargetCreated         = "Target.targetCreated"
	EventTargetDestroyed       = "Target.targetDestroyed"
	EventTargetInfoChanged     = "Target.targetInfoChanged"
	EventTargetAttachedToTarget = "Target.attachedToTarget"
	EventTargetDetachedFromTarget = "Target.detachedFromTarget"
)

// TargetInfo describes one browsing-context target as reported by the
// Target domain.
type TargetInfo struct {
	TargetID         string `json:"targetId"`
	Type             string `json:"type"`
	Title            string `json:"title"`
	URL              string `json:"url"`
	Attached         bool   `json:"attached"`
	BrowserContextID string `json:"browserContextId,omitempty"`
}

type SetDiscoverTargetsParams struct {
	Discover bool `json:"discover"`
}

type SetAutoAttachParams struct {
	AutoAttach             bool `json:"autoAttach"`
	WaitForDebuggerOnStart bool `json:"waitForDebuggerOnStart"`
	Flatten                bool `json:"flatten"`
}

type AttachToTargetParams struct {
	TargetID string `json:"targetId"`
	Flatten  bool   `json:"flatten"`
}

type AttachToTargetResult struct {
	SessionID string `json:"sessionId"`
}

type DetachFromTargetParams struct {
	SessionID string `json:"sessionId,omitempty"`
	TargetID  string `json:"targetId,omitempty"`
}

type CloseTargetParams struct {
	TargetID string `json:"targetId"`
}

type CloseTargetResult struct {
	Success bool `json:"success"`
}

type CreateTargetParams struct {
	URL      string `json:"url"`
	NewWindow bool  `json:"newWindow,omitempty"`
	Background bool `json:"background,omitempty"`
}

type CreateTargetResult struct {
	TargetID string `json:"targetId"`
}

type GetTargetsResult struct {
	TargetInfos []TargetInfo `json:"targetInfos"`
}

// TargetCreatedEvent / TargetDestroyedEvent / TargetInfoChangedEvent carry
// the browser-session-level target lifecycle notifications Browser
// registers handlers for.
type TargetCreatedEvent struct {
	TargetInfo TargetInfo `json:"targetInfo"`
}

type TargetDestroyedEvent struct {
	TargetID string `json:"targetId"`
}

type TargetInfoChangedEvent struct {
	TargetInfo TargetInfo `json:"targetInfo"`
}

type AttachedToTargetEvent struct {
	SessionID        string     `json:"sessionId"`
	TargetInfo       TargetInfo `json:"targetInfo"`
	WaitingForDebugger bool     `json:"waitingForDebugger"`
}

type DetachedFromTargetEvent struct {
	SessionID string `json:"sessionId"`
	TargetID  string `json:"targetId,omitempty"`
}
