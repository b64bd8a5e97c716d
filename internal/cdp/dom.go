package cdp

// DOM domain: document/node queries, box model, attributes, tree walk.

const (
	MethodDOMEnable                  = "DOM.enable"
	MethodDOMGetDocument             = "DOM.getDocument"
	MethodDOMQuerySelector           = "DOM.querySelector"
	MethodDOMQuerySelectorAll        = "DOM.querySelectorAll"
	MethodDOMGetBoxModel             = "DOM.getBoxModel"
	MethodDOMGetAttributes           = "DOM.getAttributes"
	MethodDOMDescribeNode            = "DOM.describeNode"
	MethodDOMScrollIntoViewIfNeeded  = "DOM.scrollIntoViewIfNeeded"
	MethodDOMResolveNode             = "DOM.resolveNode"
	MethodDOMGetOuterHTML            = "DOM.getOuterHTML"
	MethodDOMRequestNode             = "DOM.requestNode"
)

// Node is a trimmed mirror of CDP's DOM.Node: just enough for traversal
// and identity, not the full recursive tree shape.
type Node struct {
	NodeID        int    `json:"nodeId"`
	BackendNodeID int    `json:"backendNodeId"`
	NodeType      int    `json:"nodeType"`
	NodeName      string `json:"nodeName"`
	ParentID      int    `json:"parentId,omitempty"`
	ChildNodeIDs  []int  `json:"-"`
	Children      []Node `json:"children,omitempty"`
}

type GetDocumentResult struct {
	Root Node `json:"root"`
}

type QuerySelectorParams struct {
	NodeID   int    `json:"nodeId"`
	Selector string `json:"selector"`
}

type QuerySelectorResult struct {
	NodeID int `json:"nodeId"`
}

type QuerySelectorAllParams struct {
	NodeID   int    `json:"nodeId"`
	Selector string `json:"selector"`
}

type QuerySelectorAllResult struct {
	NodeIDs []int `json:"nodeIds"`
}

// BoxModel mirrors CDP's quad layout: eight numbers per quad, (x,y) pairs
// for the four corners in clockwise order starting at top-left.
type BoxModel struct {
	Content []float64 `json:"content"`
	Padding []float64 `json:"padding"`
	Border  []float64 `json:"border"`
	Margin  []float64 `json:"margin"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
}

type GetBoxModelParams struct {
	NodeID int `json:"nodeId"`
}

type GetBoxModelResult struct {
	Model BoxModel `json:"model"`
}

// Center returns the geometric center of the content quad, averaging
// the four corners — the point Click dispatches mouse events at.
func (b BoxModel) Center() (x, y float64) {
	quad := b.Content
	if len(quad) < 8 {
		return 0, 0
	}
	for i := 0; i < 8; i += 2 {
		x += quad[i]
		y += quad[i+1]
	}
	return x / 4, y / 4
}

type GetAttributesParams struct {
	NodeID int `json:"nodeId"`
}

type GetAttributesResult struct {
	Attributes []string `json:"attributes"` // flat [name, value, name, value, ...]
}

// AsMap converts the flat CDP attribute list into a map.
func (r GetAttributesResult) AsMap() map[string]string {
	m := make(map[string]string, len(r.Attributes)/2)
	for i := 0; i+1 < len(r.Attributes); i += 2 {
		m[r.Attributes[i]] = r.Attributes[i+1]
	}
	return m
}

type DescribeNodeParams struct {
	NodeID int `json:"nodeId"`
	Depth  int `json:"depth"`
}

type DescribeNodeResult struct {
	Node Node `json:"node"`
}

type ScrollIntoViewIfNeededParams struct {
	NodeID int `json:"nodeId"`
}

type ResolveNodeParams struct {
	NodeID int `json:"nodeId"`
}

type ResolveNodeResult struct {
	Object struct {
		ObjectID string `json:"objectId"`
	} `json:"object"`
}

type GetOuterHTMLParams struct {
	NodeID int `json:"nodeId"`
}

type GetOuterHTMLResult struct {
	OuterHTML string `json:"outerHTML"`
}

type RequestNodeParams struct {
	ObjectID string `json:"objectId"`
}

type RequestNodeResult struct {
	NodeID int `json:"nodeId"`
}
