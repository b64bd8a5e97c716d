package cdp

import "encoding/json"

// Runtime domain: JS evaluation, remote object calls, console events.

const (
	MethodRuntimeEnable         = "Runtime.enable"
	MethodRuntimeEvaluate       = "Runtime.evaluate"
	MethodRuntimeCallFunctionOn = "Runtime.callFunctionOn"

	EventRuntimeConsoleAPICalled  = "Runtime.consoleAPICalled"
	EventRuntimeExceptionThrown   = "Runtime.exceptionThrown"
)

type RemoteObject struct {
	Type        string          `json:"type"`
	Subtype     string          `json:"subtype,omitempty"`
	ClassName   string          `json:"className,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	ObjectID    string          `json:"objectId,omitempty"`
	Description string          `json:"description,omitempty"`
}

// ExceptionDetails mirrors the payload Runtime.evaluate attaches when the
// evaluated expression throws. Eval surfaces this as a ProtocolError,
// not a silently-empty result.
type ExceptionDetails struct {
	ExceptionID  int           `json:"exceptionId"`
	Text         string        `json:"text"`
	LineNumber   int           `json:"lineNumber"`
	ColumnNumber int           `json:"columnNumber"`
	Exception    *RemoteObject `json:"exception,omitempty"`
}

type EvaluateParams struct {
	Expression    string `json:"expression"`
	ReturnByValue bool   `json:"returnByValue"`
	AwaitPromise  bool   `json:"awaitPromise,omitempty"`
}

type EvaluateResult struct {
	Result           RemoteObject      `json:"result"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails,omitempty"`
}

type CallArgument struct {
	Value    json.RawMessage `json:"value,omitempty"`
	ObjectID string          `json:"objectId,omitempty"`
}

type CallFunctionOnParams struct {
	FunctionDeclaration string         `json:"functionDeclaration"`
	ObjectID            string         `json:"objectId"`
	Arguments           []CallArgument `json:"arguments,omitempty"`
	ReturnByValue       bool           `json:"returnByValue"`
	AwaitPromise        bool           `json:"awaitPromise,omitempty"`
}

type CallFunctionOnResult struct {
	Result           RemoteObject      `json:"result"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails,omitempty"`
}

// ConsoleAPICalledEvent mirrors Runtime.consoleAPICalled, one of the
// page events a caller can subscribe to via Tab.On.
type ConsoleAPICalledEvent struct {
	Type string         `json:"type"`
	Args []RemoteObject `json:"args"`
}
