package cdp

// Browser domain: version info and the clean-shutdown command.

const (
	MethodBrowserGetVersion = "Browser.getVersion"
	MethodBrowserClose      = "Browser.close"
)

type GetVersionResult struct {
	Product         string `json:"product"`
	ProtocolVersion string `json:"protocolVersion"`
	Revision        string `json:"revision"`
	UserAgent       string `json:"userAgent"`
	JSVersion       string `json:"jsVersion"`
}
