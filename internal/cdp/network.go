package cdp

// Network domain: cookie CRUD, backing the Tab cookie helpers — a natural
// Tab-scoped convenience alongside navigation and DOM queries.

const (
	MethodNetworkEnable          = "Network.enable"
	MethodNetworkGetCookies      = "Network.getCookies"
	MethodNetworkSetCookie       = "Network.setCookie"
	MethodNetworkDeleteCookies   = "Network.deleteCookies"
	MethodNetworkClearBrowserCookies = "Network.clearBrowserCookies"
)

type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

type GetCookiesResult struct {
	Cookies []Cookie `json:"cookies"`
}

type SetCookieParams struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	URL      string  `json:"url,omitempty"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

type DeleteCookiesParams struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}
