package browser

import (
	"fmt"
	"strings"
)

// Capabilities is the negotiated set of browser options for a session.
type Capabilities map[string]any

// Clone returns a shallow copy.
func (c Capabilities) Clone() Capabilities {
	out := make(Capabilities, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String returns the value for key when it is a string.
func (c Capabilities) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the value for key when it is a bool, or def otherwise.
func (c Capabilities) Bool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// Merge overlays other onto a copy of c.
func (c Capabilities) Merge(other Capabilities) Capabilities {
	out := c.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ElementID identifies an element within one backend. Ids are opaque and only
// meaningful to the backend that issued them.
type ElementID string

// LocatorStrategy names a WebDriver element lookup strategy.
type LocatorStrategy string

const (
	LocatorCSS             LocatorStrategy = "css selector"
	LocatorXPath           LocatorStrategy = "xpath"
	LocatorID              LocatorStrategy = "id"
	LocatorName            LocatorStrategy = "name"
	LocatorClassName       LocatorStrategy = "class name"
	LocatorTagName         LocatorStrategy = "tag name"
	LocatorLinkText        LocatorStrategy = "link text"
	LocatorPartialLinkText LocatorStrategy = "partial link text"
)

// Locator is a lookup strategy plus its argument.
type Locator struct {
	Using LocatorStrategy `json:"using"`
	Value string          `json:"value"`
}

// Validate checks the strategy is known and the value is present.
func (l Locator) Validate() error {
	switch l.Using {
	case LocatorCSS, LocatorXPath, LocatorID, LocatorName, LocatorClassName,
		LocatorTagName, LocatorLinkText, LocatorPartialLinkText:
	default:
		return fmt.Errorf("unsupported locator strategy %q", l.Using)
	}
	if strings.TrimSpace(l.Value) == "" {
		return fmt.Errorf("locator value is required")
	}
	return nil
}

// CSS converts strategies that have a CSS equivalent. ok is false for xpath
// and link text strategies.
func (l Locator) CSS() (selector string, ok bool) {
	switch l.Using {
	case LocatorCSS:
		return l.Value, true
	case LocatorID:
		return "#" + cssEscape(l.Value), true
	case LocatorClassName:
		return "." + cssEscape(l.Value), true
	case LocatorName:
		return fmt.Sprintf("[name=%q]", l.Value), true
	case LocatorTagName:
		return l.Value, true
	}
	return "", false
}

func cssEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Cookie is a WebDriver cookie.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Expiry   int64  `json:"expiry,omitempty"`
}
