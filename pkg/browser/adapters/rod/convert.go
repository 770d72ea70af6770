package rod

import (
	"context"
	"errors"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/proto"

	"github.com/odvcencio/ghostdriver/pkg/browser"
)

// syncWrapper turns a WebDriver script body into a function rod can apply
// to the call arguments.
func syncWrapper(script string) string {
	return "function() {\n" + script + "\n}"
}

// asyncWrapper appends a resolve callback to the arguments; the returned
// promise settles when the script invokes it.
func asyncWrapper(script string) string {
	return `function() {
	const args = Array.prototype.slice.call(arguments);
	const self = this;
	return new Promise(function(resolve) {
		args.push(resolve);
		(function() {
` + script + `
		}).apply(self, args);
	});
}`
}

var staleMarkers = []string{
	"Could not find node",
	"No node with given id",
	"Node is detached",
	"Cannot find context with specified id",
	"Cannot find object with id",
}

var closedMarkers = []string{
	"use of closed network connection",
	"websocket: close",
	"Target closed",
	"Session with given id not found",
}

// translate maps rod and CDP failures onto the browser error sentinels.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var evalErr *rod.EvalError
	if errors.As(err, &evalErr) {
		return browser.WrapBackendError(op, evalErr.Error(), browser.ErrJavaScript)
	}

	msg := err.Error()
	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) {
		msg = cdpErr.Message + " " + cdpErr.Data
	}
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return browser.WrapBackendError(op, msg, browser.ErrStaleElement)
		}
	}
	for _, m := range closedMarkers {
		if strings.Contains(msg, m) {
			return browser.WrapBackendError(op, msg, browser.ErrSessionClosed)
		}
	}
	return browser.WrapBackendError(op, "devtools call failed", err)
}

func translateSelector(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "is not a valid") || strings.Contains(msg, "SyntaxError") {
		return browser.WrapBackendError("find elements", msg, browser.ErrInvalidSelector)
	}
	return translate("find elements", err)
}

func translateState(op string, err error) error {
	if strings.Contains(err.Error(), "invalid element state") {
		return browser.WrapBackendError(op, "element is not editable", browser.ErrInvalidElementState)
	}
	var evalErr *rod.EvalError
	if errors.As(err, &evalErr) {
		return browser.WrapBackendError(op, evalErr.Error(), browser.ErrInvalidElementState)
	}
	return translate(op, err)
}

func translateCookie(err error) error {
	if strings.Contains(err.Error(), "Invalid cookie") || strings.Contains(err.Error(), "domain") {
		return browser.WrapBackendError("add cookie", err.Error(), browser.ErrInvalidCookie)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return browser.WrapBackendError("add cookie", err.Error(), browser.ErrUnableToSetCookie)
}

func toCookieParam(c browser.Cookie, pageURL string) *proto.NetworkCookieParam {
	p := &proto.NetworkCookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
	}
	if p.Domain == "" {
		p.URL = pageURL
	}
	if p.Path == "" {
		p.Path = "/"
	}
	if c.Expiry > 0 {
		p.Expires = proto.TimeSinceEpoch(c.Expiry)
	}
	return p
}

func fromNetworkCookies(in []*proto.NetworkCookie) []browser.Cookie {
	out := make([]browser.Cookie, 0, len(in))
	for _, c := range in {
		bc := browser.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if !c.Session && c.Expires > 0 {
			bc.Expiry = int64(c.Expires)
		}
		out = append(out, bc)
	}
	return out
}
