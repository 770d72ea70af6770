package errors

import (
	"context"
	stdliberrors "errors"

	"github.com/odvcencio/ghostdriver/pkg/browser"
)

type backendMapping struct {
	target  error
	code    ErrorCode
	status  int
	message string
}

var backendMappings = []backendMapping{
	{browser.ErrNoSuchElement, ErrCodeNoSuchElement, StatusNoSuchElement, "An element could not be located on the page using the given search parameters"},
	{browser.ErrStaleElement, ErrCodeStaleElement, StatusStaleElementReference, "Element is no longer attached to the DOM"},
	{browser.ErrElementNotVisible, ErrCodeElementNotVisible, StatusElementNotVisible, "Element is not currently visible"},
	{browser.ErrInvalidElementState, ErrCodeInvalidElementState, StatusInvalidElementState, "Element is in an invalid state"},
	{browser.ErrScriptTimeout, ErrCodeScriptTimeout, StatusScriptTimeout, "Script did not complete before its timeout expired"},
	{browser.ErrJavaScript, ErrCodeJavaScript, StatusJavaScriptError, "An error occurred while executing user supplied JavaScript"},
	{browser.ErrInvalidSelector, ErrCodeInvalidSelector, StatusInvalidSelector, "Argument was an invalid selector"},
	{browser.ErrInvalidCookie, ErrCodeInvalidCookieDomain, StatusInvalidCookieDomain, "Cookie domain does not match the current page"},
	{browser.ErrUnableToSetCookie, ErrCodeUnableToSetCookie, StatusUnableToSetCookie, "Unable to set cookie"},
	{browser.ErrOperationTimeout, ErrCodeTimeout, StatusTimeout, "Operation did not complete before its timeout expired"},
	{context.DeadlineExceeded, ErrCodeTimeout, StatusTimeout, "Operation did not complete before its timeout expired"},
	{browser.ErrSessionClosed, ErrCodeNoSuchSession, StatusNoSuchDriver, "Browser session is no longer available"},
	{browser.ErrUnavailable, ErrCodeNoSuchSession, StatusNoSuchDriver, "Browser runtime is unavailable"},
}

// FromBackend translates an error reported by a browser backend into the
// protocol taxonomy. Protocol errors pass through unchanged.
func FromBackend(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	for _, m := range backendMappings {
		if stdliberrors.Is(err, m.target) {
			e := New(m.code, m.status, m.message)
			e.Underlying = err
			return e
		}
	}
	e := New(ErrCodeUnknownError, StatusUnknownError, "An unknown server-side error occurred while processing the command")
	e.Underlying = err
	return e
}
