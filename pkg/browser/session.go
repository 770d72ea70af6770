package browser

import "context"

//go:generate mockgen -package=mocks -destination=mocks/browser.go github.com/odvcencio/ghostdriver/pkg/browser Runtime,Backend

// Runtime creates browser backends, one per WebDriver session.
type Runtime interface {
	NewSession(ctx context.Context, caps Capabilities) (Backend, error)
	Close() error
}

// Backend is the port implemented by browser runtime adapters. A Backend is
// owned by exactly one WebDriver session and is not assumed to be reentrant;
// callers serialize access.
type Backend interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Source(ctx context.Context) (string, error)
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Refresh(ctx context.Context) error

	ExecuteScript(ctx context.Context, script string, args []any) (any, error)
	ExecuteAsyncScript(ctx context.Context, script string, args []any) (any, error)

	// FindElements never waits; an empty result is not an error. A non-empty
	// root scopes the lookup to the descendants of that element.
	FindElements(ctx context.Context, root ElementID, locator Locator) ([]ElementID, error)
	ElementText(ctx context.Context, id ElementID) (string, error)
	ElementTagName(ctx context.Context, id ElementID) (string, error)
	ElementAttribute(ctx context.Context, id ElementID, name string) (*string, error)
	ElementClick(ctx context.Context, id ElementID) error
	ElementClear(ctx context.Context, id ElementID) error
	ElementSendKeys(ctx context.Context, id ElementID, text string) error

	Cookies(ctx context.Context) ([]Cookie, error)
	AddCookie(ctx context.Context, cookie Cookie) error
	DeleteCookie(ctx context.Context, name string) error
	DeleteAllCookies(ctx context.Context) error

	// Screenshot returns PNG bytes of the current viewport.
	Screenshot(ctx context.Context) ([]byte, error)

	Close() error
}
