package rod

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/odvcencio/ghostdriver/pkg/browser"
	"github.com/odvcencio/ghostdriver/pkg/session"
)

// Backend is a single page in its own incognito context.
type Backend struct {
	runtime   *Runtime
	incognito *rod.Browser
	page      *rod.Page

	mu       sync.Mutex
	closed   bool
	elements map[browser.ElementID]*rod.Element
}

func newBackend(r *Runtime, incognito *rod.Browser, page *rod.Page) *Backend {
	return &Backend{
		runtime:   r,
		incognito: incognito,
		page:      page,
		elements:  make(map[browser.ElementID]*rod.Element),
	}
}

func (b *Backend) pageFor(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, browser.ErrSessionClosed
	}
	return b.page.Context(ctx), nil
}

func (b *Backend) Navigate(ctx context.Context, url string) error {
	p, err := b.pageFor(ctx)
	if err != nil {
		return err
	}
	if err := p.Navigate(url); err != nil {
		return translate("navigate", err)
	}
	if err := p.WaitLoad(); err != nil {
		return translate("wait load", err)
	}
	b.forgetElements()
	return nil
}

func (b *Backend) CurrentURL(ctx context.Context) (string, error) {
	p, err := b.pageFor(ctx)
	if err != nil {
		return "", err
	}
	info, err := p.Info()
	if err != nil {
		return "", translate("current url", err)
	}
	return info.URL, nil
}

func (b *Backend) Title(ctx context.Context) (string, error) {
	p, err := b.pageFor(ctx)
	if err != nil {
		return "", err
	}
	info, err := p.Info()
	if err != nil {
		return "", translate("title", err)
	}
	return info.Title, nil
}

func (b *Backend) Source(ctx context.Context) (string, error) {
	p, err := b.pageFor(ctx)
	if err != nil {
		return "", err
	}
	html, err := p.HTML()
	if err != nil {
		return "", translate("source", err)
	}
	return html, nil
}

func (b *Backend) Back(ctx context.Context) error {
	return b.history(ctx, "back", (*rod.Page).NavigateBack)
}

func (b *Backend) Forward(ctx context.Context) error {
	return b.history(ctx, "forward", (*rod.Page).NavigateForward)
}

func (b *Backend) Refresh(ctx context.Context) error {
	return b.history(ctx, "refresh", (*rod.Page).Reload)
}

func (b *Backend) history(ctx context.Context, op string, fn func(*rod.Page) error) error {
	p, err := b.pageFor(ctx)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return translate(op, err)
	}
	if err := p.WaitLoad(); err != nil {
		return translate(op, err)
	}
	b.forgetElements()
	return nil
}

func (b *Backend) ExecuteScript(ctx context.Context, script string, args []any) (any, error) {
	p, err := b.pageFor(ctx)
	if err != nil {
		return nil, err
	}
	res, err := p.Eval(syncWrapper(script), args...)
	if err != nil {
		return nil, translate("execute", err)
	}
	return res.Value.Val(), nil
}

func (b *Backend) ExecuteAsyncScript(ctx context.Context, script string, args []any) (any, error) {
	p, err := b.pageFor(ctx)
	if err != nil {
		return nil, err
	}
	res, err := p.Eval(asyncWrapper(script), args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, browser.ErrScriptTimeout
		}
		return nil, translate("execute async", err)
	}
	return res.Value.Val(), nil
}

func (b *Backend) FindElements(ctx context.Context, root browser.ElementID, locator browser.Locator) ([]browser.ElementID, error) {
	if err := locator.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", browser.ErrInvalidSelector, err)
	}
	p, err := b.pageFor(ctx)
	if err != nil {
		return nil, err
	}

	var scope interface {
		Elements(string) (rod.Elements, error)
		ElementsX(string) (rod.Elements, error)
	} = p
	if root != "" {
		el, err := b.element(ctx, root)
		if err != nil {
			return nil, err
		}
		scope = el
	}

	var found rod.Elements
	switch locator.Using {
	case browser.LocatorXPath:
		found, err = scope.ElementsX(locator.Value)
	case browser.LocatorLinkText, browser.LocatorPartialLinkText:
		found, err = scope.Elements("a")
		if err == nil {
			found, err = filterLinks(found, locator)
		}
	default:
		css, _ := locator.CSS()
		found, err = scope.Elements(css)
	}
	if err != nil {
		return nil, translateSelector(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]browser.ElementID, 0, len(found))
	for _, el := range found {
		id := browser.ElementID(session.NewElementID())
		b.elements[id] = el
		ids = append(ids, id)
	}
	return ids, nil
}

func filterLinks(links rod.Elements, locator browser.Locator) (rod.Elements, error) {
	out := make(rod.Elements, 0, len(links))
	for _, a := range links {
		text, err := a.Text()
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == locator.Value || (locator.Using == browser.LocatorPartialLinkText && strings.Contains(text, locator.Value)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (b *Backend) element(ctx context.Context, id browser.ElementID) (*rod.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, browser.ErrSessionClosed
	}
	el, ok := b.elements[id]
	if !ok {
		return nil, browser.ErrStaleElement
	}
	return el.Context(ctx), nil
}

func (b *Backend) forgetElements() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.elements = make(map[browser.ElementID]*rod.Element)
}

func (b *Backend) ElementText(ctx context.Context, id browser.ElementID) (string, error) {
	el, err := b.element(ctx, id)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", translate("element text", err)
	}
	return text, nil
}

func (b *Backend) ElementTagName(ctx context.Context, id browser.ElementID) (string, error) {
	el, err := b.element(ctx, id)
	if err != nil {
		return "", err
	}
	res, err := el.Eval(`function() { return this.tagName.toLowerCase() }`)
	if err != nil {
		return "", translate("element name", err)
	}
	return res.Value.Str(), nil
}

func (b *Backend) ElementAttribute(ctx context.Context, id browser.ElementID, name string) (*string, error) {
	el, err := b.element(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return nil, translate("element attribute", err)
	}
	return v, nil
}

func (b *Backend) ElementClick(ctx context.Context, id browser.ElementID) error {
	el, err := b.element(ctx, id)
	if err != nil {
		return err
	}
	if err := requireVisible(el); err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return translate("element click", err)
	}
	return nil
}

func (b *Backend) ElementClear(ctx context.Context, id browser.ElementID) error {
	el, err := b.element(ctx, id)
	if err != nil {
		return err
	}
	if err := requireVisible(el); err != nil {
		return err
	}
	_, err = el.Eval(`function() {
		if (this.disabled || this.readOnly || !('value' in this)) throw new Error('invalid element state');
		this.value = '';
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`)
	if err != nil {
		return translateState("element clear", err)
	}
	return nil
}

func (b *Backend) ElementSendKeys(ctx context.Context, id browser.ElementID, text string) error {
	el, err := b.element(ctx, id)
	if err != nil {
		return err
	}
	if err := requireVisible(el); err != nil {
		return err
	}
	if err := el.Input(text); err != nil {
		return translateState("element send keys", err)
	}
	return nil
}

func requireVisible(el *rod.Element) error {
	visible, err := el.Visible()
	if err != nil {
		return translate("element visible", err)
	}
	if !visible {
		return browser.ErrElementNotVisible
	}
	return nil
}

func (b *Backend) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	p, err := b.pageFor(ctx)
	if err != nil {
		return nil, err
	}
	cookies, err := p.Cookies(nil)
	if err != nil {
		return nil, translate("cookies", err)
	}
	return fromNetworkCookies(cookies), nil
}

func (b *Backend) AddCookie(ctx context.Context, cookie browser.Cookie) error {
	p, err := b.pageFor(ctx)
	if err != nil {
		return err
	}
	info, err := p.Info()
	if err != nil {
		return translate("add cookie", err)
	}
	if !strings.HasPrefix(info.URL, "http") {
		return browser.ErrUnableToSetCookie
	}
	if err := p.SetCookies([]*proto.NetworkCookieParam{toCookieParam(cookie, info.URL)}); err != nil {
		return translateCookie(err)
	}
	return nil
}

func (b *Backend) DeleteCookie(ctx context.Context, name string) error {
	p, err := b.pageFor(ctx)
	if err != nil {
		return err
	}
	info, err := p.Info()
	if err != nil {
		return translate("delete cookie", err)
	}
	if err := (proto.NetworkDeleteCookies{Name: name, URL: info.URL}).Call(p); err != nil {
		return translate("delete cookie", err)
	}
	return nil
}

func (b *Backend) DeleteAllCookies(ctx context.Context) error {
	p, err := b.pageFor(ctx)
	if err != nil {
		return err
	}
	// An empty list clears every cookie.
	if err := p.SetCookies(nil); err != nil {
		return translate("delete cookies", err)
	}
	return nil
}

func (b *Backend) Screenshot(ctx context.Context) ([]byte, error) {
	p, err := b.pageFor(ctx)
	if err != nil {
		return nil, err
	}
	data, err := p.Screenshot(false, nil)
	if err != nil {
		return nil, translate("screenshot", err)
	}
	return data, nil
}

func (b *Backend) close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.elements = nil
	b.mu.Unlock()

	err := b.page.Close()
	if derr := disposeContext(b.incognito); err == nil {
		err = derr
	}
	if err != nil {
		return translate("close", err)
	}
	return nil
}

// Close closes the page and its browser context.
func (b *Backend) Close() error {
	err := b.close()
	b.runtime.release(b)
	return err
}

var _ browser.Backend = (*Backend)(nil)
