package memory

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odvcencio/ghostdriver/pkg/browser"
	"github.com/odvcencio/ghostdriver/pkg/session"
)

const blankURL = "about:blank"

// Backend is one session's view of the scripted web.
type Backend struct {
	runtime *Runtime
	caps    browser.Capabilities

	mu      sync.Mutex
	closed  bool
	history []string
	pos     int
	title   string
	body    []*Node
	refs    map[browser.ElementID]*Node
	cookies map[string]browser.Cookie
}

func newBackend(r *Runtime, caps browser.Capabilities) *Backend {
	b := &Backend{
		runtime: r,
		caps:    caps.Clone(),
		history: []string{blankURL},
		refs:    make(map[browser.ElementID]*Node),
		cookies: make(map[string]browser.Cookie),
	}
	b.load(blankURL)
	return b
}

// begin waits out the configured latency and checks the backend is usable.
// The caller holds no lock.
func (b *Backend) begin(ctx context.Context) error {
	if d := b.runtime.latency; d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return browser.ErrSessionClosed
	}
	return nil
}

// load replaces the document. Element references from the previous
// document become stale. Caller holds b.mu or owns b exclusively.
func (b *Backend) load(rawURL string) {
	page, _ := b.runtime.page(rawURL)
	b.title = page.Title
	b.body = cloneTree(page.Body, nil)
	b.refs = make(map[browser.ElementID]*Node)
}

func (b *Backend) currentURL() string {
	return b.history[b.pos]
}

func (b *Backend) Navigate(ctx context.Context, rawURL string) error {
	if err := b.begin(ctx); err != nil {
		return err
	}
	if _, err := url.Parse(rawURL); err != nil {
		return browser.WrapBackendError("navigate", "invalid url", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history[:b.pos+1], rawURL)
	b.pos = len(b.history) - 1
	b.load(rawURL)
	return nil
}

func (b *Backend) CurrentURL(ctx context.Context) (string, error) {
	if err := b.begin(ctx); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentURL(), nil
}

func (b *Backend) Title(ctx context.Context) (string, error) {
	if err := b.begin(ctx); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.title, nil
}

func (b *Backend) Source(ctx context.Context) (string, error) {
	if err := b.begin(ctx); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return render(b.title, b.body), nil
}

func (b *Backend) Back(ctx context.Context) error {
	return b.step(ctx, -1)
}

func (b *Backend) Forward(ctx context.Context) error {
	return b.step(ctx, 1)
}

func (b *Backend) step(ctx context.Context, delta int) error {
	if err := b.begin(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.pos + delta
	if next < 0 || next >= len(b.history) {
		return nil
	}
	b.pos = next
	b.load(b.currentURL())
	return nil
}

func (b *Backend) Refresh(ctx context.Context) error {
	if err := b.begin(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.load(b.currentURL())
	return nil
}

func (b *Backend) ExecuteScript(ctx context.Context, script string, args []any) (any, error) {
	if err := b.begin(ctx); err != nil {
		return nil, err
	}
	return b.runtime.script(ctx, b, script, args)
}

func (b *Backend) ExecuteAsyncScript(ctx context.Context, script string, args []any) (any, error) {
	if err := b.begin(ctx); err != nil {
		return nil, err
	}
	res, err := b.runtime.script(ctx, b, script, args)
	if err == errNoCallback {
		<-ctx.Done()
		return nil, browser.ErrScriptTimeout
	}
	return res, err
}

func (b *Backend) FindElements(ctx context.Context, rootID browser.ElementID, locator browser.Locator) ([]browser.ElementID, error) {
	if err := b.begin(ctx); err != nil {
		return nil, err
	}
	if err := locator.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", browser.ErrInvalidSelector, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var root *Node
	scope := b.body
	if rootID != "" {
		n, ok := b.refs[rootID]
		if !ok {
			return nil, browser.ErrStaleElement
		}
		root, scope = n, n.Children
	}

	var found []*Node
	switch locator.Using {
	case browser.LocatorLinkText, browser.LocatorPartialLinkText:
		found = matchLinks(scope, locator)
	default:
		snap, err := newSnapshot(b.title, b.body)
		if err != nil {
			return nil, err
		}
		if locator.Using == browser.LocatorXPath {
			found, err = snap.xpath(root, locator.Value)
		} else {
			css, _ := locator.CSS()
			found, err = snap.css(root, css)
		}
		if err != nil {
			return nil, err
		}
	}

	ids := make([]browser.ElementID, 0, len(found))
	for _, n := range found {
		ids = append(ids, b.ref(n))
	}
	return ids, nil
}

// ref returns the existing reference for n or issues a new one.
func (b *Backend) ref(n *Node) browser.ElementID {
	for id, existing := range b.refs {
		if existing == n {
			return id
		}
	}
	id := browser.ElementID(session.NewElementID())
	b.refs[id] = n
	return id
}

func (b *Backend) element(ctx context.Context, id browser.ElementID) (*Node, func(), error) {
	if err := b.begin(ctx); err != nil {
		return nil, nil, err
	}
	b.mu.Lock()
	n, ok := b.refs[id]
	if !ok {
		b.mu.Unlock()
		return nil, nil, browser.ErrStaleElement
	}
	return n, b.mu.Unlock, nil
}

func (b *Backend) ElementText(ctx context.Context, id browser.ElementID) (string, error) {
	n, unlock, err := b.element(ctx, id)
	if err != nil {
		return "", err
	}
	defer unlock()
	return n.textContent(), nil
}

func (b *Backend) ElementTagName(ctx context.Context, id browser.ElementID) (string, error) {
	n, unlock, err := b.element(ctx, id)
	if err != nil {
		return "", err
	}
	defer unlock()
	return n.Tag, nil
}

func (b *Backend) ElementAttribute(ctx context.Context, id browser.ElementID, name string) (*string, error) {
	n, unlock, err := b.element(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	v, ok := n.attr(name)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (b *Backend) ElementClick(ctx context.Context, id browser.ElementID) error {
	n, unlock, err := b.element(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	if !n.visible() {
		return browser.ErrElementNotVisible
	}
	if _, disabled := n.attr("disabled"); disabled {
		return browser.ErrInvalidElementState
	}
	if n.Tag == "input" {
		switch n.Attrs["type"] {
		case "checkbox", "radio":
			if _, checked := n.attr("checked"); checked {
				delete(n.Attrs, "checked")
			} else {
				n.setAttr("checked", "checked")
			}
		}
	}
	if href, ok := n.attr("href"); ok && n.Tag == "a" {
		target := resolve(b.currentURL(), href)
		b.history = append(b.history[:b.pos+1], target)
		b.pos = len(b.history) - 1
		b.load(target)
	}
	return nil
}

func editable(n *Node) error {
	if n.Tag != "input" && n.Tag != "textarea" {
		return browser.ErrInvalidElementState
	}
	if _, disabled := n.attr("disabled"); disabled {
		return browser.ErrInvalidElementState
	}
	if _, ro := n.attr("readonly"); ro {
		return browser.ErrInvalidElementState
	}
	if !n.visible() {
		return browser.ErrElementNotVisible
	}
	return nil
}

func (b *Backend) ElementClear(ctx context.Context, id browser.ElementID) error {
	n, unlock, err := b.element(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	if err := editable(n); err != nil {
		return err
	}
	n.setAttr("value", "")
	return nil
}

func (b *Backend) ElementSendKeys(ctx context.Context, id browser.ElementID, text string) error {
	n, unlock, err := b.element(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	if err := editable(n); err != nil {
		return err
	}
	n.setAttr("value", n.Attrs["value"]+text)
	return nil
}

func (b *Backend) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	if err := b.begin(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]browser.Cookie, 0, len(b.cookies))
	for _, c := range b.cookies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *Backend) AddCookie(ctx context.Context, cookie browser.Cookie) error {
	if err := b.begin(ctx); err != nil {
		return err
	}
	if cookie.Name == "" {
		return browser.NewBackendError("add cookie", "cookie name is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := url.Parse(b.currentURL())
	if err != nil || u.Hostname() == "" {
		return browser.ErrUnableToSetCookie
	}
	host := u.Hostname()
	if cookie.Domain == "" {
		cookie.Domain = host
	}
	domain := strings.TrimPrefix(cookie.Domain, ".")
	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return browser.ErrInvalidCookie
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	b.cookies[cookie.Name] = cookie
	return nil
}

func (b *Backend) DeleteCookie(ctx context.Context, name string) error {
	if err := b.begin(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cookies, name)
	return nil
}

func (b *Backend) DeleteAllCookies(ctx context.Context) error {
	if err := b.begin(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cookies = make(map[string]browser.Cookie)
	return nil
}

// Screenshot renders a blank PNG at the requested viewport size.
func (b *Backend) Screenshot(ctx context.Context) ([]byte, error) {
	if err := b.begin(ctx); err != nil {
		return nil, err
	}
	w, h := viewport(b.caps)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, browser.WrapBackendError("screenshot", "encode png", err)
	}
	return buf.Bytes(), nil
}

func viewport(caps browser.Capabilities) (int, int) {
	w, h := 16, 16
	if v := dimension(caps["viewportWidth"]); v > 0 {
		w = v
	}
	if v := dimension(caps["viewportHeight"]); v > 0 {
		h = v
	}
	return w, h
}

func dimension(v any) int {
	var n int
	switch t := v.(type) {
	case float64:
		n = int(t)
	case int:
		n = t
	}
	if n <= 0 || n > 4096 {
		return 0
	}
	return n
}

func (b *Backend) markClosed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Close releases the backend. Closing twice is a no-op.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.runtime.release(b)
	return nil
}

func resolve(base, ref string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}

var _ browser.Backend = (*Backend)(nil)
