package ghostdriver

import (
	"context"
	"encoding/base64"
	stdliberrors "errors"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/odvcencio/ghostdriver/pkg/browser"
	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
)

// W3CElementKey is the W3C web element identifier key.
const W3CElementKey = "element-6066-11e4-a52e-4f735466cecf"

// implicitPollInterval is how often lookups are retried under an implicit wait.
const implicitPollInterval = 100 * time.Millisecond

type elementRef map[string]string

func newElementRef(id browser.ElementID) elementRef {
	return elementRef{"ELEMENT": string(id), W3CElementKey: string(id)}
}

func sessionRoutes() []route {
	get := func(op operation) map[string]operation { return map[string]operation{http.MethodGet: op} }
	post := func(op operation) map[string]operation { return map[string]operation{http.MethodPost: op} }

	execute := operation{"execute", timeoutScript, executeScript}
	executeAsync := operation{"executeAsync", timeoutScript, executeAsyncScript}
	setAsyncTimeout := operation{"setAsyncScriptTimeout", timeoutCommand, setNamedTimeout(func(t *Timeouts, d time.Duration) { t.Script = d })}
	setImplicit := operation{"setImplicitWait", timeoutCommand, setNamedTimeout(func(t *Timeouts, d time.Duration) { t.Implicit = d })}

	return []route{
		{pattern: []string{"url"}, methods: map[string]operation{
			http.MethodGet:  {"getCurrentUrl", timeoutCommand, currentURL},
			http.MethodPost: {"get", timeoutPageLoad, navigate},
		}},
		{pattern: []string{"title"}, methods: get(operation{"getTitle", timeoutCommand, title})},
		{pattern: []string{"source"}, methods: get(operation{"getPageSource", timeoutCommand, source})},
		{pattern: []string{"back"}, methods: post(operation{"back", timeoutPageLoad, history(browser.Backend.Back)})},
		{pattern: []string{"forward"}, methods: post(operation{"forward", timeoutPageLoad, history(browser.Backend.Forward)})},
		{pattern: []string{"refresh"}, methods: post(operation{"refresh", timeoutPageLoad, history(browser.Backend.Refresh)})},

		{pattern: []string{"execute"}, methods: post(execute)},
		{pattern: []string{"execute", "sync"}, methods: post(execute)},
		{pattern: []string{"execute_async"}, methods: post(executeAsync)},
		{pattern: []string{"execute", "async"}, methods: post(executeAsync)},

		{pattern: []string{"element"}, methods: post(operation{"findElement", timeoutFind, findElement})},
		{pattern: []string{"elements"}, methods: post(operation{"findElements", timeoutFind, findElements})},
		{pattern: []string{"element", ":eid", "element"}, methods: post(operation{"findChildElement", timeoutFind, findElement})},
		{pattern: []string{"element", ":eid", "elements"}, methods: post(operation{"findChildElements", timeoutFind, findElements})},
		{pattern: []string{"element", ":eid", "text"}, methods: get(operation{"getElementText", timeoutCommand, elementText})},
		{pattern: []string{"element", ":eid", "name"}, methods: get(operation{"getElementTagName", timeoutCommand, elementTagName})},
		{pattern: []string{"element", ":eid", "attribute", ":name"}, methods: get(operation{"getElementAttribute", timeoutCommand, elementAttribute})},
		{pattern: []string{"element", ":eid", "click"}, methods: post(operation{"clickElement", timeoutCommand, elementClick})},
		{pattern: []string{"element", ":eid", "value"}, methods: post(operation{"sendKeysToElement", timeoutCommand, elementSendKeys})},
		{pattern: []string{"element", ":eid", "clear"}, methods: post(operation{"clearElement", timeoutCommand, elementClear})},

		{pattern: []string{"cookie"}, methods: map[string]operation{
			http.MethodGet:    {"getCookies", timeoutCommand, cookies},
			http.MethodPost:   {"addCookie", timeoutCommand, addCookie},
			http.MethodDelete: {"deleteAllCookies", timeoutCommand, deleteAllCookies},
		}},
		{pattern: []string{"cookie", ":name"}, methods: map[string]operation{
			http.MethodDelete: {"deleteCookie", timeoutCommand, deleteCookie},
		}},

		{pattern: []string{"timeouts"}, methods: map[string]operation{
			http.MethodGet:  {"getTimeouts", timeoutCommand, getTimeouts},
			http.MethodPost: {"setTimeouts", timeoutCommand, setTimeouts},
		}},
		{pattern: []string{"timeouts", "async_script"}, methods: post(setAsyncTimeout)},
		{pattern: []string{"timeouts", "implicit_wait"}, methods: post(setImplicit)},

		{pattern: []string{"screenshot"}, methods: get(operation{"screenshot", timeoutCommand, screenshot})},
		{pattern: []string{"window_handle"}, methods: get(operation{"getCurrentWindowHandle", timeoutCommand, windowHandle})},
		{pattern: []string{"window_handles"}, methods: get(operation{"getWindowHandles", timeoutCommand, windowHandles})},
	}
}

// Page

func currentURL(ctx context.Context, b browser.Backend, _ *command) (any, error) {
	return b.CurrentURL(ctx)
}

func navigate(ctx context.Context, b browser.Backend, c *command) (any, error) {
	var body struct {
		URL *string `json:"url"`
	}
	if err := c.req.Decode(&body); err != nil {
		return nil, err
	}
	if body.URL == nil || *body.URL == "" {
		return nil, apperrors.InvalidParameters("url")
	}
	if err := b.Navigate(ctx, *body.URL); err != nil {
		return nil, err
	}
	c.handler.retire()
	return nil, nil
}

func title(ctx context.Context, b browser.Backend, _ *command) (any, error) {
	return b.Title(ctx)
}

func source(ctx context.Context, b browser.Backend, _ *command) (any, error) {
	return b.Source(ctx)
}

func history(fn func(browser.Backend, context.Context) error) commandFunc {
	return func(ctx context.Context, b browser.Backend, c *command) (any, error) {
		if err := fn(b, ctx); err != nil {
			return nil, err
		}
		c.handler.retire()
		return nil, nil
	}
}

// Scripts

type scriptBody struct {
	Script *string `json:"script"`
	Args   []any   `json:"args"`
}

func decodeScript(c *command) (string, []any, error) {
	var body scriptBody
	if err := c.req.Decode(&body); err != nil {
		return "", nil, err
	}
	if body.Script == nil {
		return "", nil, apperrors.InvalidParameters("script")
	}
	args := body.Args
	if args == nil {
		args = []any{}
	}
	return *body.Script, args, nil
}

func executeScript(ctx context.Context, b browser.Backend, c *command) (any, error) {
	script, args, err := decodeScript(c)
	if err != nil {
		return nil, err
	}
	v, err := b.ExecuteScript(ctx, script, args)
	return v, scriptDeadline(ctx, err)
}

func executeAsyncScript(ctx context.Context, b browser.Backend, c *command) (any, error) {
	script, args, err := decodeScript(c)
	if err != nil {
		return nil, err
	}
	v, err := b.ExecuteAsyncScript(ctx, script, args)
	return v, scriptDeadline(ctx, err)
}

// scriptDeadline reports an expired script deadline as a script timeout.
func scriptDeadline(ctx context.Context, err error) error {
	if err != nil && stdliberrors.Is(ctx.Err(), context.DeadlineExceeded) && stdliberrors.Is(err, context.DeadlineExceeded) {
		return browser.ErrScriptTimeout
	}
	return err
}

// Elements

func decodeLocator(c *command) (browser.Locator, error) {
	var loc browser.Locator
	if err := c.req.Decode(&loc); err != nil {
		return loc, err
	}
	if loc.Using == "" {
		return loc, apperrors.InvalidParameters("using")
	}
	if loc.Value == "" {
		return loc, apperrors.InvalidParameters("value")
	}
	return loc, nil
}

// elementParam resolves the :eid path parameter to an id issued for the
// current page.
func elementParam(c *command) (browser.ElementID, error) {
	id := browser.ElementID(c.param("eid"))
	if _, ok := c.handler.issued[id]; ok {
		return id, nil
	}
	if _, ok := c.handler.retired[id]; ok {
		return "", browser.ErrStaleElement
	}
	return "", apperrors.ElementNotFound(c.req.HTTP, string(id))
}

func locate(ctx context.Context, b browser.Backend, c *command) ([]browser.ElementID, error) {
	loc, err := decodeLocator(c)
	if err != nil {
		return nil, err
	}
	var root browser.ElementID
	if c.param("eid") != "" {
		if root, err = elementParam(c); err != nil {
			return nil, err
		}
	}
	ids, err := findWithWait(ctx, b, root, loc, c.session.Timeouts().Implicit)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		c.handler.issued[id] = struct{}{}
	}
	return ids, nil
}

// findWithWait retries an empty lookup until wait has elapsed. The wait
// ends early, with an empty result, once the next poll would not fit before
// the deadline.
func findWithWait(ctx context.Context, b browser.Backend, root browser.ElementID, loc browser.Locator, wait time.Duration) ([]browser.ElementID, error) {
	deadline := time.Now().Add(wait)
	limiter := rate.NewLimiter(rate.Every(implicitPollInterval), 1)
	limiter.Allow()
	for {
		ids, err := b.FindElements(ctx, root, loc)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 || !time.Now().Before(deadline) {
			return ids, nil
		}
		pollCtx, cancel := context.WithDeadline(ctx, deadline)
		err = limiter.Wait(pollCtx)
		cancel()
		if err != nil {
			return ids, nil
		}
	}
}

func findElement(ctx context.Context, b browser.Backend, c *command) (any, error) {
	ids, err := locate(ctx, b, c)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, browser.ErrNoSuchElement
	}
	return newElementRef(ids[0]), nil
}

func findElements(ctx context.Context, b browser.Backend, c *command) (any, error) {
	ids, err := locate(ctx, b, c)
	if err != nil {
		return nil, err
	}
	refs := make([]elementRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, newElementRef(id))
	}
	return refs, nil
}

func elementText(ctx context.Context, b browser.Backend, c *command) (any, error) {
	id, err := elementParam(c)
	if err != nil {
		return nil, err
	}
	return b.ElementText(ctx, id)
}

func elementTagName(ctx context.Context, b browser.Backend, c *command) (any, error) {
	id, err := elementParam(c)
	if err != nil {
		return nil, err
	}
	return b.ElementTagName(ctx, id)
}

func elementAttribute(ctx context.Context, b browser.Backend, c *command) (any, error) {
	id, err := elementParam(c)
	if err != nil {
		return nil, err
	}
	v, err := b.ElementAttribute(ctx, id, c.param("name"))
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}

func elementClick(ctx context.Context, b browser.Backend, c *command) (any, error) {
	id, err := elementParam(c)
	if err != nil {
		return nil, err
	}
	return nil, b.ElementClick(ctx, id)
}

func elementClear(ctx context.Context, b browser.Backend, c *command) (any, error) {
	id, err := elementParam(c)
	if err != nil {
		return nil, err
	}
	return nil, b.ElementClear(ctx, id)
}

func elementSendKeys(ctx context.Context, b browser.Backend, c *command) (any, error) {
	id, err := elementParam(c)
	if err != nil {
		return nil, err
	}
	var body struct {
		Value []string `json:"value"`
		Text  *string  `json:"text"`
	}
	if err := c.req.Decode(&body); err != nil {
		return nil, err
	}
	var text string
	switch {
	case body.Text != nil:
		text = *body.Text
	case body.Value != nil:
		text = strings.Join(body.Value, "")
	default:
		return nil, apperrors.InvalidParameters("value")
	}
	return nil, b.ElementSendKeys(ctx, id, text)
}

// Cookies

func cookies(ctx context.Context, b browser.Backend, _ *command) (any, error) {
	list, err := b.Cookies(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []browser.Cookie{}
	}
	return list, nil
}

func addCookie(ctx context.Context, b browser.Backend, c *command) (any, error) {
	var body struct {
		Cookie *browser.Cookie `json:"cookie"`
	}
	if err := c.req.Decode(&body); err != nil {
		return nil, err
	}
	if body.Cookie == nil {
		return nil, apperrors.InvalidParameters("cookie")
	}
	if body.Cookie.Name == "" {
		return nil, apperrors.InvalidParameters("cookie.name")
	}
	return nil, b.AddCookie(ctx, *body.Cookie)
}

func deleteCookie(ctx context.Context, b browser.Backend, c *command) (any, error) {
	return nil, b.DeleteCookie(ctx, c.param("name"))
}

func deleteAllCookies(ctx context.Context, b browser.Backend, _ *command) (any, error) {
	return nil, b.DeleteAllCookies(ctx)
}

// Timeouts

type timeoutsValue struct {
	Script   *int64 `json:"script"`
	PageLoad int64 `json:"pageLoad"`
	Implicit int64 `json:"implicit"`
}

func getTimeouts(_ context.Context, _ browser.Backend, c *command) (any, error) {
	t := c.session.Timeouts()
	var script *int64
	if t.Script != NoTimeout {
		ms := t.Script.Milliseconds()
		script = &ms
	}
	return timeoutsValue{
		Script:   script,
		PageLoad: t.PageLoad.Milliseconds(),
		Implicit: t.Implicit.Milliseconds(),
	}, nil
}

// setTimeouts accepts the JSON-wire {type, ms} body and the W3C
// {script, pageLoad, implicit} body.
func setTimeouts(_ context.Context, _ browser.Backend, c *command) (any, error) {
	var body map[string]any
	if err := c.req.Decode(&body); err != nil {
		return nil, err
	}

	if kind, ok := body["type"]; ok {
		name, _ := kind.(string)
		d, err := millis(body, "ms")
		if err != nil {
			return nil, err
		}
		var apply func(*Timeouts)
		switch name {
		case "script", "async_script", "async script":
			apply = func(t *Timeouts) { t.Script = d }
		case "implicit", "implicit_wait":
			apply = func(t *Timeouts) { t.Implicit = d }
		case "page load", "pageLoad", "page_load":
			apply = func(t *Timeouts) { t.PageLoad = d }
		default:
			return nil, apperrors.InvalidParameters("unknown timeout type %q", name)
		}
		c.session.UpdateTimeouts(apply)
		return nil, nil
	}

	keys := map[string]func(*Timeouts, time.Duration){
		"script":   func(t *Timeouts, d time.Duration) { t.Script = d },
		"pageLoad": func(t *Timeouts, d time.Duration) { t.PageLoad = d },
		"implicit": func(t *Timeouts, d time.Duration) { t.Implicit = d },
	}
	updates := make([]func(*Timeouts), 0, len(keys))
	for key, set := range keys {
		v, ok := body[key]
		if !ok {
			continue
		}
		if v == nil && key == "script" {
			updates = append(updates, func(t *Timeouts) { t.Script = NoTimeout })
			continue
		}
		d, err := millis(body, key)
		if err != nil {
			return nil, err
		}
		updates = append(updates, func(t *Timeouts) { set(t, d) })
	}
	if len(updates) == 0 {
		return nil, apperrors.InvalidParameters("type")
	}
	c.session.UpdateTimeouts(func(t *Timeouts) {
		for _, u := range updates {
			u(t)
		}
	})
	return nil, nil
}

func setNamedTimeout(set func(*Timeouts, time.Duration)) commandFunc {
	return func(_ context.Context, _ browser.Backend, c *command) (any, error) {
		var body map[string]any
		if err := c.req.Decode(&body); err != nil {
			return nil, err
		}
		d, err := millis(body, "ms")
		if err != nil {
			return nil, err
		}
		c.session.UpdateTimeouts(func(t *Timeouts) { set(t, d) })
		return nil, nil
	}
}

// millis reads a non-negative millisecond count from body[key].
func millis(body map[string]any, key string) (time.Duration, error) {
	v, ok := body[key].(float64)
	if !ok {
		return 0, apperrors.InvalidParameters("%s", key)
	}
	if v < 0 || math.IsNaN(v) || v > float64(math.MaxInt64/int64(time.Millisecond)) {
		return 0, apperrors.InvalidParameters("%s must be a non-negative number of milliseconds", key)
	}
	return time.Duration(v) * time.Millisecond, nil
}

// Misc

func screenshot(ctx context.Context, b browser.Backend, _ *command) (any, error) {
	data, err := b.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func windowHandle(_ context.Context, _ browser.Backend, c *command) (any, error) {
	return c.session.WindowHandle(), nil
}

func windowHandles(_ context.Context, _ browser.Backend, c *command) (any, error) {
	return []string{c.session.WindowHandle()}, nil
}
