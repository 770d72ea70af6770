package memory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/odvcencio/ghostdriver/pkg/browser"
)

var errNoCallback = errors.New("async script never invoked its callback")

var (
	returnArg   = regexp.MustCompile(`^return\s+arguments\[(\d+)\]\s*;?$`)
	callbackArg = regexp.MustCompile(`^arguments\[arguments\.length\s*-\s*1\]\((.*)\)\s*;?$`)
	throwStmt   = regexp.MustCompile(`^throw\b`)
)

// defaultScript understands the handful of expressions clients use for
// smoke tests: returning an argument, the title or the URL, throwing, and
// invoking the async callback with one of those.
func defaultScript(ctx context.Context, b *Backend, script string, args []any) (any, error) {
	script = strings.TrimSpace(script)

	if m := callbackArg.FindStringSubmatch(script); m != nil {
		return evalExpr(b, strings.TrimSpace(m[1]), args)
	}
	if strings.Contains(script, "arguments[arguments.length") {
		return nil, errNoCallback
	}
	if throwStmt.MatchString(script) {
		return nil, browser.WrapBackendError("execute", strings.TrimSpace(strings.TrimPrefix(script, "throw")), browser.ErrJavaScript)
	}
	if m := returnArg.FindStringSubmatch(script); m != nil {
		return argument(args, m[1])
	}
	if expr, ok := strings.CutPrefix(script, "return "); ok {
		return evalExpr(b, strings.TrimSuffix(strings.TrimSpace(expr), ";"), args)
	}
	return nil, nil
}

func evalExpr(b *Backend, expr string, args []any) (any, error) {
	switch expr {
	case "", "undefined", "null":
		return nil, nil
	case "document.title":
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.title, nil
	case "window.location.href", "document.URL", "location.href":
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.currentURL(), nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if strings.HasPrefix(expr, "arguments[") && strings.HasSuffix(expr, "]") {
		return argument(args, expr[len("arguments["):len(expr)-1])
	}
	if n, err := strconv.ParseFloat(expr, 64); err == nil {
		return n, nil
	}
	if s, err := strconv.Unquote(expr); err == nil {
		return s, nil
	}
	if len(expr) >= 2 && expr[0] == '\'' && expr[len(expr)-1] == '\'' {
		return expr[1 : len(expr)-1], nil
	}
	return nil, browser.WrapBackendError("execute", fmt.Sprintf("unsupported expression %q", expr), browser.ErrJavaScript)
}

func argument(args []any, index string) (any, error) {
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 || i >= len(args) {
		return nil, nil
	}
	return args[i], nil
}
