package memory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	xhtml "golang.org/x/net/html"

	"github.com/odvcencio/ghostdriver/pkg/browser"
)

// nodeAttr tags rendered elements so parsed matches map back to nodes.
const nodeAttr = "data-ghostdriver-node"

// snapshot is the page rendered to HTML and parsed back.
type snapshot struct {
	doc   *goquery.Document
	nodes []*Node
	index map[*Node]int
}

func newSnapshot(title string, body []*Node) (*snapshot, error) {
	nodes := descendants(body)
	index := make(map[*Node]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(renderDocument(title, body, index)))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &snapshot{doc: doc, nodes: nodes, index: index}, nil
}

func (s *snapshot) lookup(key string) (*Node, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(s.nodes) {
		return nil, false
	}
	return s.nodes[i], true
}

// scope returns the selection searches start from: the whole document, or
// the element rendered for root.
func (s *snapshot) scope(root *Node) (*goquery.Selection, error) {
	if root == nil {
		return s.doc.Selection, nil
	}
	i, ok := s.index[root]
	if !ok {
		return nil, browser.ErrStaleElement
	}
	sel := s.doc.Find(fmt.Sprintf(`[%s="%d"]`, nodeAttr, i))
	if sel.Length() == 0 {
		return nil, browser.ErrStaleElement
	}
	return sel.First(), nil
}

// css returns the nodes under root matching selector, in document order.
// Elements the page did not declare (html, head, body) never match.
func (s *snapshot) css(root *Node, selector string) ([]*Node, error) {
	m, err := cascadia.Compile(strings.TrimSpace(selector))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", browser.ErrInvalidSelector, selector, err)
	}
	from, err := s.scope(root)
	if err != nil {
		return nil, err
	}
	var out []*Node
	from.FindMatcher(m).Each(func(_ int, sel *goquery.Selection) {
		if key, ok := sel.Attr(nodeAttr); ok {
			if n, ok := s.lookup(key); ok {
				out = append(out, n)
			}
		}
	})
	return out, nil
}

// xpath evaluates expr with root as the context node. Absolute paths search
// the whole document, as they do in a browser.
func (s *snapshot) xpath(root *Node, expr string) ([]*Node, error) {
	from, err := s.scope(root)
	if err != nil {
		return nil, err
	}
	var top *xhtml.Node
	if len(from.Nodes) > 0 {
		top = from.Nodes[0]
	}
	found, err := htmlquery.QueryAll(top, expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", browser.ErrInvalidSelector, expr, err)
	}
	out := make([]*Node, 0, len(found))
	for _, h := range found {
		if h.Type != xhtml.ElementNode {
			continue
		}
		if n, ok := s.lookup(htmlquery.SelectAttr(h, nodeAttr)); ok {
			out = append(out, n)
		}
	}
	return out, nil
}
