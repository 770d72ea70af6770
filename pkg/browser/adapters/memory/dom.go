package memory

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/odvcencio/ghostdriver/pkg/browser"
)

// Node is an element in a scripted page.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Hidden   bool
	Children []*Node

	parent *Node
}

// El builds a node. attrs alternate name, value.
func El(tag string, attrs []string, text string, children ...*Node) *Node {
	n := &Node{Tag: strings.ToLower(tag), Text: text, Children: children}
	if len(attrs) > 0 {
		n.Attrs = make(map[string]string, len(attrs)/2)
		for i := 0; i+1 < len(attrs); i += 2 {
			n.Attrs[attrs[i]] = attrs[i+1]
		}
	}
	return n
}

func (n *Node) attr(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

func (n *Node) setAttr(name, value string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
}

func (n *Node) visible() bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.Hidden {
			return false
		}
	}
	return true
}

// textContent joins the visible text of n and its descendants.
func (n *Node) textContent() string {
	var parts []string
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur.Hidden {
			return
		}
		if t := strings.TrimSpace(cur.Text); t != "" {
			parts = append(parts, t)
		}
		for _, c := range cur.Children {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// cloneTree deep-copies nodes so each session mutates its own document.
func cloneTree(nodes []*Node, parent *Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		c := &Node{Tag: n.Tag, Text: n.Text, Hidden: n.Hidden, parent: parent}
		if n.Attrs != nil {
			c.Attrs = make(map[string]string, len(n.Attrs))
			for k, v := range n.Attrs {
				c.Attrs[k] = v
			}
		}
		c.Children = cloneTree(n.Children, c)
		out = append(out, c)
	}
	return out
}

// descendants lists nodes under roots in document order.
func descendants(roots []*Node) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

func render(title string, body []*Node) string {
	return renderDocument(title, body, nil)
}

// renderDocument serializes the page. With a non-nil index every element
// carries its position under nodeAttr.
func renderDocument(title string, body []*Node, index map[*Node]int) string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head><body>")
	for _, n := range body {
		renderNode(&b, n, index)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func renderNode(b *strings.Builder, n *Node, index map[*Node]int) {
	b.WriteString("<" + n.Tag)
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=\"%s\"", k, html.EscapeString(n.Attrs[k]))
	}
	if n.Hidden {
		b.WriteString(` style="display:none"`)
	}
	if i, ok := index[n]; ok {
		fmt.Fprintf(b, " %s=\"%d\"", nodeAttr, i)
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(n.Text))
	for _, c := range n.Children {
		renderNode(b, c, index)
	}
	b.WriteString("</" + n.Tag + ">")
}

// matchLinks finds anchors under roots by their visible text.
func matchLinks(roots []*Node, loc browser.Locator) []*Node {
	var out []*Node
	for _, n := range descendants(roots) {
		if n.Tag != "a" {
			continue
		}
		text := n.textContent()
		if text == loc.Value || (loc.Using == browser.LocatorPartialLinkText && strings.Contains(text, loc.Value)) {
			out = append(out, n)
		}
	}
	return out
}
