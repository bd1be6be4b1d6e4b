// Package dom is the document model adapter for clone artifacts: it parses
// markup into a traversable, mutable tree and serializes it back, hiding
// the x/net/html plumbing from the mutation engine.
//
// Parsing is tolerant of malformed input; missing <head> or <body>
// containers are synthesized on demand before any insertion. Serializing an
// unmodified parse does not reorder unrelated content.
package dom

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Doc wraps a parsed HTML document tree.
type Doc struct {
	root *html.Node
}

// Parse parses markup into a Doc. The parser never fails on malformed
// markup; it repairs the tree the way browsers do.
func Parse(markup string) (*Doc, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	return &Doc{root: root}, nil
}

// Render serializes the document back to markup.
func (d *Doc) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// documentElement returns the <html> element, synthesizing one if the tree
// somehow lacks it.
func (d *Doc) documentElement() *html.Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return c
		}
	}
	el := newElement(atom.Html, "html")
	d.root.AppendChild(el)
	return el
}

// Head returns the <head> element, creating it as the first child of the
// document element when absent.
func (d *Doc) Head() *html.Node {
	docEl := d.documentElement()
	if n := findChild(docEl, atom.Head); n != nil {
		return n
	}
	head := newElement(atom.Head, "head")
	if docEl.FirstChild != nil {
		docEl.InsertBefore(head, docEl.FirstChild)
	} else {
		docEl.AppendChild(head)
	}
	return head
}

// Body returns the <body> element, appending one after existing content
// when absent.
func (d *Doc) Body() *html.Node {
	docEl := d.documentElement()
	if n := findChild(docEl, atom.Body); n != nil {
		return n
	}
	body := newElement(atom.Body, "body")
	docEl.AppendChild(body)
	return body
}

// AppendRaw appends markup to parent verbatim, without escaping or
// re-parsing. The inserted text survives serialization byte-for-byte.
func AppendRaw(parent *html.Node, markup string) {
	parent.AppendChild(&html.Node{Type: html.RawNode, Data: markup})
}

// AppendComment appends a <!--text--> comment node to parent.
func AppendComment(parent *html.Node, text string) {
	parent.AppendChild(&html.Node{Type: html.CommentNode, Data: text})
}

// AppendFragment parses markup in the context of parent and appends the
// resulting nodes. Used for blocks that must be addressable as elements
// afterwards (e.g. the pixel marker script).
func AppendFragment(parent *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// FindByID returns the element with the given id attribute, or nil.
func (d *Doc) FindByID(id string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val == id {
					found = n
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return found
}

// Anchors returns every <a> element carrying an href attribute, in document
// order. The slice position is the anchor's link index.
func (d *Doc) Anchors() []*html.Node {
	sel := goquery.NewDocumentFromNode(d.root).Find("a[href]")
	return sel.Nodes
}

// Noscripts returns every <noscript> element in document order.
func (d *Doc) Noscripts() []*html.Node {
	return goquery.NewDocumentFromNode(d.root).Find("noscript").Nodes
}

// Remove detaches n from its parent. A nil or already-detached node is a
// no-op.
func Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// RemoveMarkedRegion removes the comment pair <!--marker--> ... <!--/marker-->
// and everything between them. Reports whether the region was found.
// The markers may appear anywhere in the tree; only the first region is
// removed.
func (d *Doc) RemoveMarkedRegion(marker string) bool {
	open := d.findComment(marker)
	if open == nil {
		return false
	}
	closing := "/" + marker
	var doomed []*html.Node
	for n := open; n != nil; n = n.NextSibling {
		doomed = append(doomed, n)
		if n.Type == html.CommentNode && strings.TrimSpace(n.Data) == closing {
			break
		}
	}
	for _, n := range doomed {
		Remove(n)
	}
	return true
}

// TextContent returns the concatenated text of a node subtree with leading
// and trailing whitespace trimmed. Internal whitespace is kept as written.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

// Attr returns the value of the named attribute on n, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces the named attribute on n.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RenderNode serializes a single subtree (used to inspect noscript content).
func RenderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Doc) findComment(text string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.CommentNode && strings.TrimSpace(n.Data) == text {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return found
}

func findChild(parent *html.Node, a atom.Atom) *html.Node {
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

func newElement(a atom.Atom, tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: tag}
}
