// Package dom is a thin structural query layer over golang.org/x/net/html.
// It exposes the handful of operations the extraction strategies need:
// tables, rows, cells, flattened text and emphasized sub-text.
package dom

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// emphasisAtoms are the inline elements treated as header emphasis.
var emphasisAtoms = map[atom.Atom]bool{
	atom.B:      true,
	atom.Strong: true,
	atom.U:      true,
	atom.Em:     true,
	atom.I:      true,
}

// Document is a parsed markup tree.
type Document struct {
	root *html.Node
}

// Parse parses r as HTML.  The x/net/html parser is forgiving, so errors are
// limited to reader failures.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// FromNode wraps an already-parsed tree.
func FromNode(n *html.Node) *Document {
	return &Document{root: n}
}

// Root returns the underlying tree.
func (d *Document) Root() *html.Node { return d.root }

// Tables returns every table element in document order, nested ones
// included.
func (d *Document) Tables() []Table {
	var out []Table
	walk(d.root, func(n *html.Node) bool {
		if isElement(n, atom.Table) {
			out = append(out, Table{node: n, Index: len(out)})
		}
		return true
	})
	return out
}

// FindText returns the first text node containing marker, trimmed.
func (d *Document) FindText(marker string) (string, bool) {
	var found string
	var ok bool
	walk(d.root, func(n *html.Node) bool {
		if ok || isElement(n, atom.Script) || isElement(n, atom.Style) {
			return false
		}
		if n.Type == html.TextNode && strings.Contains(n.Data, marker) {
			found, ok = strings.TrimSpace(n.Data), true
			return false
		}
		return true
	})
	return found, ok
}

// Link is an anchor with its href resolved against the base URL.
type Link struct {
	Href string
	Text string
}

// Links returns every anchor with a non-empty href.  Relative hrefs are
// resolved against base when base is non-nil.
func (d *Document) Links(base *url.URL) []Link {
	var out []Link
	walk(d.root, func(n *html.Node) bool {
		if !isElement(n, atom.A) {
			return true
		}
		href := strings.TrimSpace(Attr(n, "href"))
		if href == "" {
			return true
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
		out = append(out, Link{Href: href, Text: Text(n)})
		return true
	})
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Table / Row / Cell
// ─────────────────────────────────────────────────────────────────────────────

// Table is a table element.  Index is its position among Document.Tables.
type Table struct {
	node  *html.Node
	Index int
}

// Node returns the table element.
func (t Table) Node() *html.Node { return t.node }

// Rows returns the rows owned by this table, through thead/tbody/tfoot but
// not through nested tables.
func (t Table) Rows() []Row {
	var out []Row
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case isElement(c, atom.Tr):
				out = append(out, Row{node: c})
			case isElement(c, atom.Thead), isElement(c, atom.Tbody), isElement(c, atom.Tfoot):
				visit(c)
			}
		}
	}
	visit(t.node)
	return out
}

// ContainsText reports whether text owned by this table, excluding nested
// tables, contains s.  Only the innermost table around a marker matches.
func (t Table) ContainsText(s string) bool {
	found := false
	walk(t.node, func(n *html.Node) bool {
		if found {
			return false
		}
		if n != t.node && isElement(n, atom.Table) {
			return false
		}
		if n.Type == html.TextNode && strings.Contains(n.Data, s) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Row is a tr element.
type Row struct {
	node *html.Node
}

// Cells returns the td and th children of the row.
func (r Row) Cells() []Cell {
	var out []Cell
	for c := r.node.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, atom.Td) || isElement(c, atom.Th) {
			out = append(out, Cell{node: c})
		}
	}
	return out
}

// Texts returns the flattened text of every cell.
func (r Row) Texts() []string {
	cells := r.Cells()
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.Text()
	}
	return out
}

// HasEmphasis reports whether any cell in the row carries emphasis.
func (r Row) HasEmphasis() bool {
	for _, c := range r.Cells() {
		if _, ok := c.Emphasized(); ok {
			return true
		}
	}
	return false
}

// Cell is a td or th element.
type Cell struct {
	node *html.Node
}

// Text returns the cell's flattened text.
func (c Cell) Text() string { return Text(c.node) }

// IsHeader reports whether the cell is a th element.
func (c Cell) IsHeader() bool { return isElement(c.node, atom.Th) }

// Emphasized returns the text of the first emphasized descendant
// (b, strong, u, em, i) that carries non-empty text.
func (c Cell) Emphasized() (string, bool) {
	var text string
	var ok bool
	walk(c.node, func(n *html.Node) bool {
		if ok {
			return false
		}
		if n.Type == html.ElementNode && emphasisAtoms[n.DataAtom] {
			if t := Text(n); t != "" {
				text, ok = t, true
				return false
			}
		}
		return true
	})
	return text, ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Node helpers
// ─────────────────────────────────────────────────────────────────────────────

// Text flattens the text content of n, collapsing runs of whitespace
// (including non-breaking spaces) into single spaces.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Script || c.DataAtom == atom.Style) {
			return false
		}
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isElement(n *html.Node, a atom.Atom) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == a
}

// walk visits n and its descendants depth-first.  Returning false from fn
// skips the children of the current node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

//Personal.AI order the ending
