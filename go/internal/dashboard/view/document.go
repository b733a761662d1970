package view

import (
	"strings"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
)

// AttrRoomMarker tags an element as belonging to one quiz/poll room.
const AttrRoomMarker = "data-quiz-id"

// Document is the in-memory view tree the renderer projects state onto.
// Elements are addressed by id, mirroring the dashboard markup contract.
type Document struct {
	root *Node
	byID map[string]*Node
}

// Node is one element in the view tree.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Node

	doc *Document
}

// NewDocument creates a document with an empty body root.
func NewDocument() *Document {
	d := &Document{byID: make(map[string]*Node)}
	d.root = &Node{Tag: "body", Attrs: make(map[string]string), doc: d}
	return d
}

// Root returns the document root.
func (d *Document) Root() *Node { return d.root }

// CreateElement returns a detached element. It joins the document (and the
// id index) when appended under an attached node.
func (d *Document) CreateElement(tag string) *Node {
	return &Node{Tag: tag, Attrs: make(map[string]string)}
}

// ElementByID returns the attached element with the given id, or nil.
func (d *Document) ElementByID(id string) *Node {
	return d.byID[id]
}

// RoomIDs returns every distinct room identifier marked on the document, in
// document order.
func (d *Document) RoomIDs() []events.RoomID {
	seen := make(map[events.RoomID]bool)
	var ids []events.RoomID
	d.root.walk(func(n *Node) {
		if v, ok := n.Attrs[AttrRoomMarker]; ok && v != "" {
			id := events.RoomID(v)
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	})
	return ids
}

// SetAttr sets an attribute, keeping the document id index current.
func (n *Node) SetAttr(key, value string) *Node {
	if key == "id" && n.doc != nil {
		if prev := n.Attrs["id"]; prev != "" {
			delete(n.doc.byID, prev)
		}
		n.doc.byID[value] = n
	}
	n.Attrs[key] = value
	return n
}

// Attr returns the attribute value, or "".
func (n *Node) Attr(key string) string { return n.Attrs[key] }

// SetText replaces the element's text content.
func (n *Node) SetText(text string) *Node {
	n.Text = text
	return n
}

// AppendChild attaches child (and its subtree) under n.
func (n *Node) AppendChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	if n.doc != nil {
		child.adopt(n.doc)
	}
	return n
}

// RemoveChildren detaches the whole subtree below n.
func (n *Node) RemoveChildren() *Node {
	if n.doc != nil {
		for _, child := range n.Children {
			child.orphan()
		}
	}
	n.Children = nil
	return n
}

// ReplaceChildren clears and repopulates n's children in one step.
func (n *Node) ReplaceChildren(children ...*Node) *Node {
	n.RemoveChildren()
	for _, child := range children {
		n.AppendChild(child)
	}
	return n
}

// FindByClass returns the first descendant carrying the given class token.
func (n *Node) FindByClass(class string) *Node {
	var found *Node
	n.walk(func(c *Node) {
		if found != nil || c == n {
			return
		}
		for _, token := range strings.Fields(c.Attrs["class"]) {
			if token == class {
				found = c
				return
			}
		}
	})
	return found
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.walk(fn)
	}
}

func (n *Node) adopt(d *Document) {
	n.walk(func(c *Node) {
		c.doc = d
		if id := c.Attrs["id"]; id != "" {
			d.byID[id] = c
		}
	})
}

func (n *Node) orphan() {
	doc := n.doc
	if doc == nil {
		return
	}
	n.walk(func(c *Node) {
		if id := c.Attrs["id"]; id != "" && doc.byID[id] == c {
			delete(doc.byID, id)
		}
		c.doc = nil
	})
}
