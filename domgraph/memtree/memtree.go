// Package memtree is a minimal, fully in-memory implementation of
// domgraph.Node, used by tests and by callers that don't have their own
// document model wired up. It is grounded on the node/tree shape used by
// the lambdamechanic-xpath property tests (genTNode in property_test.go),
// generalized from that package's single test-only node kind into the
// full element/attribute/text/comment/PI/document kind set domgraph.Node
// requires.
package memtree

import (
	"sort"

	"github.com/sdcio/xpath3/domgraph"
)

// Node is a simple, pre-built tree node. Build a tree with NewDocument and
// the Node.AddElement/AddText/AddComment/AddPI/SetAttr methods, then call
// Finalize on the document node to assign stable identities and document
// order.
type Node struct {
	kind     domgraph.Kind
	name     domgraph.QName
	text     string // text content / comment content / PI data
	piTarget string
	baseURI  string
	nsBind   map[string]string

	doc      *Node
	parent   *Node
	attrs    []*Node
	children []*Node

	id    domgraph.NodeID
	order int64
}

// NewDocument creates a new, empty document node. Nodes added under it
// share its DocumentID once Finalize is called.
func NewDocument(docID uint64) *Node {
	d := &Node{kind: domgraph.Document}
	d.doc = d
	d.id = domgraph.NodeID{DocumentID: docID}
	return d
}

func (n *Node) newChild(kind domgraph.Kind, name domgraph.QName) *Node {
	c := &Node{kind: kind, name: name, doc: n.doc, parent: n}
	return c
}

// AddElement appends a new element child and returns it.
func (n *Node) AddElement(name domgraph.QName) *Node {
	c := n.newChild(domgraph.Element, name)
	n.children = append(n.children, c)
	return c
}

// AddText appends a text node child.
func (n *Node) AddText(text string) *Node {
	c := n.newChild(domgraph.Text, domgraph.QName{})
	c.text = text
	n.children = append(n.children, c)
	return c
}

// AddComment appends a comment node child.
func (n *Node) AddComment(text string) *Node {
	c := n.newChild(domgraph.Comment, domgraph.QName{})
	c.text = text
	n.children = append(n.children, c)
	return c
}

// AddPI appends a processing-instruction node child.
func (n *Node) AddPI(target, data string) *Node {
	c := n.newChild(domgraph.ProcessingInstruction, domgraph.QName{})
	c.piTarget = target
	c.text = data
	n.children = append(n.children, c)
	return c
}

// SetAttr sets an attribute on an element node.
func (n *Node) SetAttr(name domgraph.QName, value string) *Node {
	a := n.newChild(domgraph.Attribute, name)
	a.text = value
	n.attrs = append(n.attrs, a)
	return a
}

// BindNamespace records a prefix -> URI binding in scope at n.
func (n *Node) BindNamespace(prefix, uri string) {
	if n.nsBind == nil {
		n.nsBind = map[string]string{}
	}
	n.nsBind[prefix] = uri
}

// Finalize walks the tree rooted at the receiver (which must be the
// document node) in document order, assigning Local identities and
// DocumentOrder indices. Call once after the tree is fully built.
func (n *Node) Finalize() {
	var counter int64
	var localID uint64
	var walk func(*Node)
	walk = func(node *Node) {
		node.id.DocumentID = n.id.DocumentID
		node.id.Local = localID
		localID++
		node.order = counter
		counter++
		for _, a := range node.attrs {
			a.id.DocumentID = n.id.DocumentID
			a.id.Local = localID
			localID++
			a.order = counter
			counter++
		}
		for _, c := range node.children {
			walk(c)
		}
	}
	walk(n)
}

func (n *Node) Kind() domgraph.Kind { return n.kind }
func (n *Node) Name() domgraph.QName { return n.name }

func (n *Node) StringValue() string {
	switch n.kind {
	case domgraph.Text, domgraph.Comment, domgraph.Attribute:
		return n.text
	case domgraph.ProcessingInstruction:
		return n.text
	default:
		var b []byte
		var walk func(*Node)
		walk = func(node *Node) {
			if node.kind == domgraph.Text {
				b = append(b, node.text...)
				return
			}
			for _, c := range node.children {
				walk(c)
			}
		}
		walk(n)
		return string(b)
	}
}

func (n *Node) TypedValue() (interface{}, bool) { return nil, false }
func (n *Node) Identity() domgraph.NodeID        { return n.id }
func (n *Node) DocumentOrder() int64             { return n.order }

func (n *Node) Parent() (domgraph.Node, bool) {
	if n.parent == nil {
		return nil, false
	}
	return n.parent, true
}

func (n *Node) Attributes() []domgraph.Node {
	out := make([]domgraph.Node, len(n.attrs))
	for i, a := range n.attrs {
		out[i] = a
	}
	return out
}

func (n *Node) Children() []domgraph.Node {
	out := make([]domgraph.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *Node) FollowingSiblings() []domgraph.Node {
	return n.siblings(1)
}

func (n *Node) PrecedingSiblings() []domgraph.Node {
	return n.siblings(-1)
}

func (n *Node) siblings(dir int) []domgraph.Node {
	if n.parent == nil {
		return nil
	}
	idx := -1
	for i, c := range n.parent.children {
		if c == n {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	var out []domgraph.Node
	if dir > 0 {
		for i := idx + 1; i < len(n.parent.children); i++ {
			out = append(out, n.parent.children[i])
		}
	} else {
		for i := idx - 1; i >= 0; i-- {
			out = append(out, n.parent.children[i])
		}
	}
	return out
}

func (n *Node) PITarget() string { return n.piTarget }
func (n *Node) BaseURI() string  { return n.baseURI }

func (n *Node) NamespaceBindings() map[string]string {
	merged := map[string]string{}
	for cur := n; cur != nil; cur = cur.parent {
		for k, v := range cur.nsBind {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	return merged
}

// SortByDocumentOrder sorts nodes in place by DocumentOrder, ascending.
func SortByDocumentOrder(nodes []domgraph.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].DocumentOrder() < nodes[j].DocumentOrder()
	})
}
