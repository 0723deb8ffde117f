package memtree

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/sdcio/xpath3/domgraph"
)

// genTree recursively builds a random element/text subtree under parent,
// bounded by depth, the same "bias towards elements, occasionally stop
// with a text leaf" shape as lambdamechanic-xpath's property_test.go
// genTNode, generalized from that package's single HTML-ish node kind to
// this package's element/attribute/text kinds.
func genTree(t *rapid.T, parent *Node, depth int) {
	if depth <= 0 || !rapid.Bool().Draw(t, "isElement") {
		parent.AddText(rapid.SampledFrom([]string{"", "foo", "bar"}).Draw(t, "textData"))
		return
	}

	tag := rapid.SampledFrom([]string{"a", "b", "c"}).Draw(t, "tag")
	el := parent.AddElement(domgraph.QName{Local: tag})

	if rapid.Bool().Draw(t, "hasAttrs") {
		numAttrs := rapid.IntRange(0, 3).Draw(t, "numAttrs")
		for i := 0; i < numAttrs; i++ {
			el.SetAttr(domgraph.QName{Local: "attr"}, rapid.SampledFrom([]string{"", "foo", "bar"}).Draw(t, "attrVal"))
		}
	}

	numChildren := rapid.IntRange(0, 4).Draw(t, "numChildren")
	for i := 0; i < numChildren; i++ {
		if rapid.Bool().Draw(t, "childIsText") {
			el.AddText(rapid.SampledFrom([]string{"", "foo", "bar"}).Draw(t, "text"))
			continue
		}
		genTree(t, el, depth-1)
	}
}

// TestFinalizeAssignsConsistentDocumentOrder checks the invariants any
// document-graph implementation must hold: every node's Parent() points
// back to a node that actually lists it among its Children()/
// Attributes(), and a pre-order walk visits strictly increasing
// DocumentOrder values (the ordering Finalize is responsible for
// establishing).
func TestFinalizeAssignsConsistentDocumentOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		doc := NewDocument(1)
		numChildren := rapid.IntRange(0, 4).Draw(rt, "rootChildren")
		for i := 0; i < numChildren; i++ {
			genTree(rt, doc, 3)
		}
		doc.Finalize()

		var lastOrder int64 = -1
		var walk func(domgraph.Node)
		walk = func(n domgraph.Node) {
			if n.DocumentOrder() <= lastOrder {
				rt.Fatalf("document order not strictly increasing: %d after %d", n.DocumentOrder(), lastOrder)
			}
			lastOrder = n.DocumentOrder()

			for _, a := range n.Attributes() {
				parent, ok := a.Parent()
				if !ok || parent.Identity() != n.Identity() {
					rt.Fatalf("attribute %+v does not point back to its owner element", a.Name())
				}
			}
			for _, c := range n.Children() {
				parent, ok := c.Parent()
				if !ok || parent.Identity() != n.Identity() {
					rt.Fatalf("child %v does not point back to its parent", c.Kind())
				}
				walk(c)
			}
		}
		walk(doc)
	})
}
