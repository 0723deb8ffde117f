// Package domgraph defines the external document model that the
// interpreter evaluates against: a read-only, document-ordered graph of
// XML infoset nodes. It is deliberately independent of package values so
// that values can hold a Node without domgraph needing to know anything
// about the XPath value model.
//
// The Node interface is grounded on the reference design's xutils.XpathNode
// (xpath/xutils/xpath_node.go), generalized from YANG's config-tree
// shape to the full XML infoset: element, attribute, text, comment,
// processing-instruction and document node kinds, plus the document-order
// and identity operations XPath's node comparisons need.
package domgraph

// Kind distinguishes the seven XDM node kinds.
type Kind int

const (
	Document Kind = iota
	Element
	Attribute
	Text
	Comment
	ProcessingInstruction
	Namespace
)

func (k Kind) String() string {
	switch k {
	case Document:
		return "document-node"
	case Element:
		return "element"
	case Attribute:
		return "attribute"
	case Text:
		return "text"
	case Comment:
		return "comment"
	case ProcessingInstruction:
		return "processing-instruction"
	case Namespace:
		return "namespace"
	default:
		return "unknown-node-kind"
	}
}

// QName is a resolved, namespace-qualified name. Local is required;
// Space may be empty for the null namespace.
type QName struct {
	Space string
	Local string
}

// Node is the read-only interface the interpreter evaluates path steps,
// predicates and string-value extraction against. Implementations must
// give every node a stable Identity, comparable with ==, and consistent
// with DocumentOrder: for two nodes from the same document graph, a <
// b in DocumentOrder iff a precedes b in the document.
//
// Duplicate removal and document-order sorting of step results live
// in package vm (dedupSortNodes), mirroring the reference design's split between xutils (the node
// interface plus dedup helpers) and the interpreter that calls them; here
// the interface is kept minimal and the ordering utilities are values
// that operate purely in terms of Identity/DocumentOrder.
type Node interface {
	Kind() Kind
	Name() QName // zero value for kinds without a name (text, comment, document)
	StringValue() string
	TypedValue() (interface{}, bool) // schema-typed value when statically known, else (nil,false)

	Identity() NodeID
	DocumentOrder() int64

	Parent() (Node, bool)
	Attributes() []Node
	Children() []Node
	FollowingSiblings() []Node
	PrecedingSiblings() []Node

	// PITarget returns the target name for ProcessingInstruction nodes.
	PITarget() string

	// BaseURI returns the base URI in effect at this node, or "" if none.
	BaseURI() string

	// NamespaceBindings returns the in-scope namespace prefix -> URI map.
	NamespaceBindings() map[string]string
}

// NodeID is an opaque node identity, unique within a single document
// graph. Two nodes compare `is`-equal iff their NodeID is equal.
type NodeID struct {
	DocumentID uint64
	Local      uint64
}
