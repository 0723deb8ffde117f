package values

import "github.com/sdcio/xpath3/ast"

// TypeChecker validates that a Sequence satisfies some expected shape,
// returning a descriptive mismatch reason when it does not. This mirrors
// the reference design's DatumTypeChecker pattern (xpath/datum.go), which checks a
// builtin function's argument Datums against its declared signature
// before the call runs; here the same idea is generalized to full XDM
// SequenceType matching (occurrence indicators, kind tests, atomic type
// names) instead of the reference design's four-way Datum kind check.
type TypeChecker func(s Sequence) (ok bool, reason string)

// AnyItem accepts any sequence: no item-type and no occurrence constraint.
func AnyItem() TypeChecker {
	return func(s Sequence) (bool, string) { return true, "" }
}

// ExactlyOneAtomic accepts a single atomic item, optionally restricted to
// schema type t (pass anyType=true to accept any atomic type; t is then
// ignored).
func ExactlyOneAtomic(t SchemaType, anyType bool) TypeChecker {
	return func(s Sequence) (bool, string) {
		if len(s) != 1 {
			return false, "expected exactly one item"
		}
		ai, ok := s[0].(AtomicItem)
		if !ok {
			return false, "expected an atomic value, got a node or function"
		}
		if !anyType && ai.Value.Type != t {
			return false, "expected " + t.String() + ", got " + ai.Value.Type.String()
		}
		return true, ""
	}
}

// ZeroOrOneAtomic accepts an empty sequence or a single atomic item.
func ZeroOrOneAtomic(t SchemaType, anyType bool) TypeChecker {
	inner := ExactlyOneAtomic(t, anyType)
	return func(s Sequence) (bool, string) {
		if len(s) == 0 {
			return true, ""
		}
		return inner(s)
	}
}

// ZeroOrMoreAtomic accepts any number of atomic items of schema type t.
func ZeroOrMoreAtomic(t SchemaType, anyType bool) TypeChecker {
	return func(s Sequence) (bool, string) {
		for _, it := range s {
			ai, ok := it.(AtomicItem)
			if !ok {
				return false, "expected atomic values, got a node or function"
			}
			if !anyType && ai.Value.Type != t {
				return false, "expected " + t.String() + ", got " + ai.Value.Type.String()
			}
		}
		return true, ""
	}
}

// ExactlyOneNode accepts a single node item.
func ExactlyOneNode() TypeChecker {
	return func(s Sequence) (bool, string) {
		if len(s) != 1 {
			return false, "expected exactly one node"
		}
		if s[0].ItemKind() != KindNode {
			return false, "expected a node"
		}
		return true, ""
	}
}

// SequenceTypeMatches evaluates an ast.SequenceType against a value,
// covering occurrence indicators and the item-test kinds the static
// type checker and the runtime `instance of`/`treat as`/function
// coercion machinery all share.
func SequenceTypeMatches(st ast.SequenceType, s Sequence) bool {
	if st.EmptySequence {
		return len(s) == 0
	}
	switch st.Occurrence {
	case ast.OccurrenceOne:
		if len(s) != 1 {
			return false
		}
	case ast.OccurrenceOptional:
		if len(s) > 1 {
			return false
		}
	case ast.OccurrenceOneOrMore:
		if len(s) < 1 {
			return false
		}
	case ast.OccurrenceZeroOrMore:
		// any length
	}
	for _, it := range s {
		if !itemMatches(st.Item, it) {
			return false
		}
	}
	return true
}

func itemMatches(it ast.ItemType, v Item) bool {
	switch it.Kind {
	case ast.ItemTypeAny:
		return true
	case ast.ItemTypeAtomic:
		ai, ok := v.(AtomicItem)
		return ok && atomicTypeNameMatches(it.Atomic.Name.Local, ai.Value.Type)
	case ast.ItemTypeNodeKind:
		return v.ItemKind() == KindNode && nodeKindMatches(it.Node, v.(NodeItem))
	case ast.ItemTypeFunction:
		return v.ItemKind() == KindFunction
	default:
		return false
	}
}

func atomicTypeNameMatches(local string, t SchemaType) bool {
	switch local {
	case "anyAtomicType":
		return true
	case "untypedAtomic":
		return t == TUntypedAtomic
	case "string", "NCName", "Name", "token", "normalizedString":
		return t == TString
	case "boolean":
		return t == TBoolean
	case "decimal":
		return t == TDecimal || t == TInteger
	case "integer":
		return t == TInteger
	case "double":
		return t == TDouble
	case "float":
		return t == TFloat
	case "date":
		return t == TDate
	case "time":
		return t == TTime
	case "dateTime":
		return t == TDateTime
	case "duration":
		return t == TDuration || t == TYearMonthDuration || t == TDayTimeDuration
	case "yearMonthDuration":
		return t == TYearMonthDuration
	case "dayTimeDuration":
		return t == TDayTimeDuration
	case "hexBinary":
		return t == THexBinary
	case "base64Binary":
		return t == TBase64Binary
	case "anyURI":
		return t == TAnyURI
	case "QName":
		return t == TQName
	default:
		return false
	}
}

func nodeKindMatches(test ast.NodeTest, n NodeItem) bool {
	switch test.Kind {
	case ast.KindTestAnyNode:
		return true
	case ast.KindTestElement:
		return n.Value.Kind().String() == "element"
	case ast.KindTestAttribute:
		return n.Value.Kind().String() == "attribute"
	case ast.KindTestDocument:
		return n.Value.Kind().String() == "document-node"
	case ast.KindTestText:
		return n.Value.Kind().String() == "text"
	case ast.KindTestComment:
		return n.Value.Kind().String() == "comment"
	case ast.KindTestPI:
		return n.Value.Kind().String() == "processing-instruction"
	default:
		return false
	}
}
