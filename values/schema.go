// Package values implements the XPath 3.1 value model: atomic values,
// nodes, functions (the three Item kinds) and sequences thereof. It is
// grounded on the reference design's Datum family (xpath/datum.go), which tags a
// value's kind with a small closed interface implemented by one
// concrete type per kind; here the kind lattice is generalized from the
// reference design's four YANG-flavoured kinds (bool/literal/nodeset/num) to the
// full XDM atomic type hierarchy plus nodes and functions.
package values

// SchemaType names a member of the XML Schema atomic type hierarchy that
// this implementation supports, per this design's atomic value requirements.
type SchemaType int

const (
	TUntypedAtomic SchemaType = iota
	TString
	TBoolean
	TDecimal
	TInteger
	TDouble
	TFloat
	TDate
	TTime
	TDateTime
	TDuration
	TYearMonthDuration
	TDayTimeDuration
	THexBinary
	TBase64Binary
	TAnyURI
	TQName
)

func (t SchemaType) String() string {
	switch t {
	case TUntypedAtomic:
		return "xs:untypedAtomic"
	case TString:
		return "xs:string"
	case TBoolean:
		return "xs:boolean"
	case TDecimal:
		return "xs:decimal"
	case TInteger:
		return "xs:integer"
	case TDouble:
		return "xs:double"
	case TFloat:
		return "xs:float"
	case TDate:
		return "xs:date"
	case TTime:
		return "xs:time"
	case TDateTime:
		return "xs:dateTime"
	case TDuration:
		return "xs:duration"
	case TYearMonthDuration:
		return "xs:yearMonthDuration"
	case TDayTimeDuration:
		return "xs:dayTimeDuration"
	case THexBinary:
		return "xs:hexBinary"
	case TBase64Binary:
		return "xs:base64Binary"
	case TAnyURI:
		return "xs:anyURI"
	case TQName:
		return "xs:QName"
	default:
		return "xs:unknown"
	}
}

// IsNumeric reports whether t is one of the four numeric atomic types.
func (t SchemaType) IsNumeric() bool {
	switch t {
	case TDecimal, TInteger, TDouble, TFloat:
		return true
	default:
		return false
	}
}
