package ast

// Axis enumerates the XPath axes a Step may traverse.
type Axis int

const (
	Child Axis = iota
	Descendant
	Parent
	Ancestor
	Attribute
	Self
	DescendantOrSelf
	FollowingSibling
	PrecedingSibling
	Following
	Preceding
	Namespace
)

func (a Axis) String() string {
	switch a {
	case Child:
		return "child"
	case Descendant:
		return "descendant"
	case Parent:
		return "parent"
	case Ancestor:
		return "ancestor"
	case Attribute:
		return "attribute"
	case Self:
		return "self"
	case DescendantOrSelf:
		return "descendant-or-self"
	case FollowingSibling:
		return "following-sibling"
	case PrecedingSibling:
		return "preceding-sibling"
	case Following:
		return "following"
	case Preceding:
		return "preceding"
	case Namespace:
		return "namespace"
	default:
		return "unknown-axis"
	}
}

// NodeTestKind distinguishes a name test (with wildcards) from a kind test.
type NodeTestKind int

const (
	NameTest NodeTestKind = iota
	KindTestElement
	KindTestAttribute
	KindTestDocument
	KindTestText
	KindTestComment
	KindTestPI
	KindTestAnyNode
)

// NodeTest is either a (possibly wildcarded) Name or a kind test.
type NodeTest struct {
	Kind         NodeTestKind
	Name         Name // valid when Kind == NameTest; Local/Space == "*" denotes a wildcard
	PITargetName string
}

// Expr is the common interface implemented by every syntax tree node.
type Expr interface {
	Span() Span
	exprNode()
}

type Base struct{ Sp Span }

func NewBase(sp Span) Base { return Base{Sp: sp} }

func (b Base) Span() Span { return b.Sp }
func (Base) exprNode()    {}

// --- Literals ---

type IntLit struct {
	Base
	Text string // arbitrary precision, kept as lexical text until IR lowering
}

type DecimalLit struct {
	Base
	Text string
}

type DoubleLit struct {
	Base
	Text string
}

type StringLit struct {
	Base
	Value string
}

// --- Primary ---

type VarRef struct {
	Base
	Name Name
}

type ContextItem struct{ Base }

type Paren struct {
	Base
	Inner Expr // nil denotes an empty parenthesized sequence `()`
}

type Param struct {
	Name     Name
	TypeDecl *SequenceType // nil if untyped
}

type InlineFunction struct {
	Base
	Params     []Param
	ReturnType *SequenceType
	Body       Expr
}

type NamedFunctionRef struct {
	Base
	Name  Name
	Arity int
}

type FunctionCall struct {
	Base
	Name         Name
	Args         []Expr
	PlaceholderN int // number of `?` placeholders among Args; 0 for a plain call
}

type DynamicCall struct {
	Base
	Callee Expr
	Args   []Expr
}

type ArrayCtorKind int

const (
	SquareArray ArrayCtorKind = iota
	CurlyArray
)

type ArrayCtor struct {
	Base
	Kind    ArrayCtorKind
	Members []Expr
}

type MapEntry struct {
	Key   Expr
	Value Expr
}

type MapCtor struct {
	Base
	Entries []MapEntry
}

type LookupKind int

const (
	LookupKey      LookupKind = iota // ?name or ?1
	LookupWildcard                   // ?*
	LookupParen                      // ?(expr)
)

type Lookup struct {
	Base
	Target   Expr // nil for a unary lookup `?key` applied to the context item
	Kind     LookupKind
	KeyName  string
	KeyIndex string // numeric key text, when applicable
	KeyExpr  Expr
}

// --- Step / Path ---

type Step struct {
	Base
	AxisSpec   Axis
	Test       NodeTest
	Predicates []Expr
}

type PathRoot int

const (
	NotRooted PathRoot = iota
	RootedSlash
	RootedSlashSlash
)

type Path struct {
	Base
	Root  PathRoot
	Steps []Expr // Step or any postfix-wrapped primary expression acting as a step
}

// --- Binary / Unary ---

type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpIDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpGenEq
	OpGenNe
	OpGenLt
	OpGenLe
	OpGenGt
	OpGenGe
	OpIs
	OpPrecedes
	OpFollows
	OpUnion
	OpIntersect
	OpExcept
	OpTo
	OpConcat
	OpAnd
	OpOr
	OpSimpleMap
)

type Binary struct {
	Base
	Op          BinOp
	Left, Right Expr
}

type UnaryOp int

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
)

type Unary struct {
	Base
	Op      UnaryOp
	Operand Expr
}

// --- Apply (cast/castable/instance-of/treat) ---

type ApplyKind int

const (
	CastAs ApplyKind = iota
	CastableAs
	InstanceOf
	TreatAs
)

type Apply struct {
	Base
	Kind     ApplyKind
	Operand  Expr
	TypeDecl SequenceType
}

// AtomicTypeRef names a schema type by (namespace, local) pair, e.g. xs:integer.
type AtomicTypeRef struct {
	Name Name
}

type ItemTypeKind int

const (
	ItemTypeAny ItemTypeKind = iota
	ItemTypeAtomic
	ItemTypeNodeKind
	ItemTypeFunction
)

type ItemType struct {
	Kind   ItemTypeKind
	Atomic AtomicTypeRef
	Node   NodeTest
}

type Occurrence int

const (
	OccurrenceOne Occurrence = iota
	OccurrenceOptional
	OccurrenceZeroOrMore
	OccurrenceOneOrMore
)

type SequenceType struct {
	EmptySequence bool
	Item          ItemType
	Occurrence    Occurrence
}

// --- Let / For / If / Quantified ---

type Binding struct {
	Name Name
	Expr Expr
}

type Let struct {
	Base
	Bindings []Binding
	Body     Expr
}

type ForClause struct {
	Name  Name
	PosVar Name // empty Local means no `at $pos`
	Expr  Expr
}

type For struct {
	Base
	Clauses []ForClause
	Body    Expr
}

type If struct {
	Base
	Cond, Then, Else Expr
}

type Quantifier int

const (
	Some Quantifier = iota
	Every
)

type Quantified struct {
	Base
	Quant   Quantifier
	Clauses []ForClause
	Test    Expr
}

// --- Postfix ---

type Predicate struct {
	Base
	Target Expr
	Test   Expr
}

type Arrow struct {
	Base
	Source Expr
	Name   Name // empty when Callee is set (dynamic arrow target)
	Callee Expr
	Args   []Expr
}
