package xslt

import (
	"github.com/sirupsen/logrus"

	"github.com/sdcio/xpath3/domgraph"
	"github.com/sdcio/xpath3/domgraph/memtree"
	"github.com/sdcio/xpath3/registry"
	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/xerrors"
)

// executor carries the mutable state one instruction list executes
// under: the function table, the stylesheet (for apply-templates mode
// dispatch), the current context node/position/size, the output
// insertion point, and a logger for xsl:message.
type executor struct {
	table      *registry.Table
	stylesheet *Stylesheet
	mode       string

	ctxNode domgraph.Node
	ctxPos  int
	ctxSize int

	builder *memtree.Node
	log     *logrus.Entry
}

func (ex *executor) ctxItem() values.Sequence {
	return values.Single(values.NodeItem{Value: ex.ctxNode})
}

// Instruction is one executable XSLT body node. exec may extend env
// (xsl:variable/xsl:param) for the instructions that follow it in the
// same body; every other instruction returns env unchanged.
type Instruction interface {
	exec(ex *executor, env *varEnv) (*varEnv, error)
}

func execAll(instrs []Instruction, ex *executor, env *varEnv) error {
	for _, instr := range instrs {
		next, err := instr.exec(ex, env)
		if err != nil {
			return err
		}
		env = next
	}
	return nil
}

// ValueOf implements xsl:value-of: append the string value of Select's
// result as a single text node.
type ValueOf struct {
	Select string
}

func (n *ValueOf) exec(ex *executor, env *varEnv) (*varEnv, error) {
	seq, err := evalXPath(ex.table, n.Select, ex.ctxItem(), env)
	if err != nil {
		return env, err
	}
	ex.builder.AddText(stringValue(seq))
	return env, nil
}

// Text implements xsl:text: a literal text node, copied verbatim.
type Text struct {
	Value string
}

func (n *Text) exec(ex *executor, env *varEnv) (*varEnv, error) {
	ex.builder.AddText(n.Value)
	return env, nil
}

// If implements xsl:if: execute Then iff Test has an effective boolean
// value of true.
type If struct {
	Test string
	Then []Instruction
}

func (n *If) exec(ex *executor, env *varEnv) (*varEnv, error) {
	seq, err := evalXPath(ex.table, n.Test, ex.ctxItem(), env)
	if err != nil {
		return env, err
	}
	if !effectiveBoolean(seq) {
		return env, nil
	}
	return env, execAll(n.Then, ex, env)
}

// ForEach implements xsl:for-each: evaluate Select, then execute Body
// once per resulting node with the context item/position/size rebound.
type ForEach struct {
	Select string
	Body   []Instruction
}

func (n *ForEach) exec(ex *executor, env *varEnv) (*varEnv, error) {
	seq, err := evalXPath(ex.table, n.Select, ex.ctxItem(), env)
	if err != nil {
		return env, err
	}
	for i, it := range seq {
		ni, ok := it.(values.NodeItem)
		if !ok {
			return env, xerrors.New(xerrors.XPTY0004, zeroSpan, "xsl:for-each select must produce a sequence of nodes")
		}
		sub := *ex
		sub.ctxNode = ni.Value
		sub.ctxPos = i + 1
		sub.ctxSize = len(seq)
		if err := execAll(n.Body, &sub, env); err != nil {
			return env, err
		}
	}
	return env, nil
}

// Variable implements xsl:variable: bind Select's result to Name,
// visible to every instruction after it in the same body (and in any
// nested body, since varEnv is a lexical chain).
type Variable struct {
	Name   string
	Select string
}

func (n *Variable) exec(ex *executor, env *varEnv) (*varEnv, error) {
	seq, err := evalXPath(ex.table, n.Select, ex.ctxItem(), env)
	if err != nil {
		return env, err
	}
	return env.push(n.Name, seq), nil
}

// Element implements xsl:element: construct a new element child with a
// literal name and execute Body with the insertion point rebound to it.
type Element struct {
	Name domgraph.QName
	Body []Instruction
}

func (n *Element) exec(ex *executor, env *varEnv) (*varEnv, error) {
	child := ex.builder.AddElement(n.Name)
	sub := *ex
	sub.builder = child
	return env, execAll(n.Body, &sub, env)
}

// Attribute implements xsl:attribute: set Name's value to Select's
// string value on the current insertion point.
type Attribute struct {
	Name   domgraph.QName
	Select string
}

func (n *Attribute) exec(ex *executor, env *varEnv) (*varEnv, error) {
	seq, err := evalXPath(ex.table, n.Select, ex.ctxItem(), env)
	if err != nil {
		return env, err
	}
	ex.builder.SetAttr(n.Name, stringValue(seq))
	return env, nil
}

// Copy implements xsl:copy: a shallow copy of the context node's kind
// and name (no attributes/children), with Body executed inside it --
// the standard XSLT "xsl:copy then you supply the content" shape.
type Copy struct {
	Body []Instruction
}

func (n *Copy) exec(ex *executor, env *varEnv) (*varEnv, error) {
	switch ex.ctxNode.Kind() {
	case domgraph.Element:
		child := ex.builder.AddElement(ex.ctxNode.Name())
		sub := *ex
		sub.builder = child
		return env, execAll(n.Body, &sub, env)
	case domgraph.Text:
		ex.builder.AddText(ex.ctxNode.StringValue())
	case domgraph.Comment:
		ex.builder.AddComment(ex.ctxNode.StringValue())
	case domgraph.ProcessingInstruction:
		ex.builder.AddPI(ex.ctxNode.PITarget(), ex.ctxNode.StringValue())
	case domgraph.Attribute:
		ex.builder.SetAttr(ex.ctxNode.Name(), ex.ctxNode.StringValue())
	case domgraph.Document:
		return env, execAll(n.Body, ex, env)
	}
	return env, nil
}

// CopyOf implements xsl:copy-of: deep-copy every node Select selects
// (or append the string value of an atomic item as text).
type CopyOf struct {
	Select string
}

func (n *CopyOf) exec(ex *executor, env *varEnv) (*varEnv, error) {
	seq, err := evalXPath(ex.table, n.Select, ex.ctxItem(), env)
	if err != nil {
		return env, err
	}
	for _, it := range seq {
		switch v := it.(type) {
		case values.NodeItem:
			deepCopy(ex.builder, v.Value)
		case values.AtomicItem:
			ex.builder.AddText(v.Value.String())
		}
	}
	return env, nil
}

func deepCopy(dst *memtree.Node, src domgraph.Node) {
	switch src.Kind() {
	case domgraph.Element:
		child := dst.AddElement(src.Name())
		for _, a := range src.Attributes() {
			child.SetAttr(a.Name(), a.StringValue())
		}
		for _, c := range src.Children() {
			deepCopy(child, c)
		}
	case domgraph.Text:
		dst.AddText(src.StringValue())
	case domgraph.Comment:
		dst.AddComment(src.StringValue())
	case domgraph.ProcessingInstruction:
		dst.AddPI(src.PITarget(), src.StringValue())
	case domgraph.Attribute:
		dst.SetAttr(src.Name(), src.StringValue())
	case domgraph.Document:
		for _, c := range src.Children() {
			deepCopy(dst, c)
		}
	}
}

// ApplyTemplates implements xsl:apply-templates: evaluate Select
// (defaulting to child::node()), and for each resulting node look up
// the best-matching template in Mode (falling back to the XSLT built-in
// template rule when none matches).
type ApplyTemplates struct {
	Select string
	Mode   string
}

func (n *ApplyTemplates) exec(ex *executor, env *varEnv) (*varEnv, error) {
	sel := n.Select
	if sel == "" {
		sel = "child::node()"
	}
	seq, err := evalXPath(ex.table, sel, ex.ctxItem(), env)
	if err != nil {
		return env, err
	}
	mode := ex.stylesheet.Mode(n.Mode)
	for i, it := range seq {
		ni, ok := it.(values.NodeItem)
		if !ok {
			continue
		}
		sub := *ex
		sub.ctxNode = ni.Value
		sub.ctxPos = i + 1
		sub.ctxSize = len(seq)
		sub.mode = n.Mode
		tpl := mode.Lookup(ex.table, ni.Value)
		if tpl != nil {
			if err := execAll(tpl.Body, &sub, nil); err != nil {
				return env, err
			}
			continue
		}
		if err := builtinTemplateRule(&sub, env); err != nil {
			return env, err
		}
	}
	return env, nil
}

// builtinTemplateRule is XSLT's built-in template rule: element and
// document nodes recurse into apply-templates over their children in
// the same mode; text and attribute nodes copy their string value;
// comments and processing instructions produce nothing.
func builtinTemplateRule(ex *executor, env *varEnv) error {
	switch ex.ctxNode.Kind() {
	case domgraph.Text, domgraph.Attribute:
		ex.builder.AddText(ex.ctxNode.StringValue())
		return nil
	case domgraph.Element, domgraph.Document:
		at := &ApplyTemplates{Mode: ex.mode}
		_, err := at.exec(ex, env)
		return err
	default:
		return nil
	}
}

// Message implements xsl:message: log Select's string value at Warn
// level, or raise an XTMM9000 error when Terminate is set.
type Message struct {
	Select    string
	Terminate bool
}

func (n *Message) exec(ex *executor, env *varEnv) (*varEnv, error) {
	seq, err := evalXPath(ex.table, n.Select, ex.ctxItem(), env)
	text := n.Select
	if err == nil {
		text = stringValue(seq)
	}
	if n.Terminate {
		return env, xerrors.New(xerrors.XTMM9000, zeroSpan, "xsl:message terminate: %s", text)
	}
	ex.log.Warn(text)
	return env, nil
}

// Assert implements xsl:assert: raise an XTMM9000 error carrying
// Message when Test does not hold.
type Assert struct {
	Test    string
	Message string
}

func (n *Assert) exec(ex *executor, env *varEnv) (*varEnv, error) {
	seq, err := evalXPath(ex.table, n.Test, ex.ctxItem(), env)
	if err != nil {
		return env, err
	}
	if effectiveBoolean(seq) {
		return env, nil
	}
	msg := n.Message
	if msg == "" {
		msg = "xsl:assert failed: " + n.Test
	}
	return env, xerrors.New(xerrors.XTMM9000, zeroSpan, "%s", msg)
}
