package xslt

import (
	"github.com/sirupsen/logrus"

	"github.com/sdcio/xpath3/domgraph"
	"github.com/sdcio/xpath3/domgraph/memtree"
	"github.com/sdcio/xpath3/values"
)

// Apply runs the transformation rooted at start in the given mode
// (mode == "" selects the default/unnamed mode), and returns the
// constructed result tree's document node.
//
// Output tree construction reuses domgraph/memtree.Node directly as the
// mutable builder, since it is this module's one concrete document-graph
// implementation and already exposes the Add*/SetAttr mutation surface a
// push-style XSLT executor needs.
func Apply(stylesheet *Stylesheet, start domgraph.Node, mode string) (domgraph.Node, error) {
	doc := memtree.NewDocument(1)
	ex := &executor{
		table:      stylesheet.Table,
		stylesheet: stylesheet,
		mode:       mode,
		ctxNode:    start,
		ctxPos:     1,
		ctxSize:    1,
		builder:    doc,
		log:        logrus.WithField("component", "xslt"),
	}

	m := stylesheet.Mode(mode)
	tpl := m.Lookup(stylesheet.Table, start)
	var err error
	if tpl != nil {
		err = execAll(tpl.Body, ex, nil)
	} else {
		err = builtinTemplateRule(ex, nil)
	}
	if err != nil {
		return nil, err
	}
	doc.Finalize()
	return doc, nil
}

// CallTemplate invokes the named template directly (xsl:call-template),
// with ctx as the context node and params bound into the template's
// initial environment.
func CallTemplate(stylesheet *Stylesheet, name string, ctx domgraph.Node, params map[string]values.Sequence) (domgraph.Node, error) {
	tpl, ok := stylesheet.NamedTemplate(name)
	if !ok {
		return nil, &templateNotFoundError{name: name}
	}
	doc := memtree.NewDocument(1)
	ex := &executor{
		table:      stylesheet.Table,
		stylesheet: stylesheet,
		ctxNode:    ctx,
		ctxPos:     1,
		ctxSize:    1,
		builder:    doc,
		log:        logrus.WithField("component", "xslt"),
	}
	var env *varEnv
	for name, val := range params {
		env = env.push(name, val)
	}
	if err := execAll(tpl.Body, ex, env); err != nil {
		return nil, err
	}
	doc.Finalize()
	return doc, nil
}

type templateNotFoundError struct{ name string }

func (e *templateNotFoundError) Error() string {
	return "xslt: no named template \"" + e.name + "\""
}
