package xslt

import (
	"sort"

	"github.com/sdcio/xpath3/domgraph"
	"github.com/sdcio/xpath3/registry"
)

// Template is one xsl:template declaration: a match pattern (or a named
// template with no pattern), a mode, an explicit or pattern-derived
// priority, and the instruction body executed when the template fires.
type Template struct {
	Name     string
	Match    *Pattern
	Mode     string
	Priority float64 // only consulted when HasPriority is true
	HasPriority bool

	ImportPrecedence int // higher wins a priority tie
	Body             []Instruction
}

func (t *Template) effectivePriority() float64 {
	if t.HasPriority {
		return t.Priority
	}
	if t.Match != nil {
		return t.Match.Priority()
	}
	return 0.5
}

// Mode is one named (or unnamed/default, name == "") mode's template
// dispatch table, consulted by xsl:apply-templates and ordered by
// (priority, import precedence) -- pattern specificity beyond the
// priority already computed from the pattern's node test is not
// separately modeled in this bounded subset.
type Mode struct {
	Name      string
	templates []*Template
}

func NewMode(name string) *Mode { return &Mode{Name: name} }

func (m *Mode) Add(t *Template) { m.templates = append(m.templates, t) }

// Lookup returns the highest-priority template matching node, breaking
// ties by import precedence and finally by declaration order (later
// declarations win, matching most processors' "last matching template
// wins" tie-break).
func (m *Mode) Lookup(table *registry.Table, node domgraph.Node) *Template {
	var candidates []*Template
	for _, t := range m.templates {
		if t.Match != nil && t.Match.Matches(table, node) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.effectivePriority() != b.effectivePriority() {
			return a.effectivePriority() < b.effectivePriority()
		}
		return a.ImportPrecedence < b.ImportPrecedence
	})
	return candidates[len(candidates)-1]
}

// Stylesheet is a set of named templates plus a dispatch table per mode.
type Stylesheet struct {
	Table *registry.Table

	modes   map[string]*Mode
	named   map[string]*Template
}

func NewStylesheet(table *registry.Table) *Stylesheet {
	return &Stylesheet{Table: table, modes: map[string]*Mode{}, named: map[string]*Template{}}
}

// AddTemplate registers t under its mode (and under its name, if any).
func (s *Stylesheet) AddTemplate(t *Template) {
	mode := s.modes[t.Mode]
	if mode == nil {
		mode = NewMode(t.Mode)
		s.modes[t.Mode] = mode
	}
	mode.Add(t)
	if t.Name != "" {
		s.named[t.Name] = t
	}
}

func (s *Stylesheet) Mode(name string) *Mode {
	mode := s.modes[name]
	if mode == nil {
		mode = NewMode(name)
		s.modes[name] = mode
	}
	return mode
}

func (s *Stylesheet) NamedTemplate(name string) (*Template, bool) {
	t, ok := s.named[name]
	return t, ok
}
