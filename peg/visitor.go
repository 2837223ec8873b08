/*
Copyright (C) 2024  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package peg

// VisitFunc receives a node's already-visited children (as whatever the
// child handlers returned) plus the node's own matched text, and returns
// the value the parent sees for this node.
type VisitFunc func(matched string, children []interface{}) interface{}

// Visitor walks a parse tree depth-first; each rule name maps to an
// optional handler. A node whose rule has no registered handler passes its
// single child through unchanged (or, for a leaf, its matched text) --
// grounded on scm/packrat.go's ExtractScmer/findVarNodes recursive descent.
type Visitor struct {
	handlers map[string]VisitFunc
}

// NewVisitor creates an empty Visitor; register handlers with On.
func NewVisitor() *Visitor {
	return &Visitor{handlers: make(map[string]VisitFunc)}
}

// On registers the handler invoked when a node produced by rule name is
// visited.
func (v *Visitor) On(name string, fn VisitFunc) {
	v.handlers[name] = fn
}

// Visit walks node depth-first, invoking registered handlers bottom-up.
func (v *Visitor) Visit(node *Node) interface{} {
	children := make([]interface{}, len(node.Children))
	for i, c := range node.Children {
		children[i] = v.Visit(c)
	}
	name := ruleName(node)
	if fn, ok := v.handlers[name]; ok {
		return fn(node.Matched, children)
	}
	if len(children) == 1 {
		return children[0]
	}
	if len(children) == 0 {
		return node.Matched
	}
	return children
}

// ruleName recovers the grammar rule name a node was produced by, if any.
func ruleName(node *Node) string {
	if r, ok := node.Parser.(*ruleRefParser); ok {
		return r.name
	}
	return ""
}

// RuleName exposes ruleName to callers outside this package that need to
// dispatch on a parse node's originating rule directly, such as the IDL and
// legacy msg front-ends walking the tree without a Visitor.
func RuleName(node *Node) string {
	return ruleName(node)
}
