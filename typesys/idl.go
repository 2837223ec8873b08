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

package typesys

import (
	"strconv"
	"strings"

	"github.com/ros2go/rosbags/peg"
	"github.com/ros2go/rosbags/rosbagerrors"
)

// idlGrammar is the block-formatted PEG source for the IDL subset: modules,
// typedefs, structs, constants, scoped names, sequence<T[,N]>/string<N>.
// Annotations are accepted and ignored except for position (they are parsed
// as ordinary tokens and dropped by the visitor).
const idlGrammar = `
unit:
    _ws definition+ _ws

definition:
    annotation* (module_def | struct_def | typedef_def | const_def)

annotation:
    '@' ident ('(' /[^)]*/ ')')?

module_def:
    'module' ident '{' definition* '}' ';'

struct_def:
    'struct' ident '{' member+ '}' ';'

member:
    annotation* type_spec ident array_suffix? ';'

typedef_def:
    'typedef' type_spec ident array_suffix? ';'

const_def:
    'const' type_spec ident '=' literal ';'

array_suffix:
    '[' integer ']'

type_spec:
    sequence_type | string_type | scoped_name

sequence_type:
    'sequence' '<' type_spec (',' integer)? '>'

string_type:
    ('string' | 'wstring') ('<' integer '>')?

scoped_name:
    ident ('::' ident)*

literal:
    float_lit | integer | char_lit | string_lit | bool_lit | ident

float_lit:
    /-?[0-9]+\.[0-9]+([eE][+-]?[0-9]+)?/

integer:
    /-?(0[xX][0-9a-fA-F]+|[0-9]+)/

char_lit:
    /'(\\.|[^'\\])'/

string_lit:
    /"(\\.|[^"\\])*"/

bool_lit:
    'TRUE' | 'FALSE'

ident:
    /[A-Za-z_][A-Za-z0-9_]*/

_ws:
    _empty_
`

var idlRuleSet *peg.RuleSet

func idlRules() (*peg.RuleSet, error) {
	if idlRuleSet == nil {
		rs, err := peg.BuildGrammar(idlGrammar)
		if err != nil {
			return nil, err
		}
		idlRuleSet = rs
	}
	return idlRuleSet, nil
}

// idlBaseAliases maps the IDL spelling of a base type to its canonical
// primitive name; widths not listed here (shortN, longN, octet-free
// integers) are taken verbatim via ParsePrimitive.
var idlBaseAliases = map[string]string{
	"boolean": "bool",
	"octet":   "uint8",
	"float":   "float32",
	"double":  "float64",
}

// idlField is an intermediate field shape produced while walking the parse
// tree, before typedef expansion resolves Name references that are really
// aliases.
type idlField struct {
	name string
	kind FieldKind
}

type idlStruct struct {
	qualifiedName string
	fields        []idlField
}

type idlConst struct {
	owner string // struct this constant attaches to, via "<Struct>_Constants"
	c     Constant
}

// idlWalker walks module/struct nesting to build slash-joined qualified
// names, per spec.md §4.2 "module nesting produces slash-joined names".
type idlWalker struct {
	typedefs map[string]FieldKind // qualified alias name -> aliased kind
	structs  []*idlStruct
	consts   []idlConst
	path     []string
}

// ParseIDL parses IDL subset text and returns the Schema for every struct
// defined, keyed by its slash-joined qualified name. defaultPackage is used
// as the leading path segment when the text has no enclosing module.
func ParseIDL(text string, defaultPackage string) (map[string]Schema, error) {
	rs, err := idlRules()
	if err != nil {
		return nil, err
	}
	node, err := peg.Parse(rs, "unit", text)
	if err != nil {
		return nil, err
	}
	w := &idlWalker{typedefs: make(map[string]FieldKind)}
	if defaultPackage != "" {
		w.path = []string{defaultPackage}
	}
	if err := w.walkUnit(node); err != nil {
		return nil, err
	}
	return w.materialize()
}

func (w *idlWalker) walkUnit(node *peg.Node) error {
	for _, child := range node.Children {
		if err := w.walkAny(child); err != nil {
			return err
		}
	}
	return nil
}

// walkAny descends through passthrough wrapper nodes (definition,
// annotation*) until it reaches a module_def/struct_def/typedef_def/
// const_def, recursing into children otherwise.
func (w *idlWalker) walkAny(node *peg.Node) error {
	switch ruleNameOf(node) {
	case "module_def":
		return w.walkModule(node)
	case "struct_def":
		return w.walkStruct(node)
	case "typedef_def":
		return w.walkTypedef(node)
	case "const_def":
		return w.walkConstDef(node)
	}
	for _, c := range node.Children {
		if err := w.walkAny(c); err != nil {
			return err
		}
	}
	return nil
}

func ruleNameOf(node *peg.Node) string {
	return peg.RuleName(node)
}

// namedChildren recursively gathers every descendant of node carrying rule
// name, without descending past a differently-named rule boundary: a '*',
// '+' or '?' suffix wraps its operand in an anonymous combinator node
// (Kleene/Maybe), so the nodes this grammar actually cares about can sit a
// level or more below node.Children.
func namedChildren(node *peg.Node, name string) []*peg.Node {
	var out []*peg.Node
	for _, c := range node.Children {
		collectNamed(c, name, &out)
	}
	return out
}

func namedChild(node *peg.Node, name string) *peg.Node {
	all := namedChildren(node, name)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

func collectNamed(node *peg.Node, name string, out *[]*peg.Node) {
	if node == nil {
		return
	}
	rn := ruleNameOf(node)
	if rn == name {
		*out = append(*out, node)
		return
	}
	if rn != "" {
		return
	}
	for _, c := range node.Children {
		collectNamed(c, name, out)
	}
}

func (w *idlWalker) walkModule(node *peg.Node) error {
	name := identOf(node, 0)
	w.path = append(w.path, name)
	defer func() { w.path = w.path[:len(w.path)-1] }()
	for _, c := range namedChildren(node, "definition") {
		if err := w.walkAny(c); err != nil {
			return err
		}
	}
	return nil
}

func (w *idlWalker) qualify(name string) string {
	if len(w.path) == 0 {
		return name
	}
	return strings.Join(w.path, "/") + "/" + name
}

func (w *idlWalker) walkStruct(node *peg.Node) error {
	name := identOf(node, 0)
	qname := w.qualify(name)
	st := &idlStruct{qualifiedName: qname}
	for _, c := range namedChildren(node, "member") {
		f, err := w.walkMember(c)
		if err != nil {
			return err
		}
		st.fields = append(st.fields, f)
	}
	w.structs = append(w.structs, st)
	return nil
}

func (w *idlWalker) walkMember(node *peg.Node) (idlField, error) {
	typeNode := namedChild(node, "type_spec")
	identNode := namedChild(node, "ident")
	arrNode := namedChild(node, "array_suffix")
	kind, err := w.resolveTypeSpec(typeNode)
	if err != nil {
		return idlField{}, err
	}
	if arrNode != nil {
		n, err := strconv.ParseInt(intOf(arrNode, 0), 0, 64)
		if err != nil {
			return idlField{}, &rosbagerrors.ParseError{Message: "bad array length: " + err.Error()}
		}
		kind = arrayOf(kind, uint32(n))
	}
	return idlField{name: identNode.Matched, kind: kind}, nil
}

// arrayOf wraps a Base/Name FieldKind into Array(elem, length); IDL arrays
// never nest beyond one level (spec.md §3).
func arrayOf(elem FieldKind, length uint32) FieldKind {
	if elem.IsName() {
		return NewArrayName(elem.TypeName(), length)
	}
	return NewArrayBase(elem.Base(), length)
}

func sequenceOf(elem FieldKind, bound *uint32) FieldKind {
	if elem.IsName() {
		return NewSequenceName(elem.TypeName(), bound)
	}
	return NewSequenceBase(elem.Base(), bound)
}

func (w *idlWalker) resolveTypeSpec(node *peg.Node) (FieldKind, error) {
	inner := firstChild(node)
	switch ruleNameOf(inner) {
	case "sequence_type":
		elemSpec := namedChild(inner, "type_spec")
		elem, err := w.resolveTypeSpec(elemSpec)
		if err != nil {
			return FieldKind{}, err
		}
		// bound, if present, is dropped per spec.md §4.2: bounded
		// sequences are represented as unbounded in the Schema.
		return sequenceOf(elem, nil), nil
	case "string_type":
		return NewBase(String), nil
	case "scoped_name":
		return w.resolveScopedName(inner)
	}
	return FieldKind{}, &rosbagerrors.ParseError{Message: "idl: unrecognized type_spec"}
}

func (w *idlWalker) resolveScopedName(node *peg.Node) (FieldKind, error) {
	raw := node.Matched
	raw = strings.Join(strings.Fields(raw), "")
	name := strings.ReplaceAll(raw, "::", "/")
	if alias, ok := idlBaseAliases[name]; ok {
		p, _ := ParsePrimitive(alias)
		return NewBase(p), nil
	}
	if p, ok := ParsePrimitive(name); ok {
		return NewBase(p), nil
	}
	// Typedef expansion happens inside the visitor, before struct fields
	// are emitted (spec.md §4.2): if name resolves to a recorded alias,
	// substitute its kind directly rather than keeping a Name reference.
	qualified := w.qualify(name)
	if kind, ok := w.typedefs[qualified]; ok {
		return kind, nil
	}
	if kind, ok := w.typedefs[name]; ok {
		return kind, nil
	}
	return NewName(CanonicalName(w.resolveName(name))), nil
}

// resolveName prefixes a bare name with the current module path when it
// contains no slash already, matching msg-dialect bare-name resolution.
func (w *idlWalker) resolveName(name string) string {
	if strings.Contains(name, "/") || len(w.path) == 0 {
		return name
	}
	return strings.Join(w.path, "/") + "/" + name
}

func (w *idlWalker) walkTypedef(node *peg.Node) error {
	typeNode := namedChild(node, "type_spec")
	identNode := namedChild(node, "ident")
	arrNode := namedChild(node, "array_suffix")
	kind, err := w.resolveTypeSpec(typeNode)
	if err != nil {
		return err
	}
	if arrNode != nil {
		n, _ := strconv.ParseInt(intOf(arrNode, 0), 0, 64)
		kind = arrayOf(kind, uint32(n))
	}
	w.typedefs[w.qualify(identNode.Matched)] = kind
	return nil
}

func (w *idlWalker) walkConstDef(node *peg.Node) error {
	typeNode := namedChild(node, "type_spec")
	identNode := namedChild(node, "ident")
	litNode := namedChild(node, "literal")
	kind, err := w.resolveTypeSpec(typeNode)
	if err != nil {
		return err
	}
	if !kind.IsBase() {
		return &rosbagerrors.ParseError{Message: "idl: constant must have a base type"}
	}
	value, err := parseConstLiteral(kind.Base(), litNode.Matched)
	if err != nil {
		return err
	}
	// A <Struct>_Constants module attaches its constants to <Struct>
	// (spec.md §4.2); the owner is the enclosing struct name if the
	// immediately enclosing module ends in "_Constants".
	owner := ""
	if n := len(w.path); n > 0 && strings.HasSuffix(w.path[n-1], "_Constants") {
		ownerName := strings.TrimSuffix(w.path[n-1], "_Constants")
		owner = strings.Join(append(append([]string{}, w.path[:n-1]...), ownerName), "/")
	}
	w.consts = append(w.consts, idlConst{owner: owner, c: Constant{Name: identNode.Matched, Primitive: kind.Base(), Value: value}})
	return nil
}

func parseConstLiteral(p Primitive, text string) (ConstantValue, error) {
	text = strings.TrimSpace(text)
	switch p {
	case Bool:
		return ConstantValue{Bool: text == "TRUE"}, nil
	case Float32, Float64:
		f, err := strconv.ParseFloat(text, 64)
		return ConstantValue{Float: f}, err
	case String:
		unquoted := text
		if len(unquoted) >= 2 && unquoted[0] == '"' && unquoted[len(unquoted)-1] == '"' {
			unquoted = unquoted[1 : len(unquoted)-1]
		}
		return ConstantValue{String: unquoted}, nil
	default:
		i, err := strconv.ParseInt(text, 0, 64)
		return ConstantValue{Int: i}, err
	}
}

func (w *idlWalker) materialize() (map[string]Schema, error) {
	out := make(map[string]Schema, len(w.structs))
	for _, st := range w.structs {
		fields := make([]Field, 0, len(st.fields))
		for _, f := range st.fields {
			fields = append(fields, Field{Name: f.name, Kind: f.kind})
		}
		out[st.qualifiedName] = Schema{Fields: fields}
	}
	for _, ic := range w.consts {
		owner := ic.owner
		if owner == "" {
			continue
		}
		s := out[owner]
		s.Constants = append(s.Constants, ic.c)
		out[owner] = s
	}
	return out, nil
}

func identOf(node *peg.Node, n int) string {
	all := namedChildren(node, "ident")
	if n >= len(all) {
		return ""
	}
	return all[n].Matched
}

func intOf(node *peg.Node, n int) string {
	all := namedChildren(node, "integer")
	if n >= len(all) {
		return ""
	}
	return all[n].Matched
}

func firstChild(node *peg.Node) *peg.Node {
	if len(node.Children) == 0 {
		return node
	}
	return node.Children[0]
}
