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

// Package typesys ingests the two textual schema dialects, canonicalizes
// type names, and holds the dynamic type registry the codec generator reads
// from.
package typesys

import "strings"

// Primitive enumerates the twelve base field kinds.
type Primitive int

const (
	Bool Primitive = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	String
)

var primitiveNames = [...]string{
	Bool: "bool", Int8: "int8", Int16: "int16", Int32: "int32", Int64: "int64",
	Uint8: "uint8", Uint16: "uint16", Uint32: "uint32", Uint64: "uint64",
	Float32: "float32", Float64: "float64", String: "string",
}

func (p Primitive) String() string {
	if int(p) < 0 || int(p) >= len(primitiveNames) {
		return "invalid"
	}
	return primitiveNames[p]
}

// ParsePrimitive resolves a canonical primitive name, returning ok=false if
// name is not one of the twelve base kinds.
func ParsePrimitive(name string) (Primitive, bool) {
	for i, n := range primitiveNames {
		if n == name {
			return Primitive(i), true
		}
	}
	return 0, false
}

// FieldKind is the tagged variant from the data model: Base, Name, Array or
// Sequence. Nesting is restricted to one level of Array/Sequence around a
// Base or Name.
type FieldKind struct {
	kind     fieldKindTag
	base     Primitive
	name     string // canonical type name, for Name
	elemBase *Primitive
	elemName string
	length   uint32 // Array
	bound    *uint32 // Sequence, advisory only
	isArray  bool
	isSeq    bool
}

type fieldKindTag int

const (
	kindBase fieldKindTag = iota
	kindName
	kindArray
	kindSequence
)

// NewBase builds a Base(primitive) field kind.
func NewBase(p Primitive) FieldKind { return FieldKind{kind: kindBase, base: p} }

// NewName builds a Name(type-name) field kind.
func NewName(typeName string) FieldKind { return FieldKind{kind: kindName, name: typeName} }

// NewArrayBase builds Array(Base(p), length).
func NewArrayBase(p Primitive, length uint32) FieldKind {
	pp := p
	return FieldKind{kind: kindArray, elemBase: &pp, length: length}
}

// NewArrayName builds Array(Name(typeName), length).
func NewArrayName(typeName string, length uint32) FieldKind {
	return FieldKind{kind: kindArray, elemName: typeName, length: length}
}

// NewSequenceBase builds Sequence(Base(p), bound).
func NewSequenceBase(p Primitive, bound *uint32) FieldKind {
	pp := p
	return FieldKind{kind: kindSequence, elemBase: &pp, bound: bound}
}

// NewSequenceName builds Sequence(Name(typeName), bound).
func NewSequenceName(typeName string, bound *uint32) FieldKind {
	return FieldKind{kind: kindSequence, elemName: typeName, bound: bound}
}

func (f FieldKind) IsBase() bool     { return f.kind == kindBase }
func (f FieldKind) IsName() bool     { return f.kind == kindName }
func (f FieldKind) IsArray() bool    { return f.kind == kindArray }
func (f FieldKind) IsSequence() bool { return f.kind == kindSequence }

// Base returns the primitive for a Base field kind; callers must check
// IsBase first.
func (f FieldKind) Base() Primitive { return f.base }

// TypeName returns the referenced canonical type name for a Name field
// kind; callers must check IsName first.
func (f FieldKind) TypeName() string { return f.name }

// Length returns an Array's fixed length; callers must check IsArray first.
func (f FieldKind) Length() uint32 { return f.length }

// Bound returns a Sequence's advisory bound, or nil if unbounded; callers
// must check IsSequence first.
func (f FieldKind) Bound() *uint32 { return f.bound }

// ElemIsName reports whether an Array/Sequence's element is a Name (as
// opposed to a Base primitive); callers must check IsArray/IsSequence first.
func (f FieldKind) ElemIsName() bool { return f.elemName != "" }

// ElemBase returns an Array/Sequence's element primitive.
func (f FieldKind) ElemBase() Primitive {
	if f.elemBase == nil {
		return 0
	}
	return *f.elemBase
}

// ElemTypeName returns an Array/Sequence's element type name.
func (f FieldKind) ElemTypeName() string { return f.elemName }

// Field is one (name, kind) pair in a Schema.
type Field struct {
	Name string
	Kind FieldKind
}

// ConstantValue is a boolean, integer, float or string literal, per the
// constant's declared primitive.
type ConstantValue struct {
	Bool   bool
	Int    int64
	Float  float64
	String string
}

// Constant is a (name, primitive, value) class-level constant: not part of
// the wire form, exposed alongside the record type.
type Constant struct {
	Name      string
	Primitive Primitive
	Value     ConstantValue
}

// Schema is a (constants, fields) entry keyed in the registry by canonical
// type name.
type Schema struct {
	Constants []Constant
	Fields    []Field
}

// CanonicalName normalizes a message type name into pkg/msg/Name form. Any
// input with only one slash, or lacking a "msg" segment, has "msg" inserted.
func CanonicalName(name string) string {
	parts := strings.Split(name, "/")
	switch len(parts) {
	case 1:
		return name
	case 2:
		return parts[0] + "/msg/" + parts[1]
	default:
		for _, p := range parts[1 : len(parts)-1] {
			if p == "msg" {
				return name
			}
		}
		return parts[0] + "/msg/" + parts[len(parts)-1]
	}
}

// LegacyName converts a canonical type name to its legacy rendering by
// dropping the "msg" segment: "pkg/msg/Name" -> "pkg/Name".
func LegacyName(canonical string) string {
	parts := strings.Split(canonical, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "msg" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "/")
}

// HeaderTypeName is the canonical name of the always-present Header entry.
const HeaderTypeName = "std_msgs/msg/Header"
