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
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// legacyTimeName and legacyDurationName are the two built-in pseudo-message
// types the legacy dialect renders and hashes as primitive tokens ("time",
// "duration") rather than as nested sub-message hashes -- the md5 algorithm
// treats them the same way the original genmsg tooling does.
const (
	legacyTimeName     = "builtin_interfaces/msg/Time"
	legacyDurationName = "builtin_interfaces/msg/Duration"
)

// Rendered is the result of rendering a canonical type to its legacy
// textual definition, per spec.md §4.2/§6.
type Rendered struct {
	Text string
	MD5  string
}

// Render produces the legacy textual message definition for typeName plus
// its MD5 hash, following transitive dependencies in first-reference order
// and separating each by the fixed-line marker -- the inverse of ParseMsg.
// std_msgs/msg/Header receives an implicit leading "uint32 seq" field in
// both the text and the hash, matching the legacy wire hash (spec.md §4.2,
// §8); the fixup applies only to that exact canonical name (spec.md §9,
// Open Question iii).
func Render(reg *Registry, typeName string) (Rendered, error) {
	typeName = CanonicalName(typeName)
	schema, err := reg.MustLookup(typeName)
	if err != nil {
		return Rendered{}, err
	}

	own := renderOwnText(typeName, schema)
	hash, err := hashType(reg, typeName, schema)
	if err != nil {
		return Rendered{}, err
	}

	var deps []string
	seen := map[string]bool{typeName: true}
	collectDeps(reg, schema, seen, &deps)

	var b strings.Builder
	b.WriteString(own)
	for _, dep := range deps {
		depSchema, err := reg.MustLookup(dep)
		if err != nil {
			return Rendered{}, err
		}
		b.WriteString("\n")
		b.WriteString(msgSeparator)
		b.WriteString("\n")
		b.WriteString(msgHeaderPrefix)
		b.WriteString(LegacyName(dep))
		b.WriteString("\n")
		b.WriteString(renderOwnText(dep, depSchema))
	}
	return Rendered{Text: b.String(), MD5: hash}, nil
}

func headerFields(typeName string, schema Schema) []Field {
	if typeName != HeaderTypeName {
		return schema.Fields
	}
	fields := make([]Field, 0, len(schema.Fields)+1)
	fields = append(fields, Field{Name: "seq", Kind: NewBase(Uint32)})
	fields = append(fields, schema.Fields...)
	return fields
}

func renderOwnText(typeName string, schema Schema) string {
	var lines []string
	for _, c := range schema.Constants {
		lines = append(lines, renderConstantLine(c))
	}
	for _, f := range headerFields(typeName, schema) {
		lines = append(lines, renderFieldLine(f))
	}
	return strings.Join(lines, "\n")
}

func hashType(reg *Registry, typeName string, schema Schema) (string, error) {
	var lines []string
	for _, c := range schema.Constants {
		lines = append(lines, renderConstantLine(c))
	}
	for _, f := range headerFields(typeName, schema) {
		line, err := hashFieldLine(reg, f)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	sum := md5.Sum([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:]), nil
}

func renderConstantLine(c Constant) string {
	return fmt.Sprintf("%s %s=%s", c.Primitive, c.Name, renderConstantValue(c))
}

func renderConstantValue(c Constant) string {
	switch c.Primitive {
	case Bool:
		if c.Value.Bool {
			return "1"
		}
		return "0"
	case Float32, Float64:
		return strconv.FormatFloat(c.Value.Float, 'g', -1, 64)
	case String:
		return c.Value.String
	default:
		return strconv.FormatInt(c.Value.Int, 10)
	}
}

// renderFieldLine renders one field using legacy spellings: Time/Duration
// collapse to "time"/"duration", Header collapses to the bare "Header"
// token, other Name references use their legacy (msg-segment-dropped)
// rendering, and Array/Sequence kinds append "[N]"/"[]".
func renderFieldLine(f Field) string {
	return fmt.Sprintf("%s %s", legacyTypeToken(f.Kind), f.Name)
}

func hashFieldLine(reg *Registry, f Field) (string, error) {
	tok, err := legacyTypeTokenForHash(reg, f.Kind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s", tok, f.Name), nil
}

func legacyTypeToken(kind FieldKind) string {
	switch {
	case kind.IsBase():
		return kind.Base().String()
	case kind.IsName():
		return legacyNameToken(kind.TypeName())
	case kind.IsArray():
		return legacyElemToken(kind) + "[" + strconv.FormatUint(uint64(kind.Length()), 10) + "]"
	case kind.IsSequence():
		return legacyElemToken(kind) + "[]"
	}
	return ""
}

func legacyElemToken(kind FieldKind) string {
	if kind.ElemIsName() {
		return legacyNameToken(kind.ElemTypeName())
	}
	return kind.ElemBase().String()
}

func legacyNameToken(typeName string) string {
	switch typeName {
	case legacyTimeName:
		return "time"
	case legacyDurationName:
		return "duration"
	case HeaderTypeName:
		return "Header"
	}
	return LegacyName(typeName)
}

// legacyTypeTokenForHash is legacyTypeToken except a Name reference to a
// genuine sub-message (anything but Time/Duration, which render as
// primitive tokens) is replaced by that sub-message's own hash.
func legacyTypeTokenForHash(reg *Registry, kind FieldKind) (string, error) {
	switch {
	case kind.IsBase():
		return kind.Base().String(), nil
	case kind.IsName():
		return hashSubstitution(reg, kind.TypeName())
	case kind.IsArray():
		tok, err := hashElemToken(reg, kind)
		if err != nil {
			return "", err
		}
		return tok + "[" + strconv.FormatUint(uint64(kind.Length()), 10) + "]", nil
	case kind.IsSequence():
		tok, err := hashElemToken(reg, kind)
		if err != nil {
			return "", err
		}
		return tok + "[]", nil
	}
	return "", nil
}

func hashElemToken(reg *Registry, kind FieldKind) (string, error) {
	if kind.ElemIsName() {
		return hashSubstitution(reg, kind.ElemTypeName())
	}
	return kind.ElemBase().String(), nil
}

func hashSubstitution(reg *Registry, typeName string) (string, error) {
	switch typeName {
	case legacyTimeName:
		return "time", nil
	case legacyDurationName:
		return "duration", nil
	}
	schema, err := reg.MustLookup(typeName)
	if err != nil {
		return "", err
	}
	return hashType(reg, typeName, schema)
}

// collectDeps walks schema's fields and appends every transitively
// referenced message type, in first-reference order, skipping Time and
// Duration (rendered as primitives, not sub-messages) and anything already
// in seen.
func collectDeps(reg *Registry, schema Schema, seen map[string]bool, out *[]string) {
	for _, f := range schema.Fields {
		var ref string
		switch {
		case f.Kind.IsName():
			ref = f.Kind.TypeName()
		case (f.Kind.IsArray() || f.Kind.IsSequence()) && f.Kind.ElemIsName():
			ref = f.Kind.ElemTypeName()
		default:
			continue
		}
		if ref == legacyTimeName || ref == legacyDurationName || seen[ref] {
			continue
		}
		seen[ref] = true
		*out = append(*out, ref)
		depSchema, err := reg.MustLookup(ref)
		if err != nil {
			continue
		}
		collectDeps(reg, depSchema, seen, out)
	}
}
