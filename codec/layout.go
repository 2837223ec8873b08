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

// Package codec builds the six size/encode/decode/mover routines spec.md
// §4.4 calls for, from a type registry entry, by walking the field list and
// keeping a running alignment cursor rather than generating and compiling
// source text (spec.md §9, option (a)).
package codec

import "github.com/ros2go/rosbags/typesys"

// alignOf returns the byte alignment of a primitive: its own size, except
// bool/int8/uint8 which align to 1.
func alignOf(p typesys.Primitive) int {
	switch p {
	case typesys.Bool, typesys.Int8, typesys.Uint8:
		return 1
	case typesys.Int16, typesys.Uint16:
		return 2
	case typesys.Int32, typesys.Uint32, typesys.Float32:
		return 4
	case typesys.Int64, typesys.Uint64, typesys.Float64:
		return 8
	case typesys.String:
		return 4 // length prefix
	}
	return 1
}

func sizeOf(p typesys.Primitive) int {
	switch p {
	case typesys.Bool, typesys.Int8, typesys.Uint8:
		return 1
	case typesys.Int16, typesys.Uint16:
		return 2
	case typesys.Int32, typesys.Uint32, typesys.Float32:
		return 4
	case typesys.Int64, typesys.Uint64, typesys.Float64:
		return 8
	}
	return 0 // string: variable
}

// alignBefore is the alignment required on entry to a field of kind, found
// by descending to the first primitive a value of that kind would write.
func alignBefore(reg *typesys.Registry, kind typesys.FieldKind) (int, error) {
	switch {
	case kind.IsBase():
		return alignOf(kind.Base()), nil
	case kind.IsName():
		return structAlignBefore(reg, kind.TypeName())
	case kind.IsSequence():
		return 4, nil // u32 count prefix
	case kind.IsArray():
		if kind.ElemIsName() {
			return structAlignBefore(reg, kind.ElemTypeName())
		}
		return alignOf(kind.ElemBase()), nil
	}
	return 1, nil
}

// alignAfter is the alignment left behind on exit from a field of kind,
// found by descending to the last primitive a value of that kind writes.
func alignAfter(reg *typesys.Registry, kind typesys.FieldKind, elemCount int) (int, error) {
	switch {
	case kind.IsBase():
		if kind.Base() == typesys.String {
			return 1, nil // variable-length payload, no alignment guarantee
		}
		return alignOf(kind.Base()), nil
	case kind.IsName():
		return structAlignAfter(reg, kind.TypeName())
	case kind.IsSequence():
		if elemCount == 0 {
			return 4, nil // only the count was written
		}
		return elemAlignAfter(reg, kind)
	case kind.IsArray():
		if kind.Length() == 0 {
			return alignBefore(reg, kind)
		}
		return elemAlignAfter(reg, kind)
	}
	return 1, nil
}

func elemAlignAfter(reg *typesys.Registry, kind typesys.FieldKind) (int, error) {
	if kind.ElemIsName() {
		return structAlignAfter(reg, kind.ElemTypeName())
	}
	if kind.ElemBase() == typesys.String {
		return 1, nil
	}
	return alignOf(kind.ElemBase()), nil
}

func structAlignBefore(reg *typesys.Registry, typeName string) (int, error) {
	schema, err := reg.MustLookup(typeName)
	if err != nil {
		return 0, err
	}
	if len(schema.Fields) == 0 {
		return 1, nil
	}
	return alignBefore(reg, schema.Fields[0].Kind)
}

func structAlignAfter(reg *typesys.Registry, typeName string) (int, error) {
	schema, err := reg.MustLookup(typeName)
	if err != nil {
		return 0, err
	}
	if len(schema.Fields) == 0 {
		return 1, nil
	}
	last := schema.Fields[len(schema.Fields)-1]
	// a trailing field's own element count is not known without a value;
	// callers computing static alignment treat sequences/arrays of unknown
	// length conservatively as non-empty, matching the common case.
	return alignAfter(reg, last.Kind, 1)
}

// padFor returns the number of padding bytes needed to bring pos up to the
// next multiple of align, counted from the payload start that follows the
// 4-byte aligned-wire prefix (every caller passes a position in a buffer
// that begins with that prefix).
func padFor(pos int, align int) int {
	if align <= 1 {
		return 0
	}
	if r := (pos - 4) % align; r != 0 {
		return align - r
	}
	return 0
}

// headerPackedSeqBytes is the length of the legacy uint32 seq field the
// packed wire carries ahead of std_msgs/msg/Header's real fields, and which
// has no counterpart on the aligned wire (spec.md §4.4).
const headerPackedSeqBytes = 4

func isHeaderType(typeName string) bool {
	return typeName == typesys.HeaderTypeName
}
