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

package codec

import (
	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/typesys"
)

// Size returns the number of bytes the aligned wire encoding of v (a record
// of typeName) occupies, including the 4-byte prefix.
func Size(reg *typesys.Registry, typeName string, v *typesys.Value) (int, error) {
	plan, err := planFor(reg, typeName)
	if err != nil {
		return 0, err
	}
	pos, err := sizeFields(reg, plan, v, 4)
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// sizeFields walks a struct's own field list, threading the absolute
// payload position through so alignment is computed relative to the
// top-level payload start rather than reset at each nested message, per
// spec.md §4.4.
func sizeFields(reg *typesys.Registry, plan *Plan, v *typesys.Value, pos int) (int, error) {
	for _, op := range plan.Fields {
		fv := v.Field(op.Field.Name)
		np, err := sizeFieldAligned(reg, op.Field.Kind, fv, pos, op.AlignBefore)
		if err != nil {
			return 0, err
		}
		pos = np
	}
	return pos, nil
}

// sizeField computes a field's alignment on demand; used for array/sequence
// elements, which have no precomputed fieldOp of their own.
func sizeField(reg *typesys.Registry, kind typesys.FieldKind, v *typesys.Value, pos int) (int, error) {
	align, err := alignBefore(reg, kind)
	if err != nil {
		return 0, err
	}
	return sizeFieldAligned(reg, kind, v, pos, align)
}

func sizeFieldAligned(reg *typesys.Registry, kind typesys.FieldKind, v *typesys.Value, pos int, align int) (int, error) {
	pos += padFor(pos, align)

	switch {
	case kind.IsBase():
		if kind.Base() == typesys.String {
			return pos + 4 + len(v.String()) + 1, nil
		}
		return pos + sizeOf(kind.Base()), nil

	case kind.IsName():
		nested, err := planFor(reg, kind.TypeName())
		if err != nil {
			return 0, err
		}
		return sizeFields(reg, nested, v, pos)

	case kind.IsArray():
		n := sequenceLen(kind, v)
		return sizeRepeated(reg, kind, v, pos, n)

	case kind.IsSequence():
		n := sequenceLen(kind, v)
		pos += 4
		return sizeRepeated(reg, kind, v, pos, n)
	}
	return pos, nil
}

// sequenceLen reports how many elements v carries, reading whichever of the
// two Value array representations applies to the element kind.
func sequenceLen(kind typesys.FieldKind, v *typesys.Value) int {
	if isNumericElem(kind) {
		nums, _ := v.NumericArray()
		return len(nums)
	}
	return len(v.Items())
}

func isNumericElem(kind typesys.FieldKind) bool {
	return !kind.ElemIsName() && kind.ElemBase() != typesys.String
}

func elemKindOf(kind typesys.FieldKind) typesys.FieldKind {
	if kind.ElemIsName() {
		return typesys.NewName(kind.ElemTypeName())
	}
	return typesys.NewBase(kind.ElemBase())
}

func sizeRepeated(reg *typesys.Registry, kind typesys.FieldKind, v *typesys.Value, pos int, n int) (int, error) {
	if kind.IsArray() {
		declared := int(kind.Length())
		if n != declared {
			return 0, &rosbagerrors.LengthMismatch{Declared: declared, Actual: n}
		}
	}
	elemKind := elemKindOf(kind)

	if isNumericElem(kind) {
		align, err := alignBefore(reg, elemKind)
		if err != nil {
			return 0, err
		}
		size := sizeOf(elemKind.Base())
		for i := 0; i < n; i++ {
			pos += padFor(pos, align)
			pos += size
		}
		return pos, nil
	}

	items := v.Items()
	for i := 0; i < n; i++ {
		var elemVal *typesys.Value
		if i < len(items) {
			elemVal = items[i]
		}
		np, err := sizeField(reg, elemKind, elemVal, pos)
		if err != nil {
			return 0, err
		}
		pos = np
	}
	return pos, nil
}
