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
	"encoding/binary"
	"math"

	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/typesys"
)

// DecodeLE parses buf as the little-endian aligned wire encoding of typeName.
func DecodeLE(reg *typesys.Registry, typeName string, buf []byte) (*typesys.Value, error) {
	return decode(reg, typeName, buf, binary.LittleEndian, endianLE)
}

// DecodeBE parses buf as the big-endian aligned wire encoding of typeName.
func DecodeBE(reg *typesys.Registry, typeName string, buf []byte) (*typesys.Value, error) {
	return decode(reg, typeName, buf, binary.BigEndian, endianBE)
}

func decode(reg *typesys.Registry, typeName string, buf []byte, bo binary.ByteOrder, wantFlag byte) (*typesys.Value, error) {
	if len(buf) < 4 {
		return nil, &rosbagerrors.Truncated{Field: "<prefix>", Need: 4, Have: len(buf)}
	}
	if buf[1] != wantFlag {
		return nil, &rosbagerrors.BagFormat{Message: "aligned wire endianness flag does not match requested decoder"}
	}
	plan, err := planFor(reg, typeName)
	if err != nil {
		return nil, err
	}
	v := typesys.NewRecord(plan.TypeName, fieldNames(plan))
	if _, err := decodeFields(reg, plan, v, buf, 4, bo); err != nil {
		return nil, err
	}
	return v, nil
}

func fieldNames(plan *Plan) []string {
	out := make([]string, len(plan.Fields))
	for i, op := range plan.Fields {
		out[i] = op.Field.Name
	}
	return out
}

func decodeFields(reg *typesys.Registry, plan *Plan, v *typesys.Value, buf []byte, pos int, bo binary.ByteOrder) (int, error) {
	for _, op := range plan.Fields {
		fv, np, err := decodeFieldAligned(reg, op.Field.Kind, buf, pos, bo, op.Field.Name, op.AlignBefore)
		if err != nil {
			return 0, err
		}
		v.SetField(op.Field.Name, fv)
		pos = np
	}
	return pos, nil
}

// decodeField computes a field's alignment on demand; used for array/sequence
// elements, which have no precomputed fieldOp of their own.
func decodeField(reg *typesys.Registry, kind typesys.FieldKind, buf []byte, pos int, bo binary.ByteOrder, fieldName string) (*typesys.Value, int, error) {
	align, err := alignBefore(reg, kind)
	if err != nil {
		return nil, 0, err
	}
	return decodeFieldAligned(reg, kind, buf, pos, bo, fieldName, align)
}

func decodeFieldAligned(reg *typesys.Registry, kind typesys.FieldKind, buf []byte, pos int, bo binary.ByteOrder, fieldName string, align int) (*typesys.Value, int, error) {
	pos += padFor(pos, align)

	switch {
	case kind.IsBase():
		return decodePrimitive(kind.Base(), buf, pos, bo, fieldName)

	case kind.IsName():
		nested, err := planFor(reg, kind.TypeName())
		if err != nil {
			return nil, 0, err
		}
		v := typesys.NewRecord(nested.TypeName, fieldNames(nested))
		np, err := decodeFields(reg, nested, v, buf, pos, bo)
		if err != nil {
			return nil, 0, err
		}
		return v, np, nil

	case kind.IsArray():
		return decodeRepeated(reg, kind, buf, pos, bo, int(kind.Length()), fieldName)

	case kind.IsSequence():
		if pos+4 > len(buf) {
			return nil, 0, &rosbagerrors.Truncated{Field: fieldName, Need: 4, Have: len(buf) - pos}
		}
		n := int(bo.Uint32(buf[pos:]))
		pos += 4
		return decodeRepeated(reg, kind, buf, pos, bo, n, fieldName)
	}
	return nil, pos, nil
}

func decodePrimitive(p typesys.Primitive, buf []byte, pos int, bo binary.ByteOrder, fieldName string) (*typesys.Value, int, error) {
	need := sizeOf(p)
	if p == typesys.String {
		need = 4
	}
	if pos+need > len(buf) {
		return nil, 0, &rosbagerrors.Truncated{Field: fieldName, Need: need, Have: len(buf) - pos}
	}
	switch p {
	case typesys.Bool:
		return typesys.NewBool(buf[pos] != 0), pos + 1, nil
	case typesys.Int8:
		return typesys.NewInt(p, int64(int8(buf[pos]))), pos + 1, nil
	case typesys.Uint8:
		return typesys.NewUint(p, uint64(buf[pos])), pos + 1, nil
	case typesys.Int16:
		return typesys.NewInt(p, int64(int16(bo.Uint16(buf[pos:])))), pos + 2, nil
	case typesys.Uint16:
		return typesys.NewUint(p, uint64(bo.Uint16(buf[pos:]))), pos + 2, nil
	case typesys.Int32:
		return typesys.NewInt(p, int64(int32(bo.Uint32(buf[pos:])))), pos + 4, nil
	case typesys.Uint32:
		return typesys.NewUint(p, uint64(bo.Uint32(buf[pos:]))), pos + 4, nil
	case typesys.Float32:
		return typesys.NewFloat(p, float64(math.Float32frombits(bo.Uint32(buf[pos:])))), pos + 4, nil
	case typesys.Int64:
		return typesys.NewInt(p, int64(bo.Uint64(buf[pos:]))), pos + 8, nil
	case typesys.Uint64:
		return typesys.NewUint(p, bo.Uint64(buf[pos:])), pos + 8, nil
	case typesys.Float64:
		return typesys.NewFloat(p, math.Float64frombits(bo.Uint64(buf[pos:]))), pos + 8, nil
	case typesys.String:
		length := int(bo.Uint32(buf[pos:]))
		pos += 4
		if length < 1 || pos+length > len(buf) {
			return nil, 0, &rosbagerrors.MalformedLength{Field: fieldName, Length: uint32(length), Avail: len(buf) - pos}
		}
		s := string(buf[pos : pos+length-1]) // drop trailing NUL
		return typesys.NewString(s), pos + length, nil
	}
	return nil, pos, nil
}

func decodeRepeated(reg *typesys.Registry, kind typesys.FieldKind, buf []byte, pos int, bo binary.ByteOrder, n int, fieldName string) (*typesys.Value, int, error) {
	elemKind := elemKindOf(kind)

	if isNumericElem(kind) {
		align, err := alignBefore(reg, elemKind)
		if err != nil {
			return nil, 0, err
		}
		size := sizeOf(elemKind.Base())
		nums := make([]uint64, n)
		for i := 0; i < n; i++ {
			pos += padFor(pos, align)
			if pos+size > len(buf) {
				return nil, 0, &rosbagerrors.Truncated{Field: fieldName, Need: size, Have: len(buf) - pos}
			}
			nums[i] = readRawBits(buf[pos:], bo, size)
			pos += size
		}
		return typesys.NewNumericArray(elemKind.Base(), nums), pos, nil
	}

	items := make([]*typesys.Value, n)
	for i := 0; i < n; i++ {
		ev, np, err := decodeField(reg, elemKind, buf, pos, bo, fieldName)
		if err != nil {
			return nil, 0, err
		}
		items[i] = ev
		pos = np
	}
	return typesys.NewRecordArray(items), pos, nil
}
