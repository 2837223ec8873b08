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

const (
	endianLE byte = 1
	endianBE byte = 0
)

// EncodeLE writes v (a record of typeName) to the little-endian aligned wire.
func EncodeLE(reg *typesys.Registry, typeName string, v *typesys.Value) ([]byte, error) {
	return encode(reg, typeName, v, binary.LittleEndian, endianLE)
}

// EncodeBE writes v to the big-endian aligned wire.
func EncodeBE(reg *typesys.Registry, typeName string, v *typesys.Value) ([]byte, error) {
	return encode(reg, typeName, v, binary.BigEndian, endianBE)
}

func encode(reg *typesys.Registry, typeName string, v *typesys.Value, bo binary.ByteOrder, flag byte) ([]byte, error) {
	plan, err := planFor(reg, typeName)
	if err != nil {
		return nil, err
	}
	size, err := sizeFields(reg, plan, v, 4)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	buf[0], buf[1], buf[2], buf[3] = 0, flag, 0, 0
	if _, err := encodeFields(reg, plan, v, buf, 4, bo); err != nil {
		return nil, err
	}
	return buf, nil
}

func encodeFields(reg *typesys.Registry, plan *Plan, v *typesys.Value, buf []byte, pos int, bo binary.ByteOrder) (int, error) {
	for _, op := range plan.Fields {
		fv := v.Field(op.Field.Name)
		np, err := encodeFieldAligned(reg, op.Field.Kind, fv, buf, pos, bo, op.AlignBefore)
		if err != nil {
			return 0, err
		}
		pos = np
	}
	return pos, nil
}

// encodeField computes a field's alignment on demand; used for array/sequence
// elements, which have no precomputed fieldOp of their own.
func encodeField(reg *typesys.Registry, kind typesys.FieldKind, v *typesys.Value, buf []byte, pos int, bo binary.ByteOrder) (int, error) {
	align, err := alignBefore(reg, kind)
	if err != nil {
		return 0, err
	}
	return encodeFieldAligned(reg, kind, v, buf, pos, bo, align)
}

func encodeFieldAligned(reg *typesys.Registry, kind typesys.FieldKind, v *typesys.Value, buf []byte, pos int, bo binary.ByteOrder, align int) (int, error) {
	pos += padFor(pos, align)

	switch {
	case kind.IsBase():
		return encodePrimitive(kind.Base(), v, buf, pos, bo)

	case kind.IsName():
		nested, err := planFor(reg, kind.TypeName())
		if err != nil {
			return 0, err
		}
		return encodeFields(reg, nested, v, buf, pos, bo)

	case kind.IsArray():
		return encodeRepeated(reg, kind, v, buf, pos, bo, sequenceLen(kind, v))

	case kind.IsSequence():
		n := sequenceLen(kind, v)
		bo.PutUint32(buf[pos:], uint32(n))
		pos += 4
		return encodeRepeated(reg, kind, v, buf, pos, bo, n)
	}
	return pos, nil
}

func encodePrimitive(p typesys.Primitive, v *typesys.Value, buf []byte, pos int, bo binary.ByteOrder) (int, error) {
	switch p {
	case typesys.Bool:
		if v.Bool() {
			buf[pos] = 1
		} else {
			buf[pos] = 0
		}
		return pos + 1, nil
	case typesys.Int8:
		buf[pos] = byte(v.Int())
		return pos + 1, nil
	case typesys.Uint8:
		buf[pos] = byte(v.Uint())
		return pos + 1, nil
	case typesys.Int16:
		bo.PutUint16(buf[pos:], uint16(v.Int()))
		return pos + 2, nil
	case typesys.Uint16:
		bo.PutUint16(buf[pos:], uint16(v.Uint()))
		return pos + 2, nil
	case typesys.Int32:
		bo.PutUint32(buf[pos:], uint32(v.Int()))
		return pos + 4, nil
	case typesys.Uint32:
		bo.PutUint32(buf[pos:], uint32(v.Uint()))
		return pos + 4, nil
	case typesys.Float32:
		bo.PutUint32(buf[pos:], math.Float32bits(float32(v.Float())))
		return pos + 4, nil
	case typesys.Int64:
		bo.PutUint64(buf[pos:], uint64(v.Int()))
		return pos + 8, nil
	case typesys.Uint64:
		bo.PutUint64(buf[pos:], v.Uint())
		return pos + 8, nil
	case typesys.Float64:
		bo.PutUint64(buf[pos:], math.Float64bits(v.Float()))
		return pos + 8, nil
	case typesys.String:
		s := v.String()
		bo.PutUint32(buf[pos:], uint32(len(s)+1))
		pos += 4
		n := copy(buf[pos:], s)
		pos += n
		buf[pos] = 0
		return pos + 1, nil
	}
	return pos, nil
}

func encodeRepeated(reg *typesys.Registry, kind typesys.FieldKind, v *typesys.Value, buf []byte, pos int, bo binary.ByteOrder, n int) (int, error) {
	if kind.IsArray() && n != int(kind.Length()) {
		return 0, &rosbagerrors.LengthMismatch{Declared: int(kind.Length()), Actual: n}
	}
	elemKind := elemKindOf(kind)

	if isNumericElem(kind) {
		nums, _ := v.NumericArray()
		align, err := alignBefore(reg, elemKind)
		if err != nil {
			return 0, err
		}
		size := sizeOf(elemKind.Base())
		for i := 0; i < n; i++ {
			pos += padFor(pos, align)
			writeRawBits(buf[pos:], bo, size, nums[i])
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
		np, err := encodeField(reg, elemKind, elemVal, buf, pos, bo)
		if err != nil {
			return 0, err
		}
		pos = np
	}
	return pos, nil
}
