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

	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/typesys"
)

// The movers convert a message directly between bag-v1's packed wire and
// bag-v2's aligned wire without going through a decoded Value at all
// (spec.md §4.8 relies on this for lossless, allocation-light conversion).
// Packed is always little-endian and carries no padding; aligned carries
// the usual 4-byte prefix and per-field alignment. A nil destination
// buffer selects the size-only variant: the source is still fully walked
// (to read string/sequence lengths), but nothing is written.

// AlignedFromPacked converts a packed-wire record of typeName into the
// little-endian aligned wire.
func AlignedFromPacked(reg *typesys.Registry, typeName string, packed []byte) ([]byte, error) {
	n, err := SizeAlignedFromPacked(reg, typeName, packed)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	out[0], out[1], out[2], out[3] = 0, endianLE, 0, 0
	plan, err := planFor(reg, typeName)
	if err != nil {
		return nil, err
	}
	ppos := 0
	if isHeaderType(plan.TypeName) {
		ppos += headerPackedSeqBytes
	}
	if _, _, err := moveAlignedFromPacked(reg, plan, packed, ppos, out, 4); err != nil {
		return nil, err
	}
	return out, nil
}

// SizeAlignedFromPacked returns the aligned-wire length AlignedFromPacked
// would produce, without allocating or writing an output buffer.
func SizeAlignedFromPacked(reg *typesys.Registry, typeName string, packed []byte) (int, error) {
	plan, err := planFor(reg, typeName)
	if err != nil {
		return 0, err
	}
	ppos := 0
	if isHeaderType(plan.TypeName) {
		ppos += headerPackedSeqBytes
	}
	_, apos, err := moveAlignedFromPacked(reg, plan, packed, ppos, nil, 4)
	if err != nil {
		return 0, err
	}
	return apos, nil
}

func moveAlignedFromPacked(reg *typesys.Registry, plan *Plan, packed []byte, ppos int, aligned []byte, apos int) (int, int, error) {
	for _, op := range plan.Fields {
		np, na, err := moveFieldAlignedFromPackedAt(reg, op.Field.Kind, packed, ppos, aligned, apos, op.AlignBefore)
		if err != nil {
			return 0, 0, err
		}
		ppos, apos = np, na
	}
	return ppos, apos, nil
}

// moveFieldAlignedFromPacked computes a field's alignment on demand; used
// for array/sequence elements, which have no precomputed fieldOp of their
// own.
func moveFieldAlignedFromPacked(reg *typesys.Registry, kind typesys.FieldKind, packed []byte, ppos int, aligned []byte, apos int) (int, int, error) {
	align, err := alignBefore(reg, kind)
	if err != nil {
		return 0, 0, err
	}
	return moveFieldAlignedFromPackedAt(reg, kind, packed, ppos, aligned, apos, align)
}

func moveFieldAlignedFromPackedAt(reg *typesys.Registry, kind typesys.FieldKind, packed []byte, ppos int, aligned []byte, apos int, align int) (int, int, error) {
	apos += padFor(apos, align)

	switch {
	case kind.IsBase():
		if kind.Base() == typesys.String {
			if ppos+4 > len(packed) {
				return 0, 0, &rosbagerrors.Truncated{Field: "<string-length>", Need: 4, Have: len(packed) - ppos}
			}
			l := int(binary.LittleEndian.Uint32(packed[ppos:]))
			ppos += 4
			if l < 0 || ppos+l > len(packed) {
				return 0, 0, &rosbagerrors.MalformedLength{Field: "<string>", Length: uint32(l), Avail: len(packed) - ppos}
			}
			if aligned != nil {
				binary.LittleEndian.PutUint32(aligned[apos:], uint32(l+1))
				copy(aligned[apos+4:], packed[ppos:ppos+l])
				aligned[apos+4+l] = 0
			}
			return ppos + l, apos + 4 + l + 1, nil
		}
		size := sizeOf(kind.Base())
		if ppos+size > len(packed) {
			return 0, 0, &rosbagerrors.Truncated{Field: "<primitive>", Need: size, Have: len(packed) - ppos}
		}
		if aligned != nil {
			copy(aligned[apos:apos+size], packed[ppos:ppos+size])
		}
		return ppos + size, apos + size, nil

	case kind.IsName():
		nested, err := planFor(reg, kind.TypeName())
		if err != nil {
			return 0, 0, err
		}
		if isHeaderType(nested.TypeName) {
			if ppos+headerPackedSeqBytes > len(packed) {
				return 0, 0, &rosbagerrors.Truncated{Field: "<header-seq>", Need: headerPackedSeqBytes, Have: len(packed) - ppos}
			}
			ppos += headerPackedSeqBytes
		}
		return moveAlignedFromPacked(reg, nested, packed, ppos, aligned, apos)

	case kind.IsArray(), kind.IsSequence():
		n := int(kind.Length())
		if kind.IsSequence() {
			if ppos+4 > len(packed) {
				return 0, 0, &rosbagerrors.Truncated{Field: "<sequence-count>", Need: 4, Have: len(packed) - ppos}
			}
			n = int(binary.LittleEndian.Uint32(packed[ppos:]))
			ppos += 4
			if aligned != nil {
				binary.LittleEndian.PutUint32(aligned[apos:], uint32(n))
			}
			apos += 4
		}
		elemKind := elemKindOf(kind)
		for i := 0; i < n; i++ {
			np, na, err := moveFieldAlignedFromPacked(reg, elemKind, packed, ppos, aligned, apos)
			if err != nil {
				return 0, 0, err
			}
			ppos, apos = np, na
		}
		return ppos, apos, nil
	}
	return ppos, apos, nil
}

// PackedFromAligned converts an aligned-wire record of typeName (either
// endianness, per its own prefix flag) into the little-endian packed wire.
func PackedFromAligned(reg *typesys.Registry, typeName string, aligned []byte) ([]byte, error) {
	bo, err := alignedByteOrder(aligned)
	if err != nil {
		return nil, err
	}
	n, err := sizePackedFromAligned(reg, typeName, aligned, bo)
	if err != nil {
		return nil, err
	}
	plan, err := planFor(reg, typeName)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	ppos := 0
	if isHeaderType(plan.TypeName) {
		for i := 0; i < headerPackedSeqBytes; i++ {
			out[i] = 0
		}
		ppos += headerPackedSeqBytes
	}
	if _, _, err := movePackedFromAligned(reg, plan, aligned, 4, bo, out, ppos); err != nil {
		return nil, err
	}
	return out, nil
}

// SizePackedFromAligned returns the packed-wire length PackedFromAligned
// would produce, without allocating or writing an output buffer.
func SizePackedFromAligned(reg *typesys.Registry, typeName string, aligned []byte) (int, error) {
	bo, err := alignedByteOrder(aligned)
	if err != nil {
		return 0, err
	}
	return sizePackedFromAligned(reg, typeName, aligned, bo)
}

func sizePackedFromAligned(reg *typesys.Registry, typeName string, aligned []byte, bo binary.ByteOrder) (int, error) {
	plan, err := planFor(reg, typeName)
	if err != nil {
		return 0, err
	}
	ppos := 0
	if isHeaderType(plan.TypeName) {
		ppos += headerPackedSeqBytes
	}
	_, np, err := movePackedFromAligned(reg, plan, aligned, 4, bo, nil, ppos)
	if err != nil {
		return 0, err
	}
	return np, nil
}

func alignedByteOrder(aligned []byte) (binary.ByteOrder, error) {
	if len(aligned) < 4 {
		return nil, &rosbagerrors.Truncated{Field: "<prefix>", Need: 4, Have: len(aligned)}
	}
	switch aligned[1] {
	case endianLE:
		return binary.LittleEndian, nil
	case endianBE:
		return binary.BigEndian, nil
	default:
		return nil, &rosbagerrors.BagFormat{Message: "unrecognized aligned wire endianness flag"}
	}
}

func movePackedFromAligned(reg *typesys.Registry, plan *Plan, aligned []byte, apos int, bo binary.ByteOrder, packed []byte, ppos int) (int, int, error) {
	for _, op := range plan.Fields {
		na, np, err := moveFieldPackedFromAlignedAt(reg, op.Field.Kind, aligned, apos, bo, packed, ppos, op.AlignBefore)
		if err != nil {
			return 0, 0, err
		}
		apos, ppos = na, np
	}
	return apos, ppos, nil
}

// moveFieldPackedFromAligned computes a field's alignment on demand; used
// for array/sequence elements, which have no precomputed fieldOp of their
// own.
func moveFieldPackedFromAligned(reg *typesys.Registry, kind typesys.FieldKind, aligned []byte, apos int, bo binary.ByteOrder, packed []byte, ppos int) (int, int, error) {
	align, err := alignBefore(reg, kind)
	if err != nil {
		return 0, 0, err
	}
	return moveFieldPackedFromAlignedAt(reg, kind, aligned, apos, bo, packed, ppos, align)
}

func moveFieldPackedFromAlignedAt(reg *typesys.Registry, kind typesys.FieldKind, aligned []byte, apos int, bo binary.ByteOrder, packed []byte, ppos int, align int) (int, int, error) {
	apos += padFor(apos, align)

	switch {
	case kind.IsBase():
		if kind.Base() == typesys.String {
			if apos+4 > len(aligned) {
				return 0, 0, &rosbagerrors.Truncated{Field: "<string-length>", Need: 4, Have: len(aligned) - apos}
			}
			l := int(bo.Uint32(aligned[apos:]))
			apos += 4
			if l < 1 || apos+l > len(aligned) {
				return 0, 0, &rosbagerrors.MalformedLength{Field: "<string>", Length: uint32(l), Avail: len(aligned) - apos}
			}
			contentLen := l - 1
			if packed != nil {
				binary.LittleEndian.PutUint32(packed[ppos:], uint32(contentLen))
				copy(packed[ppos+4:], aligned[apos:apos+contentLen])
			}
			return apos + l, ppos + 4 + contentLen, nil
		}
		size := sizeOf(kind.Base())
		if apos+size > len(aligned) {
			return 0, 0, &rosbagerrors.Truncated{Field: "<primitive>", Need: size, Have: len(aligned) - apos}
		}
		if packed != nil {
			raw := readRawBits(aligned[apos:], bo, size)
			writeRawBits(packed[ppos:], binary.LittleEndian, size, raw)
		}
		return apos + size, ppos + size, nil

	case kind.IsName():
		nested, err := planFor(reg, kind.TypeName())
		if err != nil {
			return 0, 0, err
		}
		if isHeaderType(nested.TypeName) {
			if packed != nil {
				for i := 0; i < headerPackedSeqBytes; i++ {
					packed[ppos+i] = 0
				}
			}
			ppos += headerPackedSeqBytes
		}
		return movePackedFromAligned(reg, nested, aligned, apos, bo, packed, ppos)

	case kind.IsArray(), kind.IsSequence():
		n := int(kind.Length())
		if kind.IsSequence() {
			if apos+4 > len(aligned) {
				return 0, 0, &rosbagerrors.Truncated{Field: "<sequence-count>", Need: 4, Have: len(aligned) - apos}
			}
			n = int(bo.Uint32(aligned[apos:]))
			apos += 4
			if packed != nil {
				binary.LittleEndian.PutUint32(packed[ppos:], uint32(n))
			}
			ppos += 4
		}
		elemKind := elemKindOf(kind)
		for i := 0; i < n; i++ {
			na, np, err := moveFieldPackedFromAligned(reg, elemKind, aligned, apos, bo, packed, ppos)
			if err != nil {
				return 0, 0, err
			}
			apos, ppos = na, np
		}
		return apos, ppos, nil
	}
	return apos, ppos, nil
}
