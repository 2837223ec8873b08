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
	"testing"

	"github.com/ros2go/rosbags/typesys"
)

func TestPackedFromAlignedAddsHeaderSeq(t *testing.T) {
	reg := testRegistry(t)
	header := typesys.NewRecord(typesys.HeaderTypeName, []string{"stamp", "frame_id"})
	stamp := typesys.NewRecord("builtin_interfaces/msg/Time", []string{"sec", "nanosec"})
	stamp.SetField("sec", typesys.NewInt(typesys.Int32, 1))
	stamp.SetField("nanosec", typesys.NewUint(typesys.Uint32, 2))
	header.SetField("stamp", stamp)
	header.SetField("frame_id", typesys.NewString("base_link"))

	aligned, err := EncodeLE(reg, typesys.HeaderTypeName, header)
	if err != nil {
		t.Fatalf("EncodeLE: %v", err)
	}

	packed, err := PackedFromAligned(reg, typesys.HeaderTypeName, aligned)
	if err != nil {
		t.Fatalf("PackedFromAligned: %v", err)
	}
	if len(packed) < 4 {
		t.Fatalf("packed buffer too short: %d", len(packed))
	}
	if packed[0] != 0 || packed[1] != 0 || packed[2] != 0 || packed[3] != 0 {
		t.Fatalf("expected a leading zero seq field, got % x", packed[:4])
	}

	back, err := AlignedFromPacked(reg, typesys.HeaderTypeName, packed)
	if err != nil {
		t.Fatalf("AlignedFromPacked: %v", err)
	}
	got, err := DecodeLE(reg, typesys.HeaderTypeName, back)
	if err != nil {
		t.Fatalf("DecodeLE: %v", err)
	}
	if !header.Equal(got) {
		t.Fatalf("round trip through movers mismatch")
	}
}

func TestMoverSizeOnlyMatchesWrittenLength(t *testing.T) {
	reg := testRegistry(t)
	v := polygonValue()
	aligned, err := EncodeLE(reg, "geometry_msgs/msg/Polygon", v)
	if err != nil {
		t.Fatalf("EncodeLE: %v", err)
	}

	packed, err := PackedFromAligned(reg, "geometry_msgs/msg/Polygon", aligned)
	if err != nil {
		t.Fatalf("PackedFromAligned: %v", err)
	}
	n, err := SizePackedFromAligned(reg, "geometry_msgs/msg/Polygon", aligned)
	if err != nil {
		t.Fatalf("SizePackedFromAligned: %v", err)
	}
	if n != len(packed) {
		t.Fatalf("size-only packed length %d != written length %d", n, len(packed))
	}

	back, err := AlignedFromPacked(reg, "geometry_msgs/msg/Polygon", packed)
	if err != nil {
		t.Fatalf("AlignedFromPacked: %v", err)
	}
	n2, err := SizeAlignedFromPacked(reg, "geometry_msgs/msg/Polygon", packed)
	if err != nil {
		t.Fatalf("SizeAlignedFromPacked: %v", err)
	}
	if n2 != len(back) {
		t.Fatalf("size-only aligned length %d != written length %d", n2, len(back))
	}
}

func TestAlignedFromPackedMalformedStringLength(t *testing.T) {
	reg := testRegistry(t)
	// seq(4) + sec(4) + nanosec(4) + a string length prefix claiming far
	// more bytes than the buffer actually has.
	packed := make([]byte, 4+8+4)
	binary.LittleEndian.PutUint32(packed[4+8:], 100)
	if _, err := AlignedFromPacked(reg, typesys.HeaderTypeName, packed); err == nil {
		t.Fatalf("expected MalformedLength error for an out-of-range string length")
	}
}
