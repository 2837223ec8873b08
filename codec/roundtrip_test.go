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
	"math"
	"testing"

	"github.com/ros2go/rosbags/typesys"
)

func testRegistry(t *testing.T) *typesys.Registry {
	t.Helper()
	r := typesys.NewRegistry()
	if err := r.RegisterAll(typesys.StandardCatalog()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return r
}

func polygonValue() *typesys.Value {
	mkPoint := func(x, y, z float32) *typesys.Value {
		p := typesys.NewRecord("geometry_msgs/msg/Point32", []string{"x", "y", "z"})
		p.SetField("x", typesys.NewFloat(typesys.Float32, float64(x)))
		p.SetField("y", typesys.NewFloat(typesys.Float32, float64(y)))
		p.SetField("z", typesys.NewFloat(typesys.Float32, float64(z)))
		return p
	}
	poly := typesys.NewRecord("geometry_msgs/msg/Polygon", []string{"points"})
	poly.SetField("points", typesys.NewRecordArray([]*typesys.Value{mkPoint(1, 2, 3), mkPoint(4, 5, 6)}))
	return poly
}

func magneticFieldValue() *typesys.Value {
	header := typesys.NewRecord(typesys.HeaderTypeName, []string{"stamp", "frame_id"})
	stamp := typesys.NewRecord("builtin_interfaces/msg/Time", []string{"sec", "nanosec"})
	stamp.SetField("sec", typesys.NewInt(typesys.Int32, 5))
	stamp.SetField("nanosec", typesys.NewUint(typesys.Uint32, 250))
	header.SetField("stamp", stamp)
	header.SetField("frame_id", typesys.NewString("imu_link"))

	vec := typesys.NewRecord("geometry_msgs/msg/Vector3", []string{"x", "y", "z"})
	vec.SetField("x", typesys.NewFloat(typesys.Float64, 1.5))
	vec.SetField("y", typesys.NewFloat(typesys.Float64, -2.25))
	vec.SetField("z", typesys.NewFloat(typesys.Float64, 0))

	cov := make([]uint64, 9)
	for i := range cov {
		cov[i] = math.Float64bits(float64(i))
	}

	mf := typesys.NewRecord("sensor_msgs/msg/MagneticField", []string{"header", "magnetic_field", "magnetic_field_covariance"})
	mf.SetField("header", header)
	mf.SetField("magnetic_field", vec)
	mf.SetField("magnetic_field_covariance", typesys.NewNumericArray(typesys.Float64, cov))
	return mf
}

func TestEncodeDecodeRoundTripPolygon(t *testing.T) {
	reg := testRegistry(t)
	v := polygonValue()
	buf, err := EncodeLE(reg, "geometry_msgs/msg/Polygon", v)
	if err != nil {
		t.Fatalf("EncodeLE: %v", err)
	}
	got, err := DecodeLE(reg, "geometry_msgs/msg/Polygon", buf)
	if err != nil {
		t.Fatalf("DecodeLE: %v", err)
	}
	if !v.Equal(got) {
		t.Fatalf("round trip mismatch: got %#v want %#v", got, v)
	}
}

func TestEncodeDecodeBigEndianMagneticField(t *testing.T) {
	reg := testRegistry(t)
	v := magneticFieldValue()

	be, err := EncodeBE(reg, "sensor_msgs/msg/MagneticField", v)
	if err != nil {
		t.Fatalf("EncodeBE: %v", err)
	}
	gotBE, err := DecodeBE(reg, "sensor_msgs/msg/MagneticField", be)
	if err != nil {
		t.Fatalf("DecodeBE: %v", err)
	}
	if !v.Equal(gotBE) {
		t.Fatalf("big-endian round trip mismatch")
	}

	le, err := EncodeLE(reg, "sensor_msgs/msg/MagneticField", v)
	if err != nil {
		t.Fatalf("EncodeLE: %v", err)
	}
	gotLE, err := DecodeLE(reg, "sensor_msgs/msg/MagneticField", le)
	if err != nil {
		t.Fatalf("DecodeLE: %v", err)
	}
	if !v.Equal(gotLE) {
		t.Fatalf("little-endian round trip mismatch")
	}

	if _, err := DecodeLE(reg, "sensor_msgs/msg/MagneticField", be); err == nil {
		t.Fatalf("expected decoding a big-endian buffer with DecodeLE to fail")
	}
	if _, err := DecodeBE(reg, "sensor_msgs/msg/MagneticField", le); err == nil {
		t.Fatalf("expected decoding a little-endian buffer with DecodeBE to fail")
	}
}

func TestEncodeArrayLengthMismatchRejected(t *testing.T) {
	reg := testRegistry(t)
	mf := magneticFieldValue()
	mf.SetField("magnetic_field_covariance", typesys.NewNumericArray(typesys.Float64, make([]uint64, 5)))
	if _, err := EncodeLE(reg, "sensor_msgs/msg/MagneticField", mf); err == nil {
		t.Fatalf("expected LengthMismatch for a covariance array of the wrong length")
	}
}

func TestDecodeTruncatedBuffer(t *testing.T) {
	reg := testRegistry(t)
	buf := []byte{0, endianLE, 0, 0, 1, 2}
	if _, err := DecodeLE(reg, "geometry_msgs/msg/Polygon", buf); err == nil {
		t.Fatalf("expected Truncated error for a buffer cut off inside the sequence count")
	}
}
