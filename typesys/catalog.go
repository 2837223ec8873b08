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

// StandardCatalog returns the fixed set of message types the system ships
// pre-registered in the default registry: the builtin time types, the
// always-present Header, and the handful of common geometry/sensor types
// exercised by the test corpus (spec.md §4.3, §8).
func StandardCatalog() map[string]Schema {
	return map[string]Schema{
		"builtin_interfaces/msg/Time": {
			Fields: []Field{
				{Name: "sec", Kind: NewBase(Int32)},
				{Name: "nanosec", Kind: NewBase(Uint32)},
			},
		},
		"builtin_interfaces/msg/Duration": {
			Fields: []Field{
				{Name: "sec", Kind: NewBase(Int32)},
				{Name: "nanosec", Kind: NewBase(Uint32)},
			},
		},
		HeaderTypeName: {
			Fields: []Field{
				{Name: "stamp", Kind: NewName("builtin_interfaces/msg/Time")},
				{Name: "frame_id", Kind: NewBase(String)},
			},
		},
		"geometry_msgs/msg/Point32": {
			Fields: []Field{
				{Name: "x", Kind: NewBase(Float32)},
				{Name: "y", Kind: NewBase(Float32)},
				{Name: "z", Kind: NewBase(Float32)},
			},
		},
		"geometry_msgs/msg/Polygon": {
			Fields: []Field{
				{Name: "points", Kind: NewSequenceName("geometry_msgs/msg/Point32", nil)},
			},
		},
		"geometry_msgs/msg/Vector3": {
			Fields: []Field{
				{Name: "x", Kind: NewBase(Float64)},
				{Name: "y", Kind: NewBase(Float64)},
				{Name: "z", Kind: NewBase(Float64)},
			},
		},
		"sensor_msgs/msg/MagneticField": {
			Fields: []Field{
				{Name: "header", Kind: NewName(HeaderTypeName)},
				{Name: "magnetic_field", Kind: NewName("geometry_msgs/msg/Vector3")},
				{Name: "magnetic_field_covariance", Kind: NewArrayBase(Float64, 9)},
			},
		},
		"std_msgs/msg/Int8": {
			Fields: []Field{
				{Name: "data", Kind: NewBase(Int8)},
			},
		},
	}
}
