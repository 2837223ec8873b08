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

package highlevel

import (
	"github.com/ros2go/rosbags/codec"
	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/typesys"
)

// Deserialize decodes raw as msgtype: a bag-v2 payload is already aligned
// wire and decodes directly; a bag-v1 payload is packed wire and is first
// moved to aligned form via codec's packed→aligned mover (spec.md §4.7),
// never decoded field-by-field from the packed layout.
func Deserialize(reg *typesys.Registry, raw []byte, msgtype string, packed bool) (*typesys.Value, error) {
	aligned := raw
	if packed {
		moved, err := codec.AlignedFromPacked(reg, msgtype, raw)
		if err != nil {
			return nil, err
		}
		aligned = moved
	}
	if len(aligned) < 4 {
		return nil, &rosbagerrors.Truncated{Field: "<prefix>", Need: 4, Have: len(aligned)}
	}
	if aligned[1] == 1 {
		return codec.DecodeLE(reg, msgtype, aligned)
	}
	return codec.DecodeBE(reg, msgtype, aligned)
}
