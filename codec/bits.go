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

import "encoding/binary"

// writeRawBits writes the low size bytes of raw (a numeric array element's
// bit pattern, already in the primitive's own width) to buf in byte order
// bo. Numeric arrays keep their raw bits rather than boxed Values so this
// path can move in bulk without reinterpreting through float/int accessors.
func writeRawBits(buf []byte, bo binary.ByteOrder, size int, raw uint64) {
	switch size {
	case 1:
		buf[0] = byte(raw)
	case 2:
		bo.PutUint16(buf, uint16(raw))
	case 4:
		bo.PutUint32(buf, uint32(raw))
	case 8:
		bo.PutUint64(buf, raw)
	}
}

func readRawBits(buf []byte, bo binary.ByteOrder, size int) uint64 {
	switch size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(bo.Uint16(buf))
	case 4:
		return uint64(bo.Uint32(buf))
	case 8:
		return bo.Uint64(buf)
	}
	return 0
}
