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

// Package rosbag1 reads and writes the legacy indexed, chunked bag-v1
// container (spec.md §4.5): magic line, a 4096-byte padded bag-header
// record, a sequence of chunks, and a trailing index region.
package rosbag1

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ros2go/rosbags/rosbagerrors"
)

type opCode byte

const (
	opMessageData opCode = 2
	opBagHeader   opCode = 3
	opIndexData   opCode = 4
	opChunk       opCode = 5
	opChunkInfo   opCode = 6
	opConnection  opCode = 7
)

// recordHeader is the parsed key=value field set of one record header,
// keyed by field name with the separating '=' stripped.
type recordHeader map[string][]byte

func (h recordHeader) op() (opCode, error) {
	v, ok := h["op"]
	if !ok || len(v) != 1 {
		return 0, &rosbagerrors.BagFormat{Message: "record header has no op field"}
	}
	return opCode(v[0]), nil
}

func (h recordHeader) uint32(name string) (uint32, bool) {
	v, ok := h[name]
	if !ok || len(v) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(v), true
}

func (h recordHeader) uint64(name string) (uint64, bool) {
	v, ok := h[name]
	if !ok || len(v) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(v), true
}

func (h recordHeader) str(name string) (string, bool) {
	v, ok := h[name]
	if !ok {
		return "", false
	}
	return string(v), true
}

// time decodes the legacy (sec uint32, nsec uint32) pair into nanoseconds.
func (h recordHeader) time(name string) (int64, bool) {
	v, ok := h[name]
	if !ok || len(v) != 8 {
		return 0, false
	}
	sec := int64(binary.LittleEndian.Uint32(v[0:4]))
	nsec := int64(binary.LittleEndian.Uint32(v[4:8]))
	return sec*1_000_000_000 + nsec, true
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, &rosbagerrors.Truncated{Field: "<uint32>", Need: 4, Have: 0}
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readExact(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &rosbagerrors.Truncated{Field: "<record>", Need: n, Have: 0}
	}
	return buf, nil
}

// readRecordHeader parses one u32-prefixed block of u32-prefixed
// "name=value" fields. If want is non-zero the header's own op field must
// match it.
func readRecordHeader(r io.Reader, want opCode) (recordHeader, error) {
	size, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	raw, err := readExact(r, int(size))
	if err != nil {
		return nil, err
	}
	h := recordHeader{}
	pos := 0
	for pos < len(raw) {
		if pos+4 > len(raw) {
			return nil, &rosbagerrors.BagFormat{Message: "truncated header field length"}
		}
		flen := int(binary.LittleEndian.Uint32(raw[pos:]))
		pos += 4
		if flen < 0 || pos+flen > len(raw) {
			return nil, &rosbagerrors.BagFormat{Message: "header field length exceeds record"}
		}
		field := raw[pos : pos+flen]
		pos += flen
		eq := bytes.IndexByte(field, '=')
		if eq < 0 {
			return nil, &rosbagerrors.BagFormat{Message: "header field missing '='"}
		}
		h[string(field[:eq])] = field[eq+1:]
	}
	if want != 0 {
		op, err := h.op()
		if err != nil {
			return nil, err
		}
		if op != want {
			return nil, &rosbagerrors.BagFormat{Message: "unexpected record type"}
		}
	}
	return h, nil
}

type headerField struct {
	name  string
	value []byte
}

func fieldUint32(name string, v uint32) headerField {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return headerField{name, b}
}

func fieldUint64(name string, v uint64) headerField {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return headerField{name, b}
}

func fieldString(name, v string) headerField {
	return headerField{name, []byte(v)}
}

func fieldTime(name string, nanos int64) headerField {
	sec := uint32(nanos / 1_000_000_000)
	nsec := uint32(nanos % 1_000_000_000)
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:4], sec)
	binary.LittleEndian.PutUint32(b[4:8], nsec)
	return headerField{name, b}
}

// writeRecordHeader writes one record header, tagging it with op unless op
// is zero (the second header of a CONNECTION record carries no op field).
// Returns the total number of bytes written, prefix included.
func writeRecordHeader(w io.Writer, op opCode, fields ...headerField) (int, error) {
	var data []byte
	if op != 0 {
		data = appendField(data, "op", []byte{byte(op)})
	}
	for _, f := range fields {
		data = appendField(data, f.name, f.value)
	}
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := w.Write(prefix[:]); err != nil {
		return 0, &rosbagerrors.IoError{Op: "write record header", Cause: err}
	}
	if _, err := w.Write(data); err != nil {
		return 0, &rosbagerrors.IoError{Op: "write record header", Cause: err}
	}
	return 4 + len(data), nil
}

func appendField(data []byte, name string, value []byte) []byte {
	field := append([]byte(name+"="), value...)
	var flen [4]byte
	binary.LittleEndian.PutUint32(flen[:], uint32(len(field)))
	data = append(data, flen[:]...)
	data = append(data, field...)
	return data
}

// writeDataBlock writes the generic "u32 data_len | data" half of a record.
func writeDataBlock(w io.Writer, data []byte) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(len(data)))
	if _, err := w.Write(buf[:]); err != nil {
		return &rosbagerrors.IoError{Op: "write data block", Cause: err}
	}
	if _, err := w.Write(data); err != nil {
		return &rosbagerrors.IoError{Op: "write data block", Cause: err}
	}
	return nil
}

func readDataBlock(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	return readExact(r, int(n))
}
