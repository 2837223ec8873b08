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

package rosbag1

import (
	"io"

	"github.com/ros2go/rosbags/rosbagerrors"
)

const (
	magicLine = "#ROSBAG V2.0\n"

	// bagHeaderRecordSpan is the fixed span (in bytes, magic line excluded)
	// the bag-header record always occupies, padding absorbing the slack
	// between its real field count and this budget so the writer can seek
	// back and patch it in place once the index position is known.
	bagHeaderRecordSpan = 4096
)

// writeBagHeaderPlaceholder writes the magic line followed by a zeroed
// bag-header record occupying exactly bagHeaderRecordSpan bytes.
func writeBagHeaderPlaceholder(w io.Writer) error {
	if _, err := io.WriteString(w, magicLine); err != nil {
		return &rosbagerrors.IoError{Op: "write magic line", Cause: err}
	}
	return writeBagHeaderRecord(w, 0, 0, 0)
}

// writeBagHeaderRecord writes the BAGHEADER record: its own header plus a
// data block padded out so the record occupies bagHeaderRecordSpan bytes.
func writeBagHeaderRecord(w io.Writer, indexPos uint64, connCount, chunkCount uint32) error {
	size, err := writeRecordHeader(w, opBagHeader,
		fieldUint64("index_pos", indexPos),
		fieldUint32("conn_count", connCount),
		fieldUint32("chunk_count", chunkCount),
	)
	if err != nil {
		return err
	}
	pad := bagHeaderRecordSpan - 4 - size
	if pad < 0 {
		return &rosbagerrors.BagFormat{Message: "bag-header record exceeds reserved span"}
	}
	return writeDataBlock(w, make([]byte, pad))
}

// readBagHeader reads the magic line and the BAGHEADER record, rejecting
// encrypted or unindexed bags (spec.md §9 open question: encrypted bag-v1
// files are out of scope, not silently misread).
func readBagHeader(r io.Reader) (indexPos uint64, connCount, chunkCount uint32, err error) {
	magic, err := readExact(r, len(magicLine))
	if err != nil {
		return 0, 0, 0, err
	}
	if string(magic) != magicLine {
		return 0, 0, 0, &rosbagerrors.BagFormat{Message: "not a bag-v1 file: bad magic line"}
	}
	h, err := readRecordHeader(r, opBagHeader)
	if err != nil {
		return 0, 0, 0, err
	}
	if _, err := readDataBlock(r); err != nil {
		return 0, 0, 0, err
	}
	if enc, ok := h.str("encryptor"); ok && enc != "" {
		return 0, 0, 0, &rosbagerrors.BagFormat{Message: "encrypted bag-v1 files are not supported"}
	}
	indexPos, ok := h.uint64("index_pos")
	if !ok {
		return 0, 0, 0, &rosbagerrors.BagFormat{Message: "bag-header missing index_pos"}
	}
	if indexPos == 0 {
		return 0, 0, 0, &rosbagerrors.BagFormat{Message: "bag is not indexed"}
	}
	connCount, _ = h.uint32("conn_count")
	chunkCount, _ = h.uint32("chunk_count")
	return indexPos, connCount, chunkCount, nil
}
