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

// chunkHeader is a CHUNK record's header plus the location of its (still
// compressed) payload; the payload itself is read lazily, on first access
// to one of its messages.
type chunkHeader struct {
	compression Compression
	dataPos     int64
	dataSize    int64
}

// readChunkHeader reads a CHUNK record's header and seeks r past its
// payload without reading it.
func readChunkHeader(r io.ReadSeeker) (chunkHeader, error) {
	h, err := readRecordHeader(r, opChunk)
	if err != nil {
		return chunkHeader{}, err
	}
	comp, _ := h.str("compression")
	size, err := readUint32(r)
	if err != nil {
		return chunkHeader{}, err
	}
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return chunkHeader{}, &rosbagerrors.IoError{Op: "tell chunk payload", Cause: err}
	}
	if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
		return chunkHeader{}, &rosbagerrors.IoError{Op: "skip chunk payload", Cause: err}
	}
	return chunkHeader{compression: Compression(comp), dataPos: pos, dataSize: int64(size)}, nil
}

// readChunkPayload reads and decompresses h's payload on demand.
func readChunkPayload(r io.ReaderAt, h chunkHeader) ([]byte, error) {
	raw := make([]byte, h.dataSize)
	if _, err := r.ReadAt(raw, h.dataPos); err != nil {
		return nil, &rosbagerrors.IoError{Op: "read chunk payload", Cause: err}
	}
	return decompressChunk(h.compression, raw)
}

// writeChunkRecord writes a CHUNK record whose data block is data, already
// compressed per the writer's configured Compression.
func writeChunkRecord(w io.Writer, compression Compression, data []byte) error {
	if _, err := writeRecordHeader(w, opChunk, fieldString("compression", string(compression))); err != nil {
		return err
	}
	return writeDataBlock(w, data)
}

// chunkInfo is a CHUNK_INFO record: the chunk's file offset, its message
// time span, and per-connection message counts.
type chunkInfo struct {
	chunkPos  int64
	startTime int64
	endTime   int64
	counts    map[int]int
}

// readChunkInfo reads one CHUNK_INFO record. Unlike the upstream reader,
// endTime is kept as the raw stored value (the last message's own
// timestamp, not an exclusive upper bound) — spec.md's literal single-bag
// scenario (two same-timestamp messages) requires EndTime() to report that
// exact timestamp, not timestamp+1; see DESIGN.md's C5 entry.
func readChunkInfo(r io.Reader) (chunkInfo, error) {
	h, err := readRecordHeader(r, opChunkInfo)
	if err != nil {
		return chunkInfo{}, err
	}
	pos, ok := h.uint64("chunk_pos")
	if !ok {
		return chunkInfo{}, &rosbagerrors.BagFormat{Message: "chunk-info missing chunk_pos"}
	}
	start, _ := h.time("start_time")
	end, _ := h.time("end_time")
	count, ok := h.uint32("count")
	if !ok {
		return chunkInfo{}, &rosbagerrors.BagFormat{Message: "chunk-info missing count"}
	}
	data, err := readDataBlock(r)
	if err != nil {
		return chunkInfo{}, err
	}
	if len(data) != int(count)*8 {
		return chunkInfo{}, &rosbagerrors.LengthMismatch{Field: "chunk-info connections", Declared: int(count) * 8, Actual: len(data)}
	}
	counts := make(map[int]int, count)
	for i := 0; i < int(count); i++ {
		off := i * 8
		connID := le32(data[off:])
		n := le32(data[off+4:])
		counts[int(connID)] = int(n)
	}
	return chunkInfo{chunkPos: int64(pos), startTime: start, endTime: end, counts: counts}, nil
}

// writeChunkInfoRecord writes a CHUNK_INFO record for the chunk at pos,
// with connIDs iterated in the given (deterministic) order.
func writeChunkInfoRecord(w io.Writer, pos int64, startTime, endTime int64, connIDs []int, counts map[int]int) error {
	_, err := writeRecordHeader(w, opChunkInfo,
		fieldUint32("ver", 1),
		fieldUint64("chunk_pos", uint64(pos)),
		fieldTime("start_time", startTime),
		fieldTime("end_time", endTime),
		fieldUint32("count", uint32(len(connIDs))),
	)
	if err != nil {
		return err
	}
	data := make([]byte, 0, len(connIDs)*8)
	for _, id := range connIDs {
		data = putLE32(data, uint32(id))
		data = putLE32(data, uint32(counts[id]))
	}
	return writeDataBlock(w, data)
}

// idxEntryWire is one (time, offset) pair as stored in an IDXDATA record.
type idxEntryWire struct {
	timeNs int64
	offset uint32
}

// readIndexData reads one IDXDATA record for a single connection. The
// upstream reader has a hand-optimized byte-offset fast path that assumes a
// fixed field layout; this port instead reuses the generic header parser,
// which is simple enough here that the byte-offset shortcut buys nothing
// (see DESIGN.md's C5 entry).
func readIndexData(r io.Reader) (connID int, entries []idxEntryWire, err error) {
	h, err := readRecordHeader(r, opIndexData)
	if err != nil {
		return 0, nil, err
	}
	conn, ok := h.uint32("conn")
	if !ok {
		return 0, nil, &rosbagerrors.BagFormat{Message: "index-data missing conn"}
	}
	count, ok := h.uint32("count")
	if !ok {
		return 0, nil, &rosbagerrors.BagFormat{Message: "index-data missing count"}
	}
	data, err := readDataBlock(r)
	if err != nil {
		return 0, nil, err
	}
	if len(data) != int(count)*12 {
		return 0, nil, &rosbagerrors.LengthMismatch{Field: "index-data entries", Declared: int(count) * 12, Actual: len(data)}
	}
	entries = make([]idxEntryWire, count)
	for i := 0; i < int(count); i++ {
		off := i * 12
		sec := le32(data[off:])
		nsec := le32(data[off+4:])
		pos := le32(data[off+8:])
		entries[i] = idxEntryWire{timeNs: int64(sec)*1_000_000_000 + int64(nsec), offset: pos}
	}
	return int(conn), entries, nil
}

// writeIndexDataRecord writes one IDXDATA record for connID's entries.
func writeIndexDataRecord(w io.Writer, connID int, entries []idxEntryWire) error {
	_, err := writeRecordHeader(w, opIndexData,
		fieldUint32("ver", 1),
		fieldUint32("conn", uint32(connID)),
		fieldUint32("count", uint32(len(entries))),
	)
	if err != nil {
		return err
	}
	data := make([]byte, 0, len(entries)*12)
	for _, e := range entries {
		sec := uint32(e.timeNs / 1_000_000_000)
		nsec := uint32(e.timeNs % 1_000_000_000)
		data = putLE32(data, sec)
		data = putLE32(data, nsec)
		data = putLE32(data, e.offset)
	}
	return writeDataBlock(w, data)
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
