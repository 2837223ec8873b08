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
	"bytes"
	"os"
	"sort"

	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/roscore"
)

// writeChunk accumulates one chunk's worth of inline records before being
// flushed; pos=-1 and start=maxInt64 are "not yet flushed" / "no messages
// yet" sentinels, mirroring the upstream writer.
type writeChunk struct {
	buf     bytes.Buffer
	pos     int64
	start   int64
	end     int64
	offsets map[int][]idxEntryWire
}

func newWriteChunk() *writeChunk {
	return &writeChunk{pos: -1, start: 1<<63 - 1, end: 0, offsets: map[int][]idxEntryWire{}}
}

// Writer creates a new bag-v1 file. Create must be called before Write or
// AddConnection; Close finalizes the index region and bag header.
type Writer struct {
	path    string
	options WriterOptions

	file        *os.File
	chunkThresh int64
	conns       []*roscore.Connection
	chunks      []*writeChunk
	cur         *writeChunk
	closed      bool
}

// NewWriter constructs a Writer for path with the given options; call
// Create to actually open it.
func NewWriter(path string, options WriterOptions) *Writer {
	return &Writer{path: path, options: options}
}

func (w *Writer) OwnerName() string { return w.path }

// Create opens path for exclusive creation and writes the placeholder bag
// header. Writing into an existing file is rejected rather than truncating
// it.
func (w *Writer) Create() error {
	if _, err := os.Stat(w.path); err == nil {
		return &rosbagerrors.UsageError{Message: "refusing to overwrite existing bag-v1 file: " + w.path}
	}
	thresh, err := w.options.chunkThreshold()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return &rosbagerrors.UsageError{Message: "refusing to overwrite existing bag-v1 file: " + w.path}
	}
	var sc scope
	sc.defer_(func() { f.Close(); os.Remove(w.path) })
	defer sc.rollback()

	if err := writeBagHeaderPlaceholder(f); err != nil {
		return err
	}

	w.file = f
	w.chunkThresh = thresh
	w.cur = newWriteChunk()
	w.chunks = append(w.chunks, w.cur)
	trackWriter(w)
	sc.release()
	return nil
}

// AddConnection registers a new connection and writes its CONNECTION
// record inline into the chunk currently being built. A connection whose
// (topic, msgtype, latching) triple duplicates an existing one is
// rejected, per roscore.Connection.DedupKeyV1.
func (w *Writer) AddConnection(topic, msgtype, msgdef, md5sum string, ext *roscore.ExtV1) (*roscore.Connection, error) {
	if w.file == nil {
		return nil, &rosbagerrors.UsageError{Message: "AddConnection called before Create"}
	}
	c := &roscore.Connection{
		ID:      len(w.conns),
		Topic:   normalizeTopic(topic),
		MsgType: msgtype,
		MsgDef:  msgdef,
		MD5Sum:  md5sum,
		Ext1:    ext,
		Owner:   w,
	}
	key := c.DedupKeyV1()
	for _, existing := range w.conns {
		if existing.DedupKeyV1() == key {
			return nil, &rosbagerrors.UsageError{Message: "duplicate connection: " + topic}
		}
	}
	if err := writeConnection(&w.cur.buf, c); err != nil {
		return nil, err
	}
	w.conns = append(w.conns, c)
	return c, nil
}

// Write appends one message for conn at timeNs. conn must have been
// returned by AddConnection on this Writer.
func (w *Writer) Write(conn *roscore.Connection, timeNs int64, data []byte) error {
	if w.file == nil {
		return &rosbagerrors.UsageError{Message: "Write called before Create"}
	}
	known := false
	for _, c := range w.conns {
		if c == conn {
			known = true
			break
		}
	}
	if !known {
		return &rosbagerrors.UsageError{Message: "Write called with a connection from a different Writer"}
	}

	chunk := w.cur
	offset := uint32(chunk.buf.Len())
	if _, err := writeRecordHeader(&chunk.buf, opMessageData,
		fieldUint32("conn", uint32(conn.ID)),
		fieldTime("time", timeNs),
	); err != nil {
		return err
	}
	if err := writeDataBlock(&chunk.buf, data); err != nil {
		return err
	}
	chunk.offsets[conn.ID] = append(chunk.offsets[conn.ID], idxEntryWire{timeNs: timeNs, offset: offset})
	if timeNs < chunk.start {
		chunk.start = timeNs
	}
	if timeNs > chunk.end {
		chunk.end = timeNs
	}

	if int64(chunk.buf.Len()) > w.chunkThresh {
		if err := w.flushChunk(chunk); err != nil {
			return err
		}
		w.cur = newWriteChunk()
		w.chunks = append(w.chunks, w.cur)
	}
	return nil
}

// flushChunk writes chunk's accumulated records as a CHUNK record followed
// by one IDXDATA record per connection, in ascending connection id order
// for determinism.
func (w *Writer) flushChunk(chunk *writeChunk) error {
	if chunk.buf.Len() == 0 {
		return nil
	}
	chunk.pos = w.tell()
	compressed, err := compressChunk(w.options.Compression, chunk.buf.Bytes())
	if err != nil {
		return err
	}
	if err := writeChunkRecord(w.file, w.options.Compression, compressed); err != nil {
		return err
	}
	for _, id := range sortedConnIDs(chunk.offsets) {
		if err := writeIndexDataRecord(w.file, id, chunk.offsets[id]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) tell() int64 {
	pos, _ := w.file.Seek(0, 1)
	return pos
}

func sortedConnIDs(m map[int][]idxEntryWire) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Close flushes any unflushed chunk, writes the index region (every
// connection record again, then one CHUNK_INFO record per flushed chunk),
// rewrites the bag header with final counts, and releases the file handle.
// Calling Close more than once is a no-op.
func (w *Writer) Close() error {
	if w.file == nil || w.closed {
		return nil
	}
	w.closed = true
	defer untrackWriter(w)

	if err := w.flushChunk(w.cur); err != nil {
		w.file.Close()
		return err
	}

	indexPos := w.tell()
	for _, c := range w.conns {
		if err := writeConnection(w.file, c); err != nil {
			w.file.Close()
			return err
		}
	}

	chunkCount := uint32(0)
	for _, chunk := range w.chunks {
		if chunk.pos == -1 {
			continue
		}
		chunkCount++
		start := chunk.start
		if start == 1<<63-1 {
			start = 0
		}
		ids := sortedConnIDs(chunk.offsets)
		counts := make(map[int]int, len(ids))
		for _, id := range ids {
			counts[id] = len(chunk.offsets[id])
		}
		if err := writeChunkInfoRecord(w.file, chunk.pos, start, chunk.end, ids, counts); err != nil {
			w.file.Close()
			return err
		}
	}

	if _, err := w.file.Seek(int64(len(magicLine)), 0); err != nil {
		w.file.Close()
		return &rosbagerrors.IoError{Op: "seek to bag header", Cause: err}
	}
	if err := writeBagHeaderRecord(w.file, uint64(indexPos), uint32(len(w.conns)), chunkCount); err != nil {
		w.file.Close()
		return err
	}

	return w.file.Close()
}
