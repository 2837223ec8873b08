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

	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/rosbaglog"
	"github.com/ros2go/rosbags/roscore"
	"github.com/ros2go/rosbags/typesys"
)

// Reader opens one bag-v1 file for iteration. Open must be called before
// any other method; Close releases the underlying file handle.
type Reader struct {
	Logger rosbaglog.Logger

	path string
	file *os.File

	conns []*roscore.Connection
	byID  map[int]*roscore.Connection

	chunkHeaders []chunkHeader
	infos        []chunkInfo
	indexes      map[int]*connIndex

	residentChunk int
	residentData  []byte
}

// NewReader constructs a Reader for path; call Open to actually read it.
func NewReader(path string) *Reader {
	return &Reader{path: path, Logger: rosbaglog.Noop, residentChunk: -1}
}

func (r *Reader) OwnerName() string { return r.path }

// Open reads the bag's header, connection records, chunk-info records and
// per-connection indexes, per spec.md §4.5. Any failure leaves no open file
// handle behind.
func (r *Reader) Open() error {
	f, err := os.Open(r.path)
	if err != nil {
		return &rosbagerrors.IoError{Op: "open bag-v1 file", Cause: err}
	}
	var sc scope
	sc.defer_(func() { f.Close() })
	defer sc.rollback()

	indexPos, connCount, chunkCount, err := readBagHeader(f)
	if err != nil {
		return err
	}

	if _, err := f.Seek(int64(indexPos), 0); err != nil {
		return &rosbagerrors.IoError{Op: "seek to index region", Cause: err}
	}

	conns := make([]*roscore.Connection, 0, connCount)
	byID := make(map[int]*roscore.Connection, connCount)
	for i := uint32(0); i < connCount; i++ {
		c, err := readConnection(f, r)
		if err != nil {
			return err
		}
		conns = append(conns, c)
		byID[c.ID] = c
	}

	infos := make([]chunkInfo, 0, chunkCount)
	chunkHeaders := make([]chunkHeader, 0, chunkCount)
	indexes := make(map[int]*connIndex, connCount)
	for i := uint32(0); i < chunkCount; i++ {
		info, err := readChunkInfo(f)
		if err != nil {
			return err
		}
		if _, err := f.Seek(info.chunkPos, 0); err != nil {
			return &rosbagerrors.IoError{Op: "seek to chunk", Cause: err}
		}
		ch, err := readChunkHeader(f)
		if err != nil {
			return err
		}
		for j := 0; j < len(info.counts); j++ {
			connID, entries, err := readIndexData(f)
			if err != nil {
				return err
			}
			idx, ok := indexes[connID]
			if !ok {
				idx = newConnIndex()
				indexes[connID] = idx
			}
			for _, e := range entries {
				idx.add(e.timeNs, info.chunkPos, e.offset)
			}
		}
		infos = append(infos, info)
		chunkHeaders = append(chunkHeaders, ch)
	}

	for _, c := range conns {
		if idx, ok := indexes[c.ID]; ok {
			c.MsgCount = idx.len()
		}
	}

	r.file = f
	r.conns = conns
	r.byID = byID
	r.infos = infos
	r.chunkHeaders = chunkHeaders
	r.indexes = indexes
	sc.release()
	return nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Connections returns every connection recorded in the bag's index region.
func (r *Reader) Connections() []*roscore.Connection {
	return r.conns
}

// StartTime, EndTime, Duration and MessageCount answer spec.md §9's empty-bag
// convention: a bag with no chunks reports start=2^63-1, end=0, duration=0.
//
// EndTime reports the raw maximum chunk end_ns as stored (not an exclusive
// upper bound); see chunk.go's readChunkInfo doc comment.
func (r *Reader) StartTime() int64 {
	if len(r.infos) == 0 {
		return 1<<63 - 1
	}
	start := r.infos[0].startTime
	for _, ci := range r.infos[1:] {
		if ci.startTime < start {
			start = ci.startTime
		}
	}
	return start
}

func (r *Reader) EndTime() int64 {
	if len(r.infos) == 0 {
		return 0
	}
	end := r.infos[0].endTime
	for _, ci := range r.infos[1:] {
		if ci.endTime > end {
			end = ci.endTime
		}
	}
	return end
}

func (r *Reader) Duration() int64 {
	if len(r.infos) == 0 {
		return 0
	}
	return r.EndTime() - r.StartTime()
}

func (r *Reader) MessageCount() int {
	total := 0
	for _, c := range r.conns {
		total += c.MsgCount
	}
	return total
}

// TopicSummaries groups connections by topic, collapsing msgtype/msgdef/md5
// to the empty string when connections sharing a topic disagree.
func (r *Reader) TopicSummaries() []roscore.TopicSummary {
	byTopic := map[string][]*roscore.Connection{}
	order := []string{}
	for _, c := range r.conns {
		if _, ok := byTopic[c.Topic]; !ok {
			order = append(order, c.Topic)
		}
		byTopic[c.Topic] = append(byTopic[c.Topic], c)
	}
	out := make([]roscore.TopicSummary, 0, len(order))
	for _, topic := range order {
		conns := byTopic[topic]
		s := roscore.TopicSummary{Name: topic, Connections: len(conns)}
		s.MsgType = conns[0].MsgType
		s.MsgDef = conns[0].MsgDef
		s.MD5Sum = conns[0].MD5Sum
		for _, c := range conns[1:] {
			if c.MsgType != s.MsgType {
				s.MsgType = ""
			}
			if c.MsgDef != s.MsgDef {
				s.MsgDef = ""
			}
			if c.MD5Sum != s.MD5Sum {
				s.MD5Sum = ""
			}
		}
		for _, c := range conns {
			s.MessageCount += c.MsgCount
		}
		out = append(out, s)
	}
	return out
}

// RegisterSchemas parses every connection's embedded .msg text and adds it
// to reg, skipping types already present.
func (r *Reader) RegisterSchemas(reg *typesys.Registry) error {
	for _, c := range r.conns {
		if _, ok := reg.Lookup(c.MsgType); ok {
			continue
		}
		schemas, err := typesys.ParseMsg(c.MsgDef, c.MsgType)
		if err != nil {
			return err
		}
		if err := reg.RegisterAll(schemas); err != nil {
			return err
		}
	}
	return nil
}

// Messages streams every message from the given connections (all
// connections if conns is empty) in non-decreasing timestamp order,
// restricted to [start, stop) when either bound is non-zero. The returned
// channel is closed once iteration completes or the bag is exhausted.
func (r *Reader) Messages(conns []*roscore.Connection, start, stop int64) <-chan *roscore.Message {
	out := make(chan *roscore.Message, 64)
	if len(conns) == 0 {
		conns = r.conns
	}
	entries := make(map[int][]indexEntry, len(conns))
	for _, c := range conns {
		if idx, ok := r.indexes[c.ID]; ok {
			entries[c.ID] = idx.sorted()
		}
	}
	go func() {
		defer close(out)
		h := newCursorHeap(entries)
		for {
			connID, e, ok := h.next()
			if !ok {
				return
			}
			if start != 0 && e.timeNs < start {
				continue
			}
			if stop != 0 && e.timeNs >= stop {
				return
			}
			data, err := r.readMessageAt(e.chunkPos, e.offset)
			if err != nil {
				r.Logger.Printf("rosbag1: skipping unreadable message: %v", err)
				continue
			}
			out <- &roscore.Message{Connection: r.byID[connID], TimeNs: e.timeNs, Data: data}
		}
	}()
	return out
}

// ensureResident decompresses the chunk at chunkPos into memory, caching
// the most recently used chunk since consecutive index entries usually
// share a chunk.
func (r *Reader) ensureResident(chunkPos int64) ([]byte, error) {
	if r.residentChunk == int(chunkPos) && r.residentData != nil {
		return r.residentData, nil
	}
	idx := -1
	for i, info := range r.infos {
		if info.chunkPos == chunkPos {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &rosbagerrors.BagFormat{Message: "message references unknown chunk"}
	}
	data, err := readChunkPayload(r.file, r.chunkHeaders[idx])
	if err != nil {
		return nil, err
	}
	r.residentChunk = int(chunkPos)
	r.residentData = data
	return data, nil
}

func (r *Reader) readMessageAt(chunkPos int64, offset uint32) ([]byte, error) {
	data, err := r.ensureResident(chunkPos)
	if err != nil {
		return nil, err
	}
	if int(offset) > len(data) {
		return nil, &rosbagerrors.Truncated{Field: "message offset", Need: int(offset), Have: len(data)}
	}
	buf := bytes.NewReader(data[offset:])
	if _, err := readRecordHeader(buf, opMessageData); err != nil {
		return nil, err
	}
	payload, err := readDataBlock(buf)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}
