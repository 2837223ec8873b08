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

package rosbag2

import (
	"container/heap"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/rosbaglog"
	"github.com/ros2go/rosbags/roscore"
)

const sidecarFileName = "metadata.yaml"

// shardConn maps one shard's local topic id back to the global Connection.
type shardConn struct {
	shardIdx int
	localID  int64
	conn     *roscore.Connection
}

// Reader opens one bag-v2 directory for iteration.
type Reader struct {
	Logger rosbaglog.Logger

	dir string
	sc  sidecar

	shards   []*shard
	tmpFiles []string

	conns      []*roscore.Connection
	shardConns []shardConn
}

// NewReader constructs a Reader for the bag-v2 directory dir; call Open to
// actually read it.
func NewReader(dir string) *Reader {
	return &Reader{dir: dir, Logger: rosbaglog.Noop}
}

func (r *Reader) OwnerName() string { return r.dir }

// Open parses the sidecar, opens every shard (transparently decompressing
// file-mode shards into temporary files) and builds the global connection
// list, per spec.md §4.6.
func (r *Reader) Open() error {
	sc, err := readSidecar(filepath.Join(r.dir, sidecarFileName))
	if err != nil {
		return err
	}

	var shards []*shard
	var tmpFiles []string
	var conns []*roscore.Connection
	var shardConns []shardConn

	rollback := func() {
		for _, s := range shards {
			s.close()
		}
		for _, t := range tmpFiles {
			os.Remove(t)
		}
	}

	for shardIdx, relPath := range sc.Info.RelativeFilePaths {
		path := filepath.Join(r.dir, relPath)
		openPath := path
		if CompressionMode(strings.ToLower(sc.Info.CompressionMode)) == CompressionModeFile {
			tmp, err := decompressShardFile(path)
			if err != nil {
				rollback()
				return err
			}
			tmpFiles = append(tmpFiles, tmp)
			openPath = tmp
		}
		sh, err := openShardReadOnly(openPath)
		if err != nil {
			rollback()
			return err
		}
		shards = append(shards, sh)

		topics, err := sh.topicsWithMessageCount(context.Background())
		if err != nil {
			rollback()
			return err
		}
		for _, t := range topics {
			if t.serialization != "cdr" {
				rollback()
				return &rosbagerrors.UsageError{Message: "unsupported bag-v2 serialization format: " + t.serialization}
			}
			c := &roscore.Connection{
				ID:       len(conns),
				Topic:    t.name,
				MsgType:  t.msgtype,
				MsgCount: t.messageCount,
				Ext2:     &roscore.ExtV2{SerializationFormat: t.serialization, QosProfiles: t.qosProfiles},
				Owner:    r,
			}
			conns = append(conns, c)
			shardConns = append(shardConns, shardConn{shardIdx: shardIdx, localID: t.localID, conn: c})
		}
	}

	r.sc = sc
	r.shards = shards
	r.tmpFiles = tmpFiles
	r.conns = conns
	r.shardConns = shardConns
	return nil
}

// Close releases every shard's database connection and removes any
// temporary decompressed shard files.
func (r *Reader) Close() error {
	var firstErr error
	for _, s := range r.shards {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, t := range r.tmpFiles {
		os.Remove(t)
	}
	r.shards = nil
	r.tmpFiles = nil
	return firstErr
}

func (r *Reader) Connections() []*roscore.Connection { return r.conns }

// StartTime and Duration report the sidecar's own precomputed values.
// EndTime derives from them, except for an empty bag: spec.md §9 open
// question (ii) calls for start=2^63-1, end=0, duration=0 when
// message_count==0 (the same convention rosbag1's Reader uses), and
// StartTime()+Duration() would otherwise overflow back around to the
// sentinel's own value.
func (r *Reader) StartTime() int64 { return r.sc.Info.StartingTime.NanosecondsSinceEpoch }
func (r *Reader) Duration() int64  { return r.sc.Info.Duration.Nanoseconds }
func (r *Reader) EndTime() int64 {
	if r.sc.Info.MessageCount == 0 {
		return 0
	}
	return r.StartTime() + r.Duration()
}
func (r *Reader) MessageCount() int { return r.sc.Info.MessageCount }

// TopicSummaries groups connections by topic name, collapsing msgtype/md5
// to the empty string when connections sharing a topic disagree (a bag-v2
// shard never repeats a topic name across shards in this port, so this is
// typically one summary per connection).
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
		cs := byTopic[topic]
		s := roscore.TopicSummary{Name: topic, Connections: len(cs), MsgType: cs[0].MsgType}
		for _, c := range cs[1:] {
			if c.MsgType != s.MsgType {
				s.MsgType = ""
			}
		}
		for _, c := range cs {
			s.MessageCount += c.MsgCount
		}
		out = append(out, s)
	}
	return out
}

// rowCursor streams one shard's query results for the merge below.
type rowCursor struct {
	rows    *sql.Rows
	shardIdx int
	have    bool
	topicID int64
	ts      int64
	data    []byte
}

func (c *rowCursor) advance() error {
	if !c.rows.Next() {
		c.have = false
		return c.rows.Err()
	}
	if err := c.rows.Scan(&c.topicID, &c.ts, &c.data); err != nil {
		return err
	}
	c.have = true
	return nil
}

type cursorRowHeap []*rowCursor

func (h cursorRowHeap) Len() int            { return len(h) }
func (h cursorRowHeap) Less(i, j int) bool  { return h[i].ts < h[j].ts }
func (h cursorRowHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *cursorRowHeap) Push(x any)         { *h = append(*h, x.(*rowCursor)) }
func (h *cursorRowHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Messages streams every message from the given connections (all
// connections if conns is empty) in timestamp order, restricted to
// [start, stop) when either bound is non-zero.
func (r *Reader) Messages(conns []*roscore.Connection, start, stop int64) <-chan *roscore.Message {
	out := make(chan *roscore.Message, 64)
	if len(conns) == 0 {
		conns = r.conns
	}
	wanted := map[*roscore.Connection]bool{}
	for _, c := range conns {
		wanted[c] = true
	}

	byShardConn := map[int]map[int64]*roscore.Connection{}
	topicIDsByShard := map[int][]int64{}
	for _, sc := range r.shardConns {
		if !wanted[sc.conn] {
			continue
		}
		if byShardConn[sc.shardIdx] == nil {
			byShardConn[sc.shardIdx] = map[int64]*roscore.Connection{}
		}
		byShardConn[sc.shardIdx][sc.localID] = sc.conn
		topicIDsByShard[sc.shardIdx] = append(topicIDsByShard[sc.shardIdx], sc.localID)
	}

	go func() {
		defer close(out)
		ctx := context.Background()
		var cursors []*rowCursor
		var rowsList []*sql.Rows
		for shardIdx, ids := range topicIDsByShard {
			rows, err := r.shards[shardIdx].queryMessages(ctx, ids, start, stop)
			if err != nil {
				r.Logger.Printf("rosbag2: shard query failed: %v", err)
				continue
			}
			rowsList = append(rowsList, rows)
			c := &rowCursor{rows: rows, shardIdx: shardIdx}
			if err := c.advance(); err != nil {
				r.Logger.Printf("rosbag2: shard row scan failed: %v", err)
				continue
			}
			if c.have {
				cursors = append(cursors, c)
			}
		}
		defer func() {
			for _, rows := range rowsList {
				rows.Close()
			}
		}()

		h := cursorRowHeap(cursors)
		heap.Init(&h)
		for h.Len() > 0 {
			top := h[0]
			conn := byShardConn[top.shardIdx][top.topicID]
			data := top.data
			if CompressionMode(strings.ToLower(r.sc.Info.CompressionMode)) == CompressionModeMessage {
				decoded, err := decompressMessage(data)
				if err != nil {
					r.Logger.Printf("rosbag2: skipping unreadable message: %v", err)
				} else {
					data = decoded
				}
			}
			ts := top.ts
			out <- &roscore.Message{Connection: conn, TimeNs: ts, Data: data}

			if err := top.advance(); err != nil {
				r.Logger.Printf("rosbag2: shard row scan failed: %v", err)
				heap.Pop(&h)
				continue
			}
			if top.have {
				heap.Fix(&h, 0)
			} else {
				heap.Pop(&h)
			}
		}
	}()
	return out
}
