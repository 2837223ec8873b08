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

// Package highlevel provides AnyReader, the single entry point that hides
// whether a recording is a bag-v1 file set or a bag-v2 directory (spec.md
// §4.7).
package highlevel

import (
	"container/heap"
	"os"
	"path/filepath"

	"github.com/ros2go/rosbags/rosbag1"
	"github.com/ros2go/rosbags/rosbag2"
	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/rosbaglog"
	"github.com/ros2go/rosbags/roscore"
	"github.com/ros2go/rosbags/typesys"
)

// backend is the subset of rosbag1.Reader's and rosbag2.Reader's surface
// AnyReader needs; both satisfy it without any adapter.
type backend interface {
	Close() error
	Connections() []*roscore.Connection
	StartTime() int64
	EndTime() int64
	Duration() int64
	MessageCount() int
	TopicSummaries() []roscore.TopicSummary
	Messages(conns []*roscore.Connection, start, stop int64) <-chan *roscore.Message
}

const sentinelStart = int64(1<<63 - 1)

// AnyReader opens one bag-v2 directory or one-or-more bag-v1 files and
// presents them as a single merged recording.
type AnyReader struct {
	Logger   rosbaglog.Logger
	Registry *typesys.Registry

	paths    []string
	isV2     bool
	backends []backend
	conns    []*roscore.Connection
}

// NewAnyReader constructs an AnyReader over paths. reg receives bag-v1
// embedded schemas on Open; pass nil to use typesys.DefaultRegistry().
func NewAnyReader(reg *typesys.Registry, paths ...string) *AnyReader {
	if reg == nil {
		reg = typesys.DefaultRegistry()
	}
	return &AnyReader{Logger: rosbaglog.Noop, Registry: reg, paths: paths}
}

// Open dispatches to a single bag-v2 reader when given exactly one
// directory containing metadata.yaml, otherwise opens every path as a
// bag-v1 file. Opening more than one bag-v2 directory is rejected.
func (a *AnyReader) Open() error {
	if len(a.paths) == 0 {
		return &rosbagerrors.UsageError{Message: "AnyReader needs at least one path"}
	}
	if len(a.paths) == 1 {
		info, err := os.Stat(a.paths[0])
		if err != nil {
			return &rosbagerrors.IoError{Op: "stat bag path", Cause: err}
		}
		if info.IsDir() {
			return a.openV2(a.paths[0])
		}
	}
	return a.openV1(a.paths)
}

func (a *AnyReader) openV2(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "metadata.yaml")); err != nil {
		return &rosbagerrors.UsageError{Message: "directory is not a bag-v2 recording: " + dir}
	}
	r := rosbag2.NewReader(dir)
	r.Logger = a.Logger
	if err := r.Open(); err != nil {
		return err
	}
	a.isV2 = true
	a.backends = []backend{r}
	a.conns = append([]*roscore.Connection(nil), r.Connections()...)
	return nil
}

func (a *AnyReader) openV1(paths []string) error {
	var backends []backend
	var conns []*roscore.Connection
	rollback := func() {
		for _, b := range backends {
			b.Close()
		}
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			rollback()
			return &rosbagerrors.UsageError{Message: "opening multiple bag-v2 recordings is disallowed: " + p}
		}
		r := rosbag1.NewReader(p)
		r.Logger = a.Logger
		if err := r.Open(); err != nil {
			rollback()
			return err
		}
		if err := r.RegisterSchemas(a.Registry); err != nil {
			r.Close()
			rollback()
			return err
		}
		backends = append(backends, r)
		conns = append(conns, r.Connections()...)
	}
	a.isV2 = false
	a.backends = backends
	a.conns = conns
	return nil
}

// Close releases every underlying reader.
func (a *AnyReader) Close() error {
	var firstErr error
	for _, b := range a.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.backends = nil
	return firstErr
}

// Connections returns the flat, owner-tagged connection list across every
// underlying reader.
func (a *AnyReader) Connections() []*roscore.Connection { return a.conns }

// MessageCount sums every underlying reader's count.
func (a *AnyReader) MessageCount() int {
	total := 0
	for _, b := range a.backends {
		total += b.MessageCount()
	}
	return total
}

// StartTime is the minimum non-empty underlying start time, or the 2^63-1
// sentinel if nothing has been written anywhere.
func (a *AnyReader) StartTime() int64 {
	if a.isV2 {
		if len(a.backends) == 0 {
			return sentinelStart
		}
		return a.backends[0].StartTime()
	}
	min := sentinelStart
	any := false
	for _, b := range a.backends {
		if b.MessageCount() == 0 {
			continue
		}
		any = true
		if s := b.StartTime(); s < min {
			min = s
		}
	}
	if !any {
		return sentinelStart
	}
	return min
}

// EndTime and Duration report the bag-v2 backend's own value verbatim (it
// already applies the exclusive-upper-bound "+1" at the shard layer); for
// a bag-v1 file set, EndTime aggregates the raw per-file maxima (each
// rosbag1.Reader.EndTime is the literal stored timestamp, not +1 — see
// rosbag1's own doc comments) and applies the "+1" exactly once here, at
// the unified-reader layer, matching spec.md §8 scenario 6.
func (a *AnyReader) EndTime() int64 {
	if a.isV2 {
		if len(a.backends) == 0 {
			return 0
		}
		return a.backends[0].EndTime()
	}
	rawMax, any := int64(0), false
	for _, b := range a.backends {
		if b.MessageCount() == 0 {
			continue
		}
		any = true
		if e := b.EndTime(); e > rawMax {
			rawMax = e
		}
	}
	if !any {
		return 0
	}
	return rawMax + 1
}

func (a *AnyReader) Duration() int64 {
	if a.MessageCount() == 0 {
		return 0
	}
	return a.EndTime() - a.StartTime()
}

// TopicSummaries groups connections by topic name, summing message counts
// and collapsing msgtype to the empty string on disagreement (spec.md
// §4.7).
func (a *AnyReader) TopicSummaries() []roscore.TopicSummary {
	if a.isV2 {
		if len(a.backends) == 0 {
			return nil
		}
		return a.backends[0].TopicSummaries()
	}
	byTopic := map[string]*roscore.TopicSummary{}
	var order []string
	for _, c := range a.conns {
		s, ok := byTopic[c.Topic]
		if !ok {
			s = &roscore.TopicSummary{Name: c.Topic, MsgType: c.MsgType}
			byTopic[c.Topic] = s
			order = append(order, c.Topic)
		} else if s.MsgType != c.MsgType {
			s.MsgType = ""
		}
		s.Connections++
		s.MessageCount += c.MsgCount
	}
	out := make([]roscore.TopicSummary, 0, len(order))
	for _, topic := range order {
		out = append(out, *byTopic[topic])
	}
	return out
}

// msgCursor is one backend's pending head message for the merge below.
type msgCursor struct {
	order int
	ch    <-chan *roscore.Message
	msg   *roscore.Message
}

type msgHeap []*msgCursor

func (h msgHeap) Len() int { return len(h) }
func (h msgHeap) Less(i, j int) bool {
	if h[i].msg.TimeNs != h[j].msg.TimeNs {
		return h[i].msg.TimeNs < h[j].msg.TimeNs
	}
	return h[i].order < h[j].order
}
func (h msgHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *msgHeap) Push(x any)   { *h = append(*h, x.(*msgCursor)) }
func (h *msgHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Messages merges every underlying reader's iterator by timestamp, ties
// broken by iterator order (spec.md §5). When conns is non-empty, it is
// grouped by owner and each owner's subset is delegated to that owner's
// own Messages call before the external merge.
func (a *AnyReader) Messages(conns []*roscore.Connection, start, stop int64) <-chan *roscore.Message {
	out := make(chan *roscore.Message, 64)

	byOwner := map[backend][]*roscore.Connection{}
	if len(conns) == 0 {
		for _, c := range a.conns {
			owner, _ := c.Owner.(backend)
			byOwner[owner] = append(byOwner[owner], c)
		}
	} else {
		for _, c := range conns {
			owner, _ := c.Owner.(backend)
			byOwner[owner] = append(byOwner[owner], c)
		}
	}

	go func() {
		defer close(out)
		var cursors []*msgCursor
		order := 0
		for _, b := range a.backends {
			want := byOwner[b]
			if len(want) == 0 {
				continue
			}
			ch := b.Messages(want, start, stop)
			msg, ok := <-ch
			if !ok {
				continue
			}
			cursors = append(cursors, &msgCursor{order: order, ch: ch, msg: msg})
			order++
		}

		h := msgHeap(cursors)
		heap.Init(&h)
		for h.Len() > 0 {
			top := h[0]
			out <- top.msg
			next, ok := <-top.ch
			if !ok {
				heap.Pop(&h)
				continue
			}
			top.msg = next
			heap.Fix(&h, 0)
		}
	}()
	return out
}
