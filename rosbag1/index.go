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
	"container/heap"

	"github.com/google/btree"
)

// indexEntry is one message's position within a connection's index: its
// timestamp, an insertion sequence to break ties between same-timestamp
// messages, and where to find the message (which chunk, and the byte
// offset into that chunk's decompressed payload).
type indexEntry struct {
	timeNs   int64
	seq      int64
	chunkPos int64
	offset   uint32
}

func indexEntryLess(a, b indexEntry) bool {
	if a.timeNs != b.timeNs {
		return a.timeNs < b.timeNs
	}
	return a.seq < b.seq
}

// connIndex is one connection's time-ordered set of message positions,
// backed by a btree so same-timestamp entries never collide (a plain
// timestamp-keyed map would silently drop one of them).
type connIndex struct {
	tree *btree.BTreeG[indexEntry]
	next int64
}

func newConnIndex() *connIndex {
	return &connIndex{tree: btree.NewG[indexEntry](8, indexEntryLess)}
}

func (c *connIndex) add(timeNs, chunkPos int64, offset uint32) {
	c.tree.ReplaceOrInsert(indexEntry{timeNs: timeNs, seq: c.next, chunkPos: chunkPos, offset: offset})
	c.next++
}

func (c *connIndex) len() int {
	return c.tree.Len()
}

func (c *connIndex) sorted() []indexEntry {
	out := make([]indexEntry, 0, c.tree.Len())
	c.tree.Ascend(func(e indexEntry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// mergeCursor walks one connection's entries during a cross-connection
// time-ordered merge.
type mergeCursor struct {
	connID  int
	entries []indexEntry
	pos     int
}

func (c *mergeCursor) done() bool { return c.pos >= len(c.entries) }
func (c *mergeCursor) peek() indexEntry { return c.entries[c.pos] }

// cursorHeap merges multiple connections' already-sorted entries into a
// single time order. Entries compare by timestamp alone: spec.md's design
// note calls out that index-entry ordering only needs one key of what is
// conceptually a richer tuple, distinct from connIndex's own btree order
// (timestamp, insertion sequence) which exists purely to keep same-time
// entries from colliding in storage.
type cursorHeap []*mergeCursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool { return h[i].peek().timeNs < h[j].peek().timeNs }
func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) {
	*h = append(*h, x.(*mergeCursor))
}

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// newCursorHeap builds a ready-to-pop heap from connID -> sorted entries,
// omitting connections with no messages.
func newCursorHeap(entries map[int][]indexEntry) *cursorHeap {
	h := make(cursorHeap, 0, len(entries))
	for connID, e := range entries {
		if len(e) > 0 {
			h = append(h, &mergeCursor{connID: connID, entries: e})
		}
	}
	heap.Init(&h)
	return &h
}

// next pops the globally-next (connID, entry) pair, re-pushing the
// connection's cursor if it has more entries remaining.
func (h *cursorHeap) next() (int, indexEntry, bool) {
	if h.Len() == 0 {
		return 0, indexEntry{}, false
	}
	cur := (*h)[0]
	e := cur.peek()
	cur.pos++
	if cur.done() {
		heap.Pop(h)
	} else {
		heap.Fix(h, 0)
	}
	return cur.connID, e, true
}
