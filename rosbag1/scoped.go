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
	"sync"

	"github.com/dc0d/onexit"
)

// scope accumulates rollback steps during Open/Create and unwinds them on
// any mid-sequence failure; release discards the steps once the sequence
// has fully succeeded.
type scope struct {
	fns []func()
}

func (s *scope) defer_(fn func()) {
	s.fns = append(s.fns, fn)
}

func (s *scope) rollback() {
	for i := len(s.fns) - 1; i >= 0; i-- {
		s.fns[i]()
	}
	s.fns = nil
}

func (s *scope) release() {
	s.fns = nil
}

var (
	openWritersMu sync.Mutex
	openWriters   = map[*Writer]struct{}{}
)

func init() {
	onexit.Register(func() {
		openWritersMu.Lock()
		writers := make([]*Writer, 0, len(openWriters))
		for w := range openWriters {
			writers = append(writers, w)
		}
		openWritersMu.Unlock()
		for _, w := range writers {
			w.Close()
		}
	})
}

func trackWriter(w *Writer) {
	openWritersMu.Lock()
	openWriters[w] = struct{}{}
	openWritersMu.Unlock()
}

func untrackWriter(w *Writer) {
	openWritersMu.Lock()
	delete(openWriters, w)
	openWritersMu.Unlock()
}
