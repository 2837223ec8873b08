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

package highlevel

import (
	"path/filepath"
	"testing"

	"github.com/ros2go/rosbags/rosbag1"
)

func writeV1Bag(t *testing.T, path string, topic string, times []int64) {
	t.Helper()
	w := rosbag1.NewWriter(path, rosbag1.DefaultWriterOptions())
	if err := w.Create(); err != nil {
		t.Fatalf("Create(%s): %v", path, err)
	}
	conn, err := w.AddConnection(topic, "std_msgs/msg/Int8", "uint8 data\n", "da5909fbe378aeaf85e547e830cc1bb7", nil)
	if err != nil {
		t.Fatalf("AddConnection(%s): %v", path, err)
	}
	for _, ts := range times {
		if err := w.Write(conn, ts, []byte{0x00}); err != nil {
			t.Fatalf("Write(%s, %d): %v", path, ts, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close(%s): %v", path, err)
	}
}

// TestUnifiedReaderScenario6 implements spec.md §8 scenario 6: merging
// three bag-v1 files yields timestamps 1,2,5,9,15 in order, with
// message_count==5, duration==15, start_time==1, end_time==16.
func TestUnifiedReaderScenario6(t *testing.T) {
	dir := t.TempDir()
	bag1 := filepath.Join(dir, "bag1.bag")
	bag2 := filepath.Join(dir, "bag2.bag")
	bag3 := filepath.Join(dir, "bag3.bag")

	w1 := rosbag1.NewWriter(bag1, rosbag1.DefaultWriterOptions())
	if err := w1.Create(); err != nil {
		t.Fatalf("Create bag1: %v", err)
	}
	c1Topic1, err := w1.AddConnection("/topic1", "std_msgs/msg/Int8", "uint8 data\n", "da5909fbe378aeaf85e547e830cc1bb7", nil)
	if err != nil {
		t.Fatalf("AddConnection /topic1 in bag1: %v", err)
	}
	c1Topic2, err := w1.AddConnection("/topic2", "std_msgs/msg/Int8", "uint8 data\n", "da5909fbe378aeaf85e547e830cc1bb7", nil)
	if err != nil {
		t.Fatalf("AddConnection /topic2 in bag1: %v", err)
	}
	if err := w1.Write(c1Topic1, 1, []byte{0x00}); err != nil {
		t.Fatalf("write t=1: %v", err)
	}
	if err := w1.Write(c1Topic2, 2, []byte{0x00}); err != nil {
		t.Fatalf("write t=2: %v", err)
	}
	if err := w1.Write(c1Topic1, 9, []byte{0x00}); err != nil {
		t.Fatalf("write t=9: %v", err)
	}
	if err := w1.Close(); err != nil {
		t.Fatalf("Close bag1: %v", err)
	}

	writeV1Bag(t, bag2, "/topic1", []int64{5})
	writeV1Bag(t, bag3, "/topic2", []int64{15})

	r := NewAnyReader(nil, bag1, bag2, bag3)
	if err := r.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if got := r.MessageCount(); got != 5 {
		t.Fatalf("MessageCount() = %d, want 5", got)
	}
	if got := r.StartTime(); got != 1 {
		t.Fatalf("StartTime() = %d, want 1", got)
	}
	if got := r.EndTime(); got != 16 {
		t.Fatalf("EndTime() = %d, want 16", got)
	}
	if got := r.Duration(); got != 15 {
		t.Fatalf("Duration() = %d, want 15", got)
	}

	var got []int64
	for msg := range r.Messages(nil, 0, 0) {
		got = append(got, msg.TimeNs)
	}
	want := []int64{1, 2, 5, 9, 15}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
