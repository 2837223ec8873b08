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
	"path/filepath"
	"testing"

	"github.com/ros2go/rosbags/roscore"
)

// Scenario 4: two connections on /foo (one plain, one latched), one
// Int8 message each at t=42; reader must yield exactly two messages in
// order with message_count==2 and start_time==end_time==42ns.
func TestWriterReaderRoundTripScenario4(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario4.bag")

	w := NewWriter(path, DefaultWriterOptions())
	if err := w.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	plain, err := w.AddConnection("/foo", "std_msgs/msg/Int8", "int8 data\n", "27ffa0c9c4b8fb8492252bcad9e5c57b", &roscore.ExtV1{})
	if err != nil {
		t.Fatalf("AddConnection plain: %v", err)
	}
	latched, err := w.AddConnection("/foo", "std_msgs/msg/Int8", "int8 data\n", "27ffa0c9c4b8fb8492252bcad9e5c57b", &roscore.ExtV1{Latching: true})
	if err != nil {
		t.Fatalf("AddConnection latched: %v", err)
	}
	if err := w.Write(plain, 42, []byte{7}); err != nil {
		t.Fatalf("Write plain: %v", err)
	}
	if err := w.Write(latched, 42, []byte{9}); err != nil {
		t.Fatalf("Write latched: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(path)
	if err := r.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if got := r.MessageCount(); got != 2 {
		t.Fatalf("MessageCount() = %d, want 2", got)
	}
	if got := r.StartTime(); got != 42 {
		t.Fatalf("StartTime() = %d, want 42", got)
	}
	if got := r.EndTime(); got != 42 {
		t.Fatalf("EndTime() = %d, want 42", got)
	}

	var msgs []*roscore.Message
	for m := range r.Messages(nil, 0, 0) {
		msgs = append(msgs, m)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	for _, m := range msgs {
		if m.TimeNs != 42 {
			t.Fatalf("message time = %d, want 42", m.TimeNs)
		}
	}
	if msgs[0].TimeNs > msgs[1].TimeNs {
		t.Fatalf("messages not in non-decreasing timestamp order")
	}
}

func TestWriterRejectsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exists.bag")
	w1 := NewWriter(path, DefaultWriterOptions())
	if err := w1.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w2 := NewWriter(path, DefaultWriterOptions())
	if err := w2.Create(); err == nil {
		t.Fatalf("Create over existing file: want error, got nil")
	}
}

func TestWriterRejectsDuplicateConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.bag")
	w := NewWriter(path, DefaultWriterOptions())
	if err := w.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()

	if _, err := w.AddConnection("/foo", "std_msgs/msg/Int8", "int8 data\n", "27ffa0c9c4b8fb8492252bcad9e5c57b", &roscore.ExtV1{}); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}
	if _, err := w.AddConnection("/foo", "std_msgs/msg/Int8", "int8 data\n", "27ffa0c9c4b8fb8492252bcad9e5c57b", &roscore.ExtV1{}); err == nil {
		t.Fatalf("duplicate AddConnection: want error, got nil")
	}
}

func TestEmptyBagConventions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bag")
	w := NewWriter(path, DefaultWriterOptions())
	if err := w.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(path)
	if err := r.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if got := r.StartTime(); got != 1<<63-1 {
		t.Fatalf("StartTime() on empty bag = %d, want 2^63-1", got)
	}
	if got := r.EndTime(); got != 0 {
		t.Fatalf("EndTime() on empty bag = %d, want 0", got)
	}
	if got := r.Duration(); got != 0 {
		t.Fatalf("Duration() on empty bag = %d, want 0", got)
	}
}
