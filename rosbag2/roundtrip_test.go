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
	"path/filepath"
	"testing"
)

// TestWriterReaderRoundTripScenario5 implements spec.md §8 scenario 5: one
// connection /test:std_msgs/msg/Int8, two messages (t=42, 1-byte payload)
// and (t=666, 4096-byte payload); the reader must report duration==625,
// start==42, message_count==2, and iterate the two messages in order with
// their original lengths intact.
func TestWriterReaderRoundTripScenario5(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bag")

	w := NewWriter(dir, DefaultWriterOptions())
	if err := w.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	conn, err := w.AddConnection("/test", "std_msgs/msg/Int8", "cdr", "")
	if err != nil {
		t.Fatalf("AddConnection: %v", err)
	}
	if err := w.Write(conn, 42, []byte{0x00}); err != nil {
		t.Fatalf("Write first message: %v", err)
	}
	if err := w.Write(conn, 666, make([]byte, 4096)); err != nil {
		t.Fatalf("Write second message: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(dir)
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
	if got := r.Duration(); got != 625 {
		t.Fatalf("Duration() = %d, want 625", got)
	}

	var got []struct {
		ts  int64
		len int
	}
	for msg := range r.Messages(nil, 0, 0) {
		got = append(got, struct {
			ts  int64
			len int
		}{msg.TimeNs, len(msg.Data)})
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].ts != 42 || got[0].len != 1 {
		t.Fatalf("message 0 = %+v, want ts=42 len=1", got[0])
	}
	if got[1].ts != 666 || got[1].len != 4096 {
		t.Fatalf("message 1 = %+v, want ts=666 len=4096", got[1])
	}
}

// TestWriterRejectsExistingDirectory mirrors rosbag1's equivalent
// exclusivity check at the directory level.
func TestWriterRejectsExistingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bag")
	w := NewWriter(dir, DefaultWriterOptions())
	if err := w.Create(); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	w.Close()

	w2 := NewWriter(dir, DefaultWriterOptions())
	if err := w2.Create(); err == nil {
		t.Fatalf("second Create over existing directory: want error, got nil")
	}
}

// TestWriterRejectsDuplicateConnection checks the broader (topic, msgtype,
// serialization, qos) equality key bag-v2 uses instead of bag-v1's
// DedupKeyV1.
func TestWriterRejectsDuplicateConnection(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bag")
	w := NewWriter(dir, DefaultWriterOptions())
	if err := w.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()

	if _, err := w.AddConnection("/test", "std_msgs/msg/Int8", "cdr", ""); err != nil {
		t.Fatalf("first AddConnection: %v", err)
	}
	if _, err := w.AddConnection("/test", "std_msgs/msg/Int8", "cdr", ""); err == nil {
		t.Fatalf("duplicate AddConnection: want error, got nil")
	}
}

// TestEmptyBagConventions checks spec.md §9 open question (ii): an empty
// bag-v2 reports start=2^63-1, end=0, duration=0.
func TestEmptyBagConventions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bag")
	w := NewWriter(dir, DefaultWriterOptions())
	if err := w.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.AddConnection("/test", "std_msgs/msg/Int8", "cdr", ""); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(dir)
	if err := r.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if got := r.MessageCount(); got != 0 {
		t.Fatalf("MessageCount() = %d, want 0", got)
	}
	if got, want := r.StartTime(), int64(1<<63-1); got != want {
		t.Fatalf("StartTime() = %d, want %d", got, want)
	}
	if got := r.EndTime(); got != 0 {
		t.Fatalf("EndTime() = %d, want 0", got)
	}
	if got := r.Duration(); got != 0 {
		t.Fatalf("Duration() = %d, want 0", got)
	}
}

// TestFileModeCompressionRoundTrip checks that a file-compressed shard is
// transparently decompressed on open and yields the same messages as an
// uncompressed bag.
func TestFileModeCompressionRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bag")
	w := NewWriter(dir, WriterOptions{CompressionMode: CompressionModeFile})
	if err := w.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	conn, err := w.AddConnection("/test", "std_msgs/msg/Int8", "cdr", "")
	if err != nil {
		t.Fatalf("AddConnection: %v", err)
	}
	if err := w.Write(conn, 1, []byte{0x01}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(dir)
	if err := r.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	var count int
	for range r.Messages(nil, 0, 0) {
		count++
	}
	if count != 1 {
		t.Fatalf("got %d messages from a file-compressed bag, want 1", count)
	}
}
