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

package convert

import (
	"path/filepath"
	"testing"

	"github.com/ros2go/rosbags/rosbag1"
	"github.com/ros2go/rosbags/roscore"
	"github.com/ros2go/rosbags/typesys"
)

// TestUpgradeThenDowngradeRoundTrip writes a bag-v1 with one plain and one
// latched connection on std_msgs/msg/Int8, upgrades it to bag-v2, then
// downgrades the result back to bag-v1, checking that both connections
// and both messages survive the round trip.
func TestUpgradeThenDowngradeRoundTrip(t *testing.T) {
	reg := typesys.DefaultRegistry()
	rendered, err := typesys.Render(reg, "std_msgs/msg/Int8")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.bag")

	w := rosbag1.NewWriter(srcPath, rosbag1.DefaultWriterOptions())
	if err := w.Create(); err != nil {
		t.Fatalf("Create source: %v", err)
	}
	plain, err := w.AddConnection("/plain", "std_msgs/msg/Int8", rendered.Text, rendered.MD5, nil)
	if err != nil {
		t.Fatalf("AddConnection plain: %v", err)
	}
	latched, err := w.AddConnection("/latched", "std_msgs/msg/Int8", rendered.Text, rendered.MD5, &roscore.ExtV1{Latching: true})
	if err != nil {
		t.Fatalf("AddConnection latched: %v", err)
	}
	if err := w.Write(plain, 10, []byte{0x07}); err != nil {
		t.Fatalf("write plain: %v", err)
	}
	if err := w.Write(latched, 20, []byte{0x09}); err != nil {
		t.Fatalf("write latched: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close source: %v", err)
	}

	v2Path := filepath.Join(dir, "bag_v2")
	upStats, err := Convert(reg, []string{srcPath}, v2Path)
	if err != nil {
		t.Fatalf("upgrade Convert: %v", err)
	}
	if upStats.Direction != Upgrade {
		t.Fatalf("upStats.Direction = %v, want Upgrade", upStats.Direction)
	}
	if upStats.DestinationConnections != 2 {
		t.Fatalf("upStats.DestinationConnections = %d, want 2", upStats.DestinationConnections)
	}
	if upStats.MessagesConverted != 2 {
		t.Fatalf("upStats.MessagesConverted = %d, want 2", upStats.MessagesConverted)
	}

	dstPath := filepath.Join(dir, "roundtrip.bag")
	downStats, err := Convert(reg, []string{v2Path}, dstPath)
	if err != nil {
		t.Fatalf("downgrade Convert: %v", err)
	}
	if downStats.Direction != Downgrade {
		t.Fatalf("downStats.Direction = %v, want Downgrade", downStats.Direction)
	}
	if downStats.DestinationConnections != 2 {
		t.Fatalf("downStats.DestinationConnections = %d, want 2", downStats.DestinationConnections)
	}
	if downStats.MessagesConverted != 2 {
		t.Fatalf("downStats.MessagesConverted = %d, want 2", downStats.MessagesConverted)
	}

	r := rosbag1.NewReader(dstPath)
	if err := r.Open(); err != nil {
		t.Fatalf("Open round-tripped bag: %v", err)
	}
	defer r.Close()

	var sawLatched bool
	for _, c := range r.Connections() {
		if c.Topic == "/latched" {
			if c.Ext1 == nil || !c.Ext1.Latching {
				t.Fatalf("/latched connection lost its latching flag after round trip")
			}
			sawLatched = true
		}
	}
	if !sawLatched {
		t.Fatalf("round-tripped bag has no /latched connection")
	}

	var payloads []byte
	for msg := range r.Messages(nil, 0, 0) {
		payloads = append(payloads, msg.Data...)
	}
	if len(payloads) != 2 {
		t.Fatalf("got %d payload bytes across messages, want 2", len(payloads))
	}
}

// TestConvertRefusesExistingDestination checks spec.md §7's UsageError for
// "opening into an existing destination".
func TestConvertRefusesExistingDestination(t *testing.T) {
	reg := typesys.DefaultRegistry()
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.bag")

	w := rosbag1.NewWriter(srcPath, rosbag1.DefaultWriterOptions())
	if err := w.Create(); err != nil {
		t.Fatalf("Create source: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close source: %v", err)
	}

	existingDst := filepath.Join(dir, "already-there")
	w2 := rosbag1.NewWriter(existingDst, rosbag1.DefaultWriterOptions())
	if err := w2.Create(); err != nil {
		t.Fatalf("Create existing destination: %v", err)
	}
	w2.Close()

	if _, err := Convert(reg, []string{srcPath}, existingDst); err == nil {
		t.Fatalf("Convert onto an existing destination: want error, got nil")
	}
}
