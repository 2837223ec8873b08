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
	"os"
	"strings"

	"github.com/ros2go/rosbags/codec"
	"github.com/ros2go/rosbags/highlevel"
	"github.com/ros2go/rosbags/rosbag1"
	"github.com/ros2go/rosbags/rosbag2"
	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/roscore"
	"github.com/ros2go/rosbags/typesys"
)

// latchedQosProfile is the QoS profile text this port writes for an
// upgraded latched connection, and the text a downgrade recognizes to
// infer latching back (spec.md §4.8: "durability: 1").
const latchedQosProfile = "- durability: 1\n"

// ConvertError wraps any error raised while reading the source or writing
// the destination, so callers can discriminate read-vs-write-vs-coding
// failures (spec.md §7).
type ConvertError struct {
	Stage string // "read", "write" or "code"
	Cause error
}

func (e *ConvertError) Error() string { return "convert: " + e.Stage + ": " + e.Cause.Error() }
func (e *ConvertError) Unwrap() error  { return e.Cause }

// Stats summarizes a completed conversion.
type Stats struct {
	Direction           Direction
	SourceConnections    int
	DestinationConnections int
	MessagesConverted   int
}

// InferDirection follows spec.md §4.8: a legacy ".bag" source upgrades to
// bag-v2; anything else (a bag-v2 directory) downgrades to bag-v1.
func InferDirection(sourcePaths []string) Direction {
	if len(sourcePaths) > 0 && strings.HasSuffix(sourcePaths[0], ".bag") {
		return Upgrade
	}
	return Downgrade
}

// Convert reads sourcePaths and writes dstPath, inferring direction from
// the source suffix. It refuses to overwrite an existing destination.
func Convert(reg *typesys.Registry, sourcePaths []string, dstPath string) (*Stats, error) {
	if reg == nil {
		reg = typesys.DefaultRegistry()
	}
	if _, err := os.Stat(dstPath); err == nil {
		return nil, &rosbagerrors.UsageError{Message: "refusing to overwrite existing destination: " + dstPath}
	}
	switch InferDirection(sourcePaths) {
	case Upgrade:
		return upgrade(reg, sourcePaths, dstPath)
	default:
		return downgrade(reg, sourcePaths[0], dstPath)
	}
}

// upgrade converts one-or-more bag-v1 files into a single bag-v2 directory.
func upgrade(reg *typesys.Registry, sourcePaths []string, dstPath string) (*Stats, error) {
	src := highlevel.NewAnyReader(reg, sourcePaths...)
	if err := src.Open(); err != nil {
		return nil, &ConvertError{Stage: "read", Cause: err}
	}
	defer src.Close()

	conns := src.Connections()
	keys := make([][3]string, len(conns))
	for i, c := range conns {
		qos := ""
		if c.Ext1 != nil && c.Ext1.Latching {
			qos = latchedQosProfile
		}
		keys[i] = [3]string{c.Topic, c.MsgType, qos}
	}
	plan := BuildPlan(Upgrade, conns, keys, src.MessageCount())

	dst := rosbag2.NewWriter(dstPath, rosbag2.DefaultWriterOptions())
	if err := dst.Create(); err != nil {
		return nil, &ConvertError{Stage: "write", Cause: err}
	}
	defer dst.Close()

	destByKey := map[[3]string]*roscore.Connection{}
	destBySource := map[*roscore.Connection]*roscore.Connection{}
	for i, cp := range plan.Conns {
		if cp.NewDestination {
			qos := ""
			if cp.Source.Ext1 != nil && cp.Source.Ext1.Latching {
				qos = latchedQosProfile
			}
			destConn, err := dst.AddConnection(cp.Source.Topic, cp.Source.MsgType, "cdr", qos)
			if err != nil {
				return nil, &ConvertError{Stage: "write", Cause: err}
			}
			destByKey[cp.Key] = destConn
		}
		destBySource[conns[i]] = destByKey[cp.Key]
	}

	count := 0
	for msg := range src.Messages(nil, 0, 0) {
		aligned, err := codec.AlignedFromPacked(reg, msg.Connection.MsgType, msg.Data)
		if err != nil {
			return nil, &ConvertError{Stage: "code", Cause: err}
		}
		destConn := destBySource[msg.Connection]
		if err := dst.Write(destConn, msg.TimeNs, aligned); err != nil {
			return nil, &ConvertError{Stage: "write", Cause: err}
		}
		count++
	}

	return &Stats{
		Direction:              Upgrade,
		SourceConnections:      len(conns),
		DestinationConnections: plan.DestinationConnections,
		MessagesConverted:      count,
	}, nil
}

// downgrade converts a single bag-v2 directory into one bag-v1 file.
func downgrade(reg *typesys.Registry, srcPath, dstPath string) (*Stats, error) {
	src := rosbag2.NewReader(srcPath)
	if err := src.Open(); err != nil {
		return nil, &ConvertError{Stage: "read", Cause: err}
	}
	defer src.Close()

	conns := src.Connections()
	keys := make([][3]string, len(conns))
	rendered := make([]typesys.Rendered, len(conns))
	latching := make([]bool, len(conns))
	for i, c := range conns {
		r, err := typesys.Render(reg, c.MsgType)
		if err != nil {
			return nil, &ConvertError{Stage: "code", Cause: err}
		}
		rendered[i] = r
		l := c.Ext2 != nil && strings.Contains(c.Ext2.QosProfiles, "durability: 1")
		latching[i] = l
		latchedStr := ""
		if l {
			latchedStr = "latched"
		}
		keys[i] = [3]string{c.Topic, r.MD5, latchedStr}
	}
	plan := BuildPlan(Downgrade, conns, keys, src.MessageCount())

	dst := rosbag1.NewWriter(dstPath, rosbag1.DefaultWriterOptions())
	if err := dst.Create(); err != nil {
		return nil, &ConvertError{Stage: "write", Cause: err}
	}
	defer dst.Close()

	destByKey := map[[3]string]*roscore.Connection{}
	destBySource := map[*roscore.Connection]*roscore.Connection{}
	for i, cp := range plan.Conns {
		if cp.NewDestination {
			var ext *roscore.ExtV1
			if latching[i] {
				ext = &roscore.ExtV1{Latching: true}
			}
			destConn, err := dst.AddConnection(cp.Source.Topic, cp.Source.MsgType, rendered[i].Text, rendered[i].MD5, ext)
			if err != nil {
				return nil, &ConvertError{Stage: "write", Cause: err}
			}
			destByKey[cp.Key] = destConn
		}
		destBySource[conns[i]] = destByKey[cp.Key]
	}

	count := 0
	for msg := range src.Messages(nil, 0, 0) {
		packed, err := codec.PackedFromAligned(reg, msg.Connection.MsgType, msg.Data)
		if err != nil {
			return nil, &ConvertError{Stage: "code", Cause: err}
		}
		destConn := destBySource[msg.Connection]
		if err := dst.Write(destConn, msg.TimeNs, packed); err != nil {
			return nil, &ConvertError{Stage: "write", Cause: err}
		}
		count++
	}

	return &Stats{
		Direction:              Downgrade,
		SourceConnections:      len(conns),
		DestinationConnections: plan.DestinationConnections,
		MessagesConverted:      count,
	}, nil
}
