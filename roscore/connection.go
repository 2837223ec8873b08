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

// Package roscore holds the connection/message types shared by rosbag1,
// rosbag2, highlevel and convert, so none of those packages need to import
// each other just to talk about a Connection.
package roscore

// Owner is an opaque back-reference to whichever reader or writer produced
// a Connection; the unified reader uses it to route messages back to the
// right underlying iterator without the Connection itself knowing about
// bag-v1 or bag-v2 internals.
type Owner interface {
	OwnerName() string
}

// ExtV1 carries the bag-v1-specific connection metadata.
type ExtV1 struct {
	CallerID string
	Latching bool
}

// QosProfile is one entry of a bag-v2 connection's offered QoS profiles.
// Only the fields this codebase actually inspects (durability, for the
// downgrade-to-v1 latching inference) are modeled structurally; the rest of
// the profile text is kept verbatim in Connection.Ext2.QosProfiles.
type QosProfile struct {
	Durability int
	Depth      int
	History    string
}

// ExtV2 carries the bag-v2-specific connection metadata.
type ExtV2 struct {
	SerializationFormat string
	QosProfiles         string
}

// Connection is the (id, topic, msgtype, msgdef, md5, msgcount, ext, owner)
// tuple from the data model. Exactly one of Ext1/Ext2 is non-nil.
type Connection struct {
	ID       int
	Topic    string
	MsgType  string
	MsgDef   string
	MD5Sum   string
	MsgCount int
	Ext1     *ExtV1
	Ext2     *ExtV2
	Owner    Owner
}

// DedupKeyV1 returns the (topic, msgtype, latching) tuple the bag-v1 writer
// uses to decide two v1-shaped connections are interchangeable.
func (c *Connection) DedupKeyV1() [3]string {
	latching := ""
	if c.Ext1 != nil && c.Ext1.Latching {
		latching = "latched"
	}
	return [3]string{c.Topic, c.MsgType, latching}
}

// DedupKeyV2 returns the (topic, md5, latching) tuple used when
// downgrading a v2 connection to a v1-shaped candidate.
func (c *Connection) DedupKeyV2(latching bool) [3]string {
	l := ""
	if latching {
		l = "latched"
	}
	return [3]string{c.Topic, c.MD5Sum, l}
}

// Message is one (connection, timestamp, payload) tuple as yielded by any
// reader. Payload may be an owned or borrowed byte range; callers that need
// to retain it past the next iterator step should copy it.
type Message struct {
	Connection *Connection
	TimeNs     int64
	Data       []byte
}

// TopicSummary is the per-topic aggregate exposed by readers and the
// unified reader. MsgType/MsgDef/MD5Sum collapse to the empty string when
// connections sharing a topic disagree.
type TopicSummary struct {
	Name        string
	MsgType     string
	MsgDef      string
	MD5Sum      string
	MessageCount int
	Connections int
}
