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
	"io"
	"strconv"
	"strings"

	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/roscore"
	"github.com/ros2go/rosbags/typesys"
)

// normalizeTopic keeps a single leading slash (if present) and drops empty
// path segments, mirroring rosbags' own topic normalization.
func normalizeTopic(name string) string {
	leading := ""
	if strings.HasPrefix(name, "/") {
		leading = "/"
	}
	parts := strings.Split(name, "/")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return leading + strings.Join(kept, "/")
}

// readConnection reads a CONNECTION record from r at the current position:
// two back-to-back record headers with no data block at all — the first
// carries the connection id and topic, the second the message type and
// schema.
func readConnection(r io.Reader, owner roscore.Owner) (*roscore.Connection, error) {
	h1, err := readRecordHeader(r, opConnection)
	if err != nil {
		return nil, err
	}
	connID, ok := h1.uint32("conn")
	if !ok {
		return nil, &rosbagerrors.BagFormat{Message: "connection record missing conn id"}
	}
	topic, ok := h1.str("topic")
	if !ok {
		return nil, &rosbagerrors.BagFormat{Message: "connection record missing topic"}
	}

	h2, err := readRecordHeader(r, 0)
	if err != nil {
		return nil, err
	}
	msgtype, _ := h2.str("type")
	md5sum, _ := h2.str("md5sum")
	msgdef, _ := h2.str("message_definition")

	ext := &roscore.ExtV1{}
	if callerid, ok := h2.str("callerid"); ok {
		ext.CallerID = callerid
	}
	if latching, ok := h2.str("latching"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(latching))
		if err != nil {
			return nil, &rosbagerrors.BagFormat{Message: "connection record has non-numeric latching field"}
		}
		ext.Latching = n != 0
	}

	return &roscore.Connection{
		ID:      int(connID),
		Topic:   normalizeTopic(topic),
		MsgType: typesys.CanonicalName(msgtype),
		MsgDef:  msgdef,
		MD5Sum:  md5sum,
		Ext1:    ext,
		Owner:   owner,
	}, nil
}

// writeConnection writes c as a CONNECTION record: two headers, no data
// block.
func writeConnection(w io.Writer, c *roscore.Connection) error {
	if _, err := writeRecordHeader(w, opConnection,
		fieldUint32("conn", uint32(c.ID)),
		fieldString("topic", c.Topic),
	); err != nil {
		return err
	}

	fields := []headerField{
		fieldString("topic", c.Topic),
		fieldString("type", typesys.LegacyName(c.MsgType)),
		fieldString("md5sum", c.MD5Sum),
		fieldString("message_definition", c.MsgDef),
	}
	if c.Ext1 != nil {
		if c.Ext1.CallerID != "" {
			fields = append(fields, fieldString("callerid", c.Ext1.CallerID))
		}
		latching := "0"
		if c.Ext1.Latching {
			latching = "1"
		}
		fields = append(fields, fieldString("latching", latching))
	}
	_, err := writeRecordHeader(w, 0, fields...)
	return err
}
