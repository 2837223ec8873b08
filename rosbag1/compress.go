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
	"bytes"
	"compress/bzip2"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/ros2go/rosbags/rosbagerrors"
)

// Compression names a chunk's payload codec, as stored in a CHUNK record's
// "compression" field.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionBZ2  Compression = "bz2"
	CompressionLZ4  Compression = "lz4"
)

func decompressChunk(mode Compression, data []byte) ([]byte, error) {
	switch mode {
	case CompressionNone, "":
		return data, nil
	case CompressionBZ2:
		out, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, &rosbagerrors.BagFormat{Message: "bz2 chunk payload is corrupt", Cause: err}
		}
		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, &rosbagerrors.BagFormat{Message: "lz4 chunk payload is corrupt", Cause: err}
		}
		return out, nil
	default:
		return nil, &rosbagerrors.UsageError{Message: "unsupported chunk compression: " + string(mode)}
	}
}

// compressChunk compresses data under mode. Go's standard library and the
// pack's ecosystem carry no bz2 encoder (only the read-only stdlib
// decompressor), so writing bz2-compressed bags is rejected rather than
// silently downgraded to another codec; see DESIGN.md's C5 entry.
func compressChunk(mode Compression, data []byte) ([]byte, error) {
	switch mode {
	case CompressionNone, "":
		return data, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if err := w.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, &rosbagerrors.BagFormat{Message: "lz4 writer configuration failed", Cause: err}
		}
		if _, err := w.Write(data); err != nil {
			return nil, &rosbagerrors.BagFormat{Message: "lz4 compression failed", Cause: err}
		}
		if err := w.Close(); err != nil {
			return nil, &rosbagerrors.BagFormat{Message: "lz4 compression failed", Cause: err}
		}
		return buf.Bytes(), nil
	case CompressionBZ2:
		return nil, &rosbagerrors.UsageError{Message: "writing bz2-compressed bag-v1 chunks is not supported"}
	default:
		return nil, &rosbagerrors.UsageError{Message: "unsupported chunk compression: " + string(mode)}
	}
}
