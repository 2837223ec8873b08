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
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/ros2go/rosbags/rosbagerrors"
)

// CompressionMode names which part of a bag-v2 shard is zstd-compressed.
type CompressionMode string

const (
	CompressionModeNone    CompressionMode = ""
	CompressionModeFile    CompressionMode = "file"
	CompressionModeMessage CompressionMode = "message"
)

// compressMessage zstd-compresses one message blob (message-mode).
func compressMessage(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, &rosbagerrors.BagFormat{Message: "zstd encoder setup failed", Cause: err}
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// decompressMessage reverses compressMessage.
func decompressMessage(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, &rosbagerrors.BagFormat{Message: "zstd decoder setup failed", Cause: err}
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, &rosbagerrors.BagFormat{Message: "message payload is corrupt zstd", Cause: err}
	}
	return out, nil
}

// decompressShardFile transparently decompresses a file-mode shard (a whole
// sqlite file wrapped in a zstd stream) into a fresh temporary file and
// returns its path; the caller opens that path read-only instead of the
// original. A UUID-suffixed name avoids collisions across concurrently open
// readers of the same bag.
func decompressShardFile(path string) (tmpPath string, err error) {
	in, err := os.Open(path)
	if err != nil {
		return "", &rosbagerrors.IoError{Op: "open compressed shard", Cause: err}
	}
	defer in.Close()

	tmpPath = path + "." + uuid.NewString() + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return "", &rosbagerrors.IoError{Op: "create decompressed shard tempfile", Cause: err}
	}
	defer out.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		os.Remove(tmpPath)
		return "", &rosbagerrors.BagFormat{Message: "zstd decoder setup failed", Cause: err}
	}
	defer dec.Close()

	if _, err := io.Copy(out, dec); err != nil {
		os.Remove(tmpPath)
		return "", &rosbagerrors.BagFormat{Message: "shard payload is corrupt zstd", Cause: err}
	}
	return tmpPath, nil
}

// compressShardFile streams src through zstd into dst, then removes src.
func compressShardFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &rosbagerrors.IoError{Op: "open shard for compression", Cause: err}
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return &rosbagerrors.IoError{Op: "create compressed shard", Cause: err}
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return &rosbagerrors.BagFormat{Message: "zstd encoder setup failed", Cause: err}
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		return &rosbagerrors.BagFormat{Message: "shard compression failed", Cause: err}
	}
	if err := enc.Close(); err != nil {
		return &rosbagerrors.BagFormat{Message: "shard compression failed", Cause: err}
	}
	in.Close()
	return os.Remove(src)
}
