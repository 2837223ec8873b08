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
	units "github.com/docker/go-units"

	"github.com/ros2go/rosbags/rosbagerrors"
)

// WriterOptions configures a Writer's chunking and compression.
type WriterOptions struct {
	Compression Compression
	// ChunkSize is a human-readable size ("1MiB", "512KB") giving the
	// in-memory chunk buffer threshold at which a chunk is flushed.
	ChunkSize string
}

// DefaultWriterOptions matches the upstream writer's own defaults: no
// compression, one mebibyte per chunk.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{Compression: CompressionNone, ChunkSize: "1MiB"}
}

func (o WriterOptions) chunkThreshold() (int64, error) {
	size := o.ChunkSize
	if size == "" {
		size = DefaultWriterOptions().ChunkSize
	}
	n, err := units.FromHumanSize(size)
	if err != nil {
		return 0, &rosbagerrors.UsageError{Message: "invalid chunk size: " + err.Error()}
	}
	return n, nil
}
