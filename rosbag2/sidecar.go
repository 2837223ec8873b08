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

// Package rosbag2 reads and writes the directory-based, SQLite-shard bag-v2
// container (spec.md §4.6): a YAML sidecar plus one or more table-store
// shard files.
package rosbag2

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ros2go/rosbags/rosbagerrors"
)

const supportedMajorVersion = 5

// sidecarTopicMetadata is the topic_metadata object nested inside one
// topics_with_message_count entry (spec.md §6).
type sidecarTopicMetadata struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Serialization string `yaml:"serialization_format"`
	QosProfiles   string `yaml:"offered_qos_profiles"`
}

// sidecarTopic is one entry of the sidecar's topics_with_message_count list.
type sidecarTopic struct {
	MessageCount  int                  `yaml:"message_count"`
	TopicMetadata sidecarTopicMetadata `yaml:"topic_metadata"`
}

// sidecar is the top-level metadata.yaml document, following the upstream
// rosbag2_bagfile_information envelope. starting_time and duration are
// themselves one-key objects (spec.md §6: "starting_time.nanoseconds_since_
// epoch", "duration.nanoseconds"), not bare integers.
type sidecar struct {
	Version int `yaml:"version"`
	Info    struct {
		StorageIdentifier string   `yaml:"storage_identifier"`
		RelativeFilePaths []string `yaml:"relative_file_paths"`
		Duration          struct {
			Nanoseconds int64 `yaml:"nanoseconds"`
		} `yaml:"duration"`
		StartingTime struct {
			NanosecondsSinceEpoch int64 `yaml:"nanoseconds_since_epoch"`
		} `yaml:"starting_time"`
		MessageCount      int            `yaml:"message_count"`
		CompressionFormat string         `yaml:"compression_format"`
		CompressionMode   string         `yaml:"compression_mode"`
		Topics            []sidecarTopic `yaml:"topics_with_message_count"`
	} `yaml:"rosbag2_bagfile_information"`
}

func readSidecar(path string) (sidecar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sidecar{}, &rosbagerrors.IoError{Op: "read sidecar", Cause: err}
	}
	var sc sidecar
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return sidecar{}, &rosbagerrors.BagFormat{Message: "malformed sidecar", Cause: err}
	}
	if sc.Version != supportedMajorVersion {
		return sidecar{}, &rosbagerrors.UsageError{Message: "unsupported bag-v2 sidecar version"}
	}
	if sc.Info.StorageIdentifier != "sqlite3" {
		return sidecar{}, &rosbagerrors.UsageError{Message: "unsupported bag-v2 storage backend: " + sc.Info.StorageIdentifier}
	}
	return sc, nil
}

func writeSidecar(path string, sc sidecar) error {
	sc.Version = supportedMajorVersion
	sc.Info.StorageIdentifier = "sqlite3"
	raw, err := yaml.Marshal(sc)
	if err != nil {
		return &rosbagerrors.BagFormat{Message: "could not marshal sidecar", Cause: err}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return &rosbagerrors.IoError{Op: "write sidecar", Cause: err}
	}
	return nil
}
