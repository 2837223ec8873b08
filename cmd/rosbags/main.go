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

// rosbags is a thin command-line wrapper around the C5-C8 packages: it
// opens bag-v1/bag-v2 recordings through highlevel.AnyReader and runs
// convert.Convert between the two container formats. The core packages
// themselves have no CLI, environment variable or network surface
// (spec.md §6); this binary exists only so a user has something to
// `go run` end-to-end.
//
// Usage:
//   go run ./cmd/rosbags info <bag-v1-file>... | <bag-v2-dir>
//   go run ./cmd/rosbags convert <source> <destination>
package main

import (
	"fmt"
	"os"

	"github.com/ros2go/rosbags/convert"
	"github.com/ros2go/rosbags/highlevel"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "rosbags: "+err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  rosbags info <bag-v1-file>... | <bag-v2-dir>")
	fmt.Fprintln(os.Stderr, "  rosbags convert <source> <destination>")
}

func runInfo(paths []string) error {
	r := highlevel.NewAnyReader(nil, paths...)
	if err := r.Open(); err != nil {
		return err
	}
	defer r.Close()

	fmt.Printf("connections:   %d\n", len(r.Connections()))
	fmt.Printf("message_count: %d\n", r.MessageCount())
	fmt.Printf("start_time:    %d\n", r.StartTime())
	fmt.Printf("end_time:      %d\n", r.EndTime())
	fmt.Printf("duration:      %d\n", r.Duration())
	for _, t := range r.TopicSummaries() {
		fmt.Printf("  %-30s %-40s %d msgs, %d conns\n", t.Name, t.MsgType, t.MessageCount, t.Connections)
	}
	return nil
}

func runConvert(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("convert takes exactly <source> <destination>")
	}
	stats, err := convert.Convert(nil, []string{args[0]}, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("direction:               %v\n", stats.Direction)
	fmt.Printf("source connections:      %d\n", stats.SourceConnections)
	fmt.Printf("destination connections: %d\n", stats.DestinationConnections)
	fmt.Printf("messages converted:      %d\n", stats.MessagesConverted)
	return nil
}
