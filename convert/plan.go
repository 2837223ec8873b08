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

// Package convert implements the upgrade (bag-v1 → bag-v2) and downgrade
// (bag-v2 → bag-v1) conversion described in spec.md §4.8.
package convert

import "github.com/ros2go/rosbags/roscore"

// Direction names which way a conversion runs.
type Direction int

const (
	// Upgrade converts legacy bag-v1 input into bag-v2 output.
	Upgrade Direction = iota
	// Downgrade converts bag-v2 input into legacy bag-v1 output.
	Downgrade
)

// ConnPlan is one source connection's planned destination mapping. Key is
// the dedup tuple — (topic, msgtype, qos) for an upgrade, (topic, hash,
// latching) for a downgrade — computed by the caller, since deriving a
// downgrade key requires rendering and hashing the message definition (an
// operation with registry access that can fail); BuildPlan itself only
// does dedup bookkeeping and never touches a registry or performs I/O.
type ConnPlan struct {
	Source         *roscore.Connection
	Key            [3]string
	NewDestination bool
}

// Plan is a dry-run description of what Convert would do: which source
// connections collapse onto which destination connections, and how many
// distinct destination connections and messages the run will produce.
// Building a Plan never opens a reader or writer.
type Plan struct {
	Direction              Direction
	Conns                  []ConnPlan
	DestinationConnections int
	SourceMessageCount     int
}

// BuildPlan groups sourceConns by their precomputed dedup keys: the first
// source connection to present a given key opens a new destination
// connection; every later connection presenting the same key reuses it.
func BuildPlan(direction Direction, sourceConns []*roscore.Connection, keys [][3]string, sourceMessageCount int) *Plan {
	seen := map[[3]string]bool{}
	conns := make([]ConnPlan, len(sourceConns))
	destCount := 0
	for i, c := range sourceConns {
		k := keys[i]
		isNew := !seen[k]
		if isNew {
			seen[k] = true
			destCount++
		}
		conns[i] = ConnPlan{Source: c, Key: k, NewDestination: isNew}
	}
	return &Plan{
		Direction:              direction,
		Conns:                  conns,
		DestinationConnections: destCount,
		SourceMessageCount:     sourceMessageCount,
	}
}
