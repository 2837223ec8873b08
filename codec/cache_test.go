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

package codec

import (
	"testing"

	"github.com/ros2go/rosbags/typesys"
)

func TestPlanForRejectsCircularReference(t *testing.T) {
	reg := typesys.NewRegistry()
	if err := reg.Register("pkg/msg/A", typesys.Schema{
		Fields: []typesys.Field{{Name: "b", Kind: typesys.NewName("pkg/msg/B")}},
	}); err != nil {
		t.Fatalf("Register A: %v", err)
	}
	if err := reg.Register("pkg/msg/B", typesys.Schema{
		Fields: []typesys.Field{{Name: "a", Kind: typesys.NewName("pkg/msg/A")}},
	}); err != nil {
		t.Fatalf("Register B: %v", err)
	}
	if _, err := planFor(reg, "pkg/msg/A"); err == nil {
		t.Fatalf("expected a circular type reference to be rejected")
	}
}

func TestPlanForCachesByRegistryAndTypeName(t *testing.T) {
	reg := testRegistry(t)
	p1, err := planFor(reg, "geometry_msgs/msg/Polygon")
	if err != nil {
		t.Fatalf("planFor: %v", err)
	}
	p2, err := planFor(reg, "geometry_msgs/msg/Polygon")
	if err != nil {
		t.Fatalf("planFor: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("expected the cached Plan pointer to be reused across calls")
	}

	other := typesys.NewRegistry()
	if err := other.RegisterAll(typesys.StandardCatalog()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	p3, err := planFor(other, "geometry_msgs/msg/Polygon")
	if err != nil {
		t.Fatalf("planFor: %v", err)
	}
	if p3 == p1 {
		t.Fatalf("expected a distinct Plan for a distinct registry")
	}
}
