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

package typesys

import "testing"

func TestRenderHeaderMatchesLegacyHash(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterAll(StandardCatalog()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	rendered, err := Render(r, HeaderTypeName)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	const want = "2176decaecbce78abc3b96ef049fabed"
	if rendered.MD5 != want {
		t.Fatalf("Header hash = %s, want %s (text: %q)", rendered.MD5, want, rendered.Text)
	}
	if rendered.Text[:len("uint32 seq")] != "uint32 seq" {
		t.Fatalf("expected Header text to begin with 'uint32 seq', got %q", rendered.Text)
	}
}

func TestRenderHashStableAcrossRepeatedCalls(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterAll(StandardCatalog()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	a, err := Render(r, "geometry_msgs/msg/Polygon")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, err := Render(r, "geometry_msgs/msg/Polygon")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if a.MD5 != b.MD5 {
		t.Fatalf("expected repeated Render to be stable, got %s vs %s", a.MD5, b.MD5)
	}
}

func TestRenderIncludesTransitiveDependencies(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterAll(StandardCatalog()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	rendered, err := Render(r, "sensor_msgs/msg/MagneticField")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !containsAll(rendered.Text, "MSG: "+LegacyName(HeaderTypeName), "MSG: "+LegacyName("geometry_msgs/msg/Vector3")) {
		t.Fatalf("expected transitive deps Header and Vector3 in rendered text, got %q", rendered.Text)
	}
}

func containsAll(haystack string, needles ...string) bool {
	for _, n := range needles {
		if !contains(haystack, n) {
			return false
		}
	}
	return true
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
