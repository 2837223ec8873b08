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

import (
	"strings"

	"github.com/launix-de/NonLockingReadMap"

	"github.com/ros2go/rosbags/rosbagerrors"
)

// entry wraps a Schema so it can live in a NonLockingReadMap keyed by
// canonical type name -- the registry is read constantly during decode and
// written rarely (at registration time), which is exactly the access
// pattern that map is built for (spec.md §5, §9 "Global default registry").
type entry struct {
	name   string
	schema Schema
}

func (e *entry) GetKey() string   { return e.name }
func (e *entry) ComputeSize() uint {
	sz := uint(len(e.name)) + 16
	for _, f := range e.schema.Fields {
		sz += uint(len(f.Name)) + 8
	}
	for _, c := range e.schema.Constants {
		sz += uint(len(c.Name)) + 8
	}
	return sz
}

// Registry canonicalizes names, stores field/constant tables, and enforces
// the invariants from spec.md §3: name uniqueness, matching re-registration,
// a std_msgs/msg/Header entry always present and exempt from the conflict
// check, and that every Name reference resolves before a message of that
// type is coded.
type Registry struct {
	m NonLockingReadMap.NonLockingReadMap[entry, string]
}

// NewRegistry creates a registry holding only std_msgs/msg/Header and the
// builtin_interfaces/msg/Time type it references -- callers typically start
// from DefaultRegistry() instead, which seeds the full standard catalog.
func NewRegistry() *Registry {
	r := &Registry{m: NonLockingReadMap.New[entry, string]()}
	catalog := StandardCatalog()
	for _, name := range []string{"builtin_interfaces/msg/Time", HeaderTypeName} {
		r.m.Set(&entry{name: name, schema: catalog[name]})
	}
	return r
}

// Register merges entries into the registry. A name collision is only an
// error if the new fields disagree (case-folded, in order) with the
// existing ones; std_msgs/msg/Header is exempt from this check entirely.
func (r *Registry) Register(name string, schema Schema) error {
	name = CanonicalName(name)
	if existing := r.m.Get(name); existing != nil && name != HeaderTypeName {
		if !fieldsEqualFold(existing.schema.Fields, schema.Fields) {
			return &rosbagerrors.SchemaConflict{TypeName: name, Reason: "fields differ from existing registration"}
		}
		return nil
	}
	r.m.Set(&entry{name: name, schema: schema})
	return nil
}

// RegisterAll registers a batch of (name, schema) pairs, stopping at the
// first conflict.
func (r *Registry) RegisterAll(schemas map[string]Schema) error {
	for name, schema := range schemas {
		if err := r.Register(name, schema); err != nil {
			return err
		}
	}
	return nil
}

// Lookup resolves a canonical or raw type name to its Schema.
func (r *Registry) Lookup(name string) (Schema, bool) {
	e := r.m.Get(CanonicalName(name))
	if e == nil {
		return Schema{}, false
	}
	return e.schema, true
}

// MustLookup resolves name or returns UnknownType -- used by the codec
// generator, which needs a Go error rather than a boolean.
func (r *Registry) MustLookup(name string) (Schema, error) {
	s, ok := r.Lookup(name)
	if !ok {
		return Schema{}, &rosbagerrors.UnknownType{TypeName: CanonicalName(name)}
	}
	return s, nil
}

// Names returns every registered canonical type name.
func (r *Registry) Names() []string {
	all := r.m.GetAll()
	out := make([]string, len(all))
	for i, e := range all {
		out[i] = e.name
	}
	return out
}

// Resolved reports whether every Name reference reachable from typeName
// resolves in the registry -- spec.md §3 invariant (iv), checked explicitly
// rather than relying on a panic deep in the codec.
func (r *Registry) Resolved(typeName string) error {
	return r.resolved(typeName, map[string]bool{})
}

func (r *Registry) resolved(typeName string, seen map[string]bool) error {
	typeName = CanonicalName(typeName)
	if seen[typeName] {
		return nil
	}
	seen[typeName] = true
	schema, ok := r.Lookup(typeName)
	if !ok {
		return &rosbagerrors.UnknownType{TypeName: typeName}
	}
	for _, f := range schema.Fields {
		switch {
		case f.Kind.IsName():
			if err := r.resolved(f.Kind.TypeName(), seen); err != nil {
				return err
			}
		case (f.Kind.IsArray() || f.Kind.IsSequence()) && f.Kind.ElemIsName():
			if err := r.resolved(f.Kind.ElemTypeName(), seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func fieldsEqualFold(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i].Name, b[i].Name) {
			return false
		}
		if !fieldKindEqual(a[i].Kind, b[i].Kind) {
			return false
		}
	}
	return true
}

func fieldKindEqual(a, b FieldKind) bool {
	if a.kind != b.kind {
		return false
	}
	switch {
	case a.IsBase():
		return a.base == b.base
	case a.IsName():
		return strings.EqualFold(a.name, b.name)
	default:
		if a.isArrayOrSeqElemMismatch(b) {
			return false
		}
		if a.IsArray() && a.length != b.length {
			return false
		}
		return true
	}
}

func (a FieldKind) isArrayOrSeqElemMismatch(b FieldKind) bool {
	if a.ElemIsName() != b.ElemIsName() {
		return true
	}
	if a.ElemIsName() {
		return !strings.EqualFold(a.elemName, b.elemName)
	}
	return a.ElemBase() != b.ElemBase()
}

var defaultRegistry *Registry

// DefaultRegistry returns the process-wide, lazily-initialized registry
// seeded with the standard catalog (std_msgs, geometry_msgs, sensor_msgs,
// builtin_interfaces) -- spec.md §9's "Global default registry" note.
func DefaultRegistry() *Registry {
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry()
		if err := defaultRegistry.RegisterAll(StandardCatalog()); err != nil {
			panic("typesys: standard catalog failed to register: " + err.Error())
		}
	}
	return defaultRegistry
}
