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
	"sync"

	"github.com/ros2go/rosbags/rosbagerrors"
	"github.com/ros2go/rosbags/typesys"
)

// Plan is the compiled, per-type form of the six routines: the schema plus
// the per-field alignment requirements computed by a single walk, cached so
// repeat Size/Encode/Decode/mover calls for the same (registry, type name)
// never re-walk the registry or re-check for cycles.
type Plan struct {
	TypeName string
	Schema   typesys.Schema
	Fields   []fieldOp
}

// fieldOp is one field's compiled, per-schema-walk operator: everything the
// six routines need to know about the field ahead of time, independent of
// any particular record's data.
type fieldOp struct {
	Field       typesys.Field
	AlignBefore int
}

type cacheKey struct {
	reg      *typesys.Registry
	typeName string
}

var planCache sync.Map // cacheKey -> *Plan

// planFor returns the cached Plan for (reg, typeName), compiling it (and
// checking for circular references) on first use.
func planFor(reg *typesys.Registry, typeName string) (*Plan, error) {
	canonical := typesys.CanonicalName(typeName)
	key := cacheKey{reg, canonical}
	if v, ok := planCache.Load(key); ok {
		return v.(*Plan), nil
	}
	schema, err := reg.MustLookup(canonical)
	if err != nil {
		return nil, err
	}
	if err := checkAcyclic(reg, canonical, map[string]bool{}); err != nil {
		return nil, err
	}
	fields := make([]fieldOp, len(schema.Fields))
	for i, f := range schema.Fields {
		align, err := alignBefore(reg, f.Kind)
		if err != nil {
			return nil, err
		}
		fields[i] = fieldOp{Field: f, AlignBefore: align}
	}
	plan := &Plan{TypeName: canonical, Schema: schema, Fields: fields}
	actual, _ := planCache.LoadOrStore(key, plan)
	return actual.(*Plan), nil
}

// checkAcyclic rejects type graphs where a Name reference (directly, or as
// the element of an Array/Sequence) reaches back to a type already on the
// current path; neither schema dialect can express genuine recursion, so
// any cycle found is an error in the registered schemas, not a valid type.
func checkAcyclic(reg *typesys.Registry, typeName string, visiting map[string]bool) error {
	if visiting[typeName] {
		return &rosbagerrors.BagFormat{Message: "circular type reference at " + typeName}
	}
	schema, err := reg.MustLookup(typeName)
	if err != nil {
		return err
	}
	visiting[typeName] = true
	defer delete(visiting, typeName)
	for _, f := range schema.Fields {
		ref := referencedTypeName(f.Kind)
		if ref == "" {
			continue
		}
		if err := checkAcyclic(reg, ref, visiting); err != nil {
			return err
		}
	}
	return nil
}

func referencedTypeName(kind typesys.FieldKind) string {
	switch {
	case kind.IsName():
		return kind.TypeName()
	case (kind.IsArray() || kind.IsSequence()) && kind.ElemIsName():
		return kind.ElemTypeName()
	}
	return ""
}
