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

func TestParseMsgSimple(t *testing.T) {
	schemas, err := ParseMsg("int32 x\nint32 y\nstring name\n", "pkg/msg/Point")
	if err != nil {
		t.Fatalf("ParseMsg: %v", err)
	}
	schema, ok := schemas["pkg/msg/Point"]
	if !ok {
		t.Fatalf("expected pkg/msg/Point, got %v", schemas)
	}
	if len(schema.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %+v", schema.Fields)
	}
	if schema.Fields[2].Name != "name" || schema.Fields[2].Kind.Base() != String {
		t.Fatalf("unexpected third field: %+v", schema.Fields[2])
	}
}

func TestParseMsgArraysAndSequences(t *testing.T) {
	schemas, err := ParseMsg("float64[3] fixed\nint32[] variable\nint32[<=4] bounded\n", "pkg/msg/Arrays")
	if err != nil {
		t.Fatalf("ParseMsg: %v", err)
	}
	schema := schemas["pkg/msg/Arrays"]
	if !schema.Fields[0].Kind.IsArray() || schema.Fields[0].Kind.Length() != 3 {
		t.Fatalf("expected fixed array of length 3, got %+v", schema.Fields[0].Kind)
	}
	if !schema.Fields[1].Kind.IsSequence() || schema.Fields[1].Kind.Bound() != nil {
		t.Fatalf("expected unbounded sequence, got %+v", schema.Fields[1].Kind)
	}
	if !schema.Fields[2].Kind.IsSequence() || schema.Fields[2].Kind.Bound() != nil {
		t.Fatalf("expected bound to be dropped for bounded sequence, got %+v", schema.Fields[2].Kind)
	}
}

func TestParseMsgConstantsAndComments(t *testing.T) {
	schemas, err := ParseMsg("# a comment\nint32 FOO=42 # trailing comment\nstring BAR=hello world\n", "pkg/msg/Consts")
	if err != nil {
		t.Fatalf("ParseMsg: %v", err)
	}
	schema := schemas["pkg/msg/Consts"]
	if len(schema.Constants) != 2 {
		t.Fatalf("expected 2 constants, got %+v", schema.Constants)
	}
	if schema.Constants[0].Value.Int != 42 {
		t.Fatalf("expected FOO=42, got %+v", schema.Constants[0])
	}
	if schema.Constants[1].Value.String != "hello world" {
		t.Fatalf("expected BAR=\"hello world\", got %q", schema.Constants[1].Value.String)
	}
}

func TestParseMsgHeaderAndBuiltinAliases(t *testing.T) {
	schemas, err := ParseMsg("Header header\ntime stamp\nduration elapsed\nbyte raw\nchar c\n", "pkg/msg/Thing")
	if err != nil {
		t.Fatalf("ParseMsg: %v", err)
	}
	schema := schemas["pkg/msg/Thing"]
	if !schema.Fields[0].Kind.IsName() || schema.Fields[0].Kind.TypeName() != HeaderTypeName {
		t.Fatalf("expected bare Header to resolve to %s, got %+v", HeaderTypeName, schema.Fields[0].Kind)
	}
	if !schema.Fields[1].Kind.IsName() || schema.Fields[1].Kind.TypeName() != "builtin_interfaces/msg/Time" {
		t.Fatalf("expected time to resolve to builtin_interfaces/msg/Time, got %+v", schema.Fields[1].Kind)
	}
	if !schema.Fields[2].Kind.IsName() || schema.Fields[2].Kind.TypeName() != "builtin_interfaces/msg/Duration" {
		t.Fatalf("expected duration to resolve to builtin_interfaces/msg/Duration, got %+v", schema.Fields[2].Kind)
	}
	if schema.Fields[3].Kind.Base() != Uint8 || schema.Fields[4].Kind.Base() != Uint8 {
		t.Fatalf("expected byte/char to alias uint8, got %+v and %+v", schema.Fields[3].Kind, schema.Fields[4].Kind)
	}
}

func TestParseMsgMultiDefinitionSiblingResolution(t *testing.T) {
	text := "Sub part\n" + msgSeparator + "\n" + msgHeaderPrefix + "pkg/Sub\nint32 value\n"
	schemas, err := ParseMsg(text, "pkg/msg/Outer")
	if err != nil {
		t.Fatalf("ParseMsg: %v", err)
	}
	outer, ok := schemas["pkg/msg/Outer"]
	if !ok {
		t.Fatalf("expected pkg/msg/Outer, got %v", schemas)
	}
	if !outer.Fields[0].Kind.IsName() || outer.Fields[0].Kind.TypeName() != "pkg/msg/Sub" {
		t.Fatalf("expected bare sibling name to resolve within package, got %+v", outer.Fields[0].Kind)
	}
	if _, ok := schemas["pkg/msg/Sub"]; !ok {
		t.Fatalf("expected sibling definition pkg/msg/Sub to be present, got %v", schemas)
	}
}
