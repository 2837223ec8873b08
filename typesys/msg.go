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
	"strconv"
	"strings"

	"github.com/ros2go/rosbags/rosbagerrors"
)

// msgSeparator is the fixed line that splits a multi-definition legacy
// message-definition text into per-message blocks, per spec.md §4.2.
const msgSeparator = "================================================================================"

// msgHeaderPrefix introduces a block's own type name inside a multi-message
// text; the very first block has no such header and takes its name from the
// caller.
const msgHeaderPrefix = "MSG: "

// msgBaseAliases maps legacy primitive spellings not already covered by the
// twelve canonical Primitive names.
var msgBaseAliases = map[string]string{
	"time":     "builtin_interfaces/msg/Time",
	"duration": "builtin_interfaces/msg/Duration",
	"byte":     "uint8",
	"char":     "uint8",
}

// ParseMsg parses legacy .msg text (possibly containing multiple
// MSG:-separated definitions) for a message whose own canonical name is
// ownName; sibling blocks become independently registered schemas and bare
// references among them resolve intra-file, per spec.md §4.2.
func ParseMsg(text string, ownName string) (map[string]Schema, error) {
	blocks := splitMsgBlocks(text)
	if len(blocks) == 0 {
		return nil, &rosbagerrors.ParseError{Message: "msg: empty definition text"}
	}
	names := make([]string, len(blocks))
	names[0] = CanonicalName(ownName)
	for i := 1; i < len(blocks); i++ {
		header, body := splitMsgHeader(blocks[i])
		blocks[i] = body
		names[i] = CanonicalName(header)
	}

	out := make(map[string]Schema, len(blocks))
	for i, block := range blocks {
		pkg := packageOf(names[i])
		schema, err := parseMsgBlock(block, pkg)
		if err != nil {
			return nil, err
		}
		out[names[i]] = schema
	}
	return out, nil
}

func packageOf(canonical string) string {
	parts := strings.SplitN(canonical, "/", 2)
	return parts[0]
}

func splitMsgBlocks(text string) []string {
	raw := strings.Split(text, msgSeparator)
	out := make([]string, 0, len(raw))
	for _, b := range raw {
		out = append(out, b)
	}
	return out
}

// splitMsgHeader extracts a block's own "MSG: name" header line, returning
// the type name and the remaining body.
func splitMsgHeader(block string) (name string, body string) {
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, msgHeaderPrefix) {
			name = strings.TrimSpace(strings.TrimPrefix(trimmed, msgHeaderPrefix))
			body = strings.Join(lines[i+1:], "\n")
			return
		}
		break
	}
	return "", block
}

func parseMsgBlock(block string, pkg string) (Schema, error) {
	var schema Schema
	for _, raw := range strings.Split(block, "\n") {
		line := stripMsgComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		typeTok, rest, err := splitFirstToken(line)
		if err != nil {
			return Schema{}, err
		}
		nameTok, defaultText, isConst := splitMsgNameAndDefault(rest)

		baseType, arraySuffix, isArrayType := splitArraySuffix(typeTok)
		kind, err := resolveMsgType(baseType, pkg)
		if err != nil {
			return Schema{}, err
		}
		if isArrayType {
			kind, err = applyMsgArraySuffix(kind, arraySuffix)
			if err != nil {
				return Schema{}, err
			}
		}

		if isConst {
			if !kind.IsBase() {
				return Schema{}, &rosbagerrors.ParseError{Message: "msg: constant must have a base type: " + line}
			}
			value, err := parseConstLiteral(kind.Base(), defaultText)
			if err != nil {
				return Schema{}, &rosbagerrors.ParseError{Message: "msg: bad constant value: " + line}
			}
			schema.Constants = append(schema.Constants, Constant{Name: nameTok, Primitive: kind.Base(), Value: value})
			continue
		}
		schema.Fields = append(schema.Fields, Field{Name: nameTok, Kind: kind})
	}
	return schema, nil
}

func stripMsgComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case '#':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}

func splitFirstToken(line string) (token string, rest string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", &rosbagerrors.ParseError{Message: "msg: malformed field line: " + line}
	}
	token = fields[0]
	idx := strings.Index(line, token) + len(token)
	rest = strings.TrimSpace(line[idx:])
	return token, rest, nil
}

// splitMsgNameAndDefault splits "name" or "name = default" or "NAME=value";
// a constant declaration always carries '='; a plain field never does.
func splitMsgNameAndDefault(rest string) (name string, defaultText string, isConst bool) {
	if idx := strings.Index(rest, "="); idx >= 0 {
		name = strings.TrimSpace(rest[:idx])
		defaultText = strings.TrimSpace(rest[idx+1:])
		return name, defaultText, true
	}
	fields := strings.Fields(rest)
	if len(fields) > 0 {
		name = fields[0]
	}
	return name, "", false
}

// splitArraySuffix separates a trailing "[]"/"[N]"/"[<=N]" from a type
// token, returning the bare type, the bracketed content (without brackets,
// "" for a plain "[]"), and whether brackets were present at all.
func splitArraySuffix(typeTok string) (base string, suffix string, isArrayType bool) {
	idx := strings.IndexByte(typeTok, '[')
	if idx < 0 || !strings.HasSuffix(typeTok, "]") {
		return typeTok, "", false
	}
	return typeTok[:idx], typeTok[idx+1 : len(typeTok)-1], true
}

func applyMsgArraySuffix(kind FieldKind, suffix string) (FieldKind, error) {
	if suffix == "" {
		return sequenceOf(kind, nil), nil
	}
	if strings.HasPrefix(suffix, "<=") {
		if _, err := strconv.ParseUint(suffix[2:], 10, 32); err != nil {
			return FieldKind{}, &rosbagerrors.ParseError{Message: "msg: bad bounded sequence: " + suffix}
		}
		// Bounded sequences are represented as unbounded in the produced
		// Schema, per spec.md §4.2; the bound is dropped.
		return sequenceOf(kind, nil), nil
	}
	n, err := strconv.ParseUint(suffix, 10, 32)
	if err != nil {
		return FieldKind{}, &rosbagerrors.ParseError{Message: "msg: bad array length: " + suffix}
	}
	return arrayOf(kind, uint32(n)), nil
}

func resolveMsgType(typeTok string, pkg string) (FieldKind, error) {
	if alias, ok := msgBaseAliases[typeTok]; ok {
		if p, ok := ParsePrimitive(alias); ok {
			return NewBase(p), nil
		}
		return NewName(CanonicalName(alias)), nil
	}
	if p, ok := ParsePrimitive(typeTok); ok {
		return NewBase(p), nil
	}
	if typeTok == "Header" {
		return NewName(HeaderTypeName), nil
	}
	if strings.Contains(typeTok, "/") {
		return NewName(CanonicalName(typeTok)), nil
	}
	return NewName(CanonicalName(pkg + "/" + typeTok)), nil
}
