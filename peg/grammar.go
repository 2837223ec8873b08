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

package peg

import (
	"fmt"
	"regexp"
	"strings"

	packrat "github.com/launix-de/go-packrat/v2"
)

// BuildGrammar compiles a block-formatted textual grammar into a RuleSet.
//
// Grammar text shape:
//
//	rulename:
//	    alternative one, space separated
//	    alternative two | inline alternative
//
//	otherrule:
//	    'literal' subrule
//
// Rules are separated by one or more blank lines. Each non-blank line
// inside a rule's block is an ordered-choice alternative (tried in the
// order written); a '|' also separates inline alternatives on one line.
// Within an alternative, tokens are space separated:
//
//	'text'        literal match (case sensitive)
//	"text"        literal match (case insensitive)
//	/pattern/     regex match
//	$             end of input
//	_empty_       always matches, consumes nothing
//	name          reference to another rule (forward references allowed)
//	( ... )       group, may itself contain '|' alternatives
//
// A '*', '+' or '?' immediately following a token or a closing ')'
// (sequence) greedily.
//
// This reader is itself hand-written rather than built on peg.Parse: a
// grammar-of-grammars is circular, since BuildGrammar is what produces the
// RuleSet that Parse needs in the first place.
func BuildGrammar(text string) (*RuleSet, error) {
	blocks := splitBlocks(text)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("peg: empty grammar")
	}

	rs := &RuleSet{rules: make(map[string]Parser)}
	type pending struct {
		name  string
		lines []string
	}
	var defs []pending
	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		if len(lines) == 0 {
			continue
		}
		header := strings.TrimSpace(lines[0])
		name, ok := strings.CutSuffix(header, ":")
		if !ok {
			return nil, fmt.Errorf("peg: rule block must start with 'name:', got %q", header)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("peg: empty rule name in block %q", block)
		}
		rest := make([]string, 0, len(lines)-1)
		for _, l := range lines[1:] {
			if strings.TrimSpace(l) == "" {
				continue
			}
			rest = append(rest, l)
		}
		if len(rest) == 0 {
			return nil, fmt.Errorf("peg: rule %q has no alternatives", name)
		}
		rs.order = append(rs.order, name)
		defs = append(defs, pending{name, rest})
	}

	// pre-register forward-declared references for every rule name so any
	// order of definition works, mirroring scm/packrat.go's UndefinedParser.
	for _, d := range defs {
		if _, exists := rs.rules[d.name]; exists {
			return nil, fmt.Errorf("peg: duplicate rule %q", d.name)
		}
		rs.rules[d.name] = nil
	}

	for _, d := range defs {
		alternatives := make([]Parser, 0, len(d.lines))
		for _, line := range d.lines {
			for _, alt := range strings.Split(line, "|") {
				alt = strings.TrimSpace(alt)
				if alt == "" {
					continue
				}
				p, err := parseSequence(alt, rs)
				if err != nil {
					return nil, fmt.Errorf("peg: rule %q: %w", d.name, err)
				}
				alternatives = append(alternatives, p)
			}
		}
		var p Parser
		if len(alternatives) == 1 {
			p = alternatives[0]
		} else {
			p = packrat.NewOrParser(alternatives...)
		}
		rs.rules[d.name] = p
	}

	for name, p := range rs.rules {
		if p == nil {
			return nil, fmt.Errorf("peg: rule %q was declared but never defined", name)
		}
	}
	return rs, nil
}

var tokenPattern = regexp.MustCompile(`^(?:'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"|/(?:[^/\\]|\\.)*/|\(|\)|\$|[A-Za-z_][A-Za-z0-9_]*)`)

// parseSequence parses one alternative (a space-separated run of tokens,
// each optionally followed by a repetition operator) into a single Parser.
func parseSequence(s string, rs *RuleSet) (Parser, error) {
	toks, rest, err := tokenizeSequence(s, rs)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("unexpected trailing input %q", rest)
	}
	if len(toks) == 1 {
		return toks[0], nil
	}
	return packrat.NewAndParser(toks...), nil
}

// tokenizeSequence greedily parses tokens (including parenthesized groups)
// until it hits an unmatched ')' or runs out of input, applying postfix
// operators as it goes.
func tokenizeSequence(s string, rs *RuleSet) ([]Parser, string, error) {
	var out []Parser
	for {
		s = strings.TrimSpace(s)
		if s == "" || strings.HasPrefix(s, ")") {
			return out, s, nil
		}
		var p Parser
		var err error
		if strings.HasPrefix(s, "(") {
			inner, remainder, e := readGroup(s[1:])
			if e != nil {
				return nil, "", e
			}
			alts, e := splitTopLevelAlternatives(inner)
			if e != nil {
				return nil, "", e
			}
			var parsers []Parser
			for _, a := range alts {
				pp, _, e := tokenizeSequence(a, rs)
				if e != nil {
					return nil, "", e
				}
				if len(pp) == 0 {
					return nil, "", fmt.Errorf("empty group alternative")
				}
				if len(pp) == 1 {
					parsers = append(parsers, pp[0])
				} else {
					parsers = append(parsers, packrat.NewAndParser(pp...))
				}
			}
			if len(parsers) == 1 {
				p = parsers[0]
			} else {
				p = packrat.NewOrParser(parsers...)
			}
			s = remainder
		} else {
			p, s, err = parsePrimitive(s, rs)
			if err != nil {
				return nil, "", err
			}
		}
		p, s = applyRepetition(p, s)
		out = append(out, p)
	}
}

func applyRepetition(p Parser, s string) (Parser, string) {
	trimmed := strings.TrimLeft(s, " \t")
	if len(trimmed) == 0 {
		return p, s
	}
	switch trimmed[0] {
	case '*':
		return packrat.NewKleeneParser(p, packrat.NewEmptyParser()), trimmed[1:]
	case '+':
		return &oneOrMoreParser{inner: packrat.NewKleeneParser(p, packrat.NewEmptyParser())}, trimmed[1:]
	case '?':
		return packrat.NewMaybeParser(p), trimmed[1:]
	}
	return p, s
}

func readGroup(s string) (inner string, remainder string, err error) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[:i], s[i+1:], nil
			}
		case '\'', '"', '/':
			// skip over quoted/regex spans so parens inside them don't count
			q := s[i]
			j := i + 1
			for j < len(s) && s[j] != q {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			i = j
		}
	}
	return "", "", fmt.Errorf("unterminated group")
}

// splitTopLevelAlternatives splits on '|' that is not nested inside a
// further group or quoted literal.
func splitTopLevelAlternatives(s string) ([]string, error) {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '\'', '"', '/':
			q := s[i]
			j := i + 1
			for j < len(s) && s[j] != q {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			i = j
		case '|':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts, nil
}

func parsePrimitive(s string, rs *RuleSet) (Parser, string, error) {
	loc := tokenPattern.FindStringIndex(s)
	if loc == nil || loc[0] != 0 {
		return nil, "", fmt.Errorf("unexpected input %q", s)
	}
	tok := s[loc[0]:loc[1]]
	rest := s[loc[1]:]
	switch {
	case strings.HasPrefix(tok, "'"):
		lit := unescape(tok[1 : len(tok)-1])
		return packrat.NewAtomParser(lit, false, true), rest, nil
	case strings.HasPrefix(tok, "\""):
		lit := unescape(tok[1 : len(tok)-1])
		return packrat.NewAtomParser(lit, true, true), rest, nil
	case strings.HasPrefix(tok, "/"):
		pattern := unescape(tok[1 : len(tok)-1])
		return packrat.NewRegexParser(pattern, false, true), rest, nil
	case tok == "$":
		return packrat.NewEndParser(true), rest, nil
	case tok == "_empty_":
		return packrat.NewEmptyParser(), rest, nil
	default:
		if _, ok := rs.rules[tok]; !ok {
			return nil, "", fmt.Errorf("undefined rule reference %q", tok)
		}
		return &ruleRefParser{set: rs, name: tok}, rest, nil
	}
}

func unescape(s string) string {
	return strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\/`, `/`, `\\`, `\`).Replace(s)
}

// splitBlocks splits grammar text on runs of one or more blank lines.
func splitBlocks(text string) []string {
	lines := strings.Split(text, "\n")
	var blocks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			flush()
			continue
		}
		cur = append(cur, l)
	}
	flush()
	return blocks
}
