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

// Package peg is a small parsing-expression-grammar runtime: literal,
// regex, rule-reference, sequence, ordered-choice, zero-or-more,
// one-or-more, optional and group. It builds its parser graph out of the
// same node kinds the corpus's go-packrat/v2 combinator library provides
// (atom/regex/and/or/kleene/maybe/end/empty), the way the teacher's own
// scheme front end does in scm/packrat.go's parseSyntax -- the difference
// is that here the graph is compiled from a textual grammar, not built by
// hand from s-expressions.
package peg

import (
	"fmt"

	packrat "github.com/launix-de/go-packrat/v2"

	"github.com/ros2go/rosbags/rosbagerrors"
)

// Parser is the node interface every grammar construct implements; it is
// exactly go-packrat's Parser so rule graphs can freely mix library
// primitives with the few custom node kinds this package adds (rule
// references, one-or-more).
type Parser = packrat.Parser

// Node is a parse-tree node: a matched substring or a list of children.
type Node = packrat.Node

// Scanner walks the input, skipping a fixed whitespace pattern between
// tokens -- every rule in a RuleSet shares the same Scanner, and so the same
// whitespace policy, per the spec's "whitespace is skipped between tokens by
// every rule, using a fixed whitespace pattern".
type Scanner = packrat.Scanner

// NewScanner creates a Scanner over input using the engine's fixed
// whitespace-skip pattern.
func NewScanner(input string) *Scanner {
	return packrat.NewScanner(input, packrat.SkipWhitespaceAndCommentsRegex)
}

// RuleSet is a directed graph of named rules built by BuildGrammar.
type RuleSet struct {
	rules map[string]Parser
	order []string
}

// Rule looks up a named rule's entry parser.
func (r *RuleSet) Rule(name string) (Parser, bool) {
	p, ok := r.rules[name]
	return p, ok
}

// Names returns rule names in declaration order.
func (r *RuleSet) Names() []string {
	return append([]string(nil), r.order...)
}

// Parse runs the named start rule of ruleSet against input and returns the
// resulting parse tree. PEG semantics: each ordered-choice alternative is
// tried in order and the first success commits -- there is no backtracking
// across a choice point once a later sequence element has consumed input.
func Parse(ruleSet *RuleSet, start string, input string) (*Node, error) {
	root, ok := ruleSet.Rule(start)
	if !ok {
		return nil, fmt.Errorf("peg: unknown start rule %q", start)
	}
	scanner := NewScanner(input)
	node, err := packrat.Parse(root, scanner)
	if err != nil {
		return nil, &rosbagerrors.ParseError{Message: err.Error()}
	}
	return node, nil
}

// ruleRefParser defers rule resolution until first use, so rules may refer
// to each other (including themselves) in any order within a grammar --
// grounded on scm/packrat.go's UndefinedParser forward-declaration trick.
type ruleRefParser struct {
	set    *RuleSet
	name   string
	cached Parser
}

func (r *ruleRefParser) Match(s *Scanner) *Node {
	if r.cached == nil {
		p, ok := r.set.rules[r.name]
		if !ok {
			panic("peg: undefined rule reference: " + r.name)
		}
		r.cached = p
	}
	m := r.cached.Match(s)
	if m == nil {
		return nil
	}
	return &Node{m.Matched, m.Start, r, []*Node{m}}
}

// oneOrMoreParser matches its sub-parser one or more times, separated by
// sep. packrat.NewKleeneParser already matches "sub (sep sub)*" zero or more
// times as a single commit; one-or-more just rejects the zero-length
// result, which is always safe to do without rewinding the scanner because
// a zero-length match consumed nothing.
type oneOrMoreParser struct {
	inner Parser // a packrat.NewKleeneParser(sub, sep)
}

func (p *oneOrMoreParser) Match(s *Scanner) *Node {
	m := p.inner.Match(s)
	if m == nil || len(m.Children) == 0 {
		return nil
	}
	return &Node{m.Matched, m.Start, p, m.Children}
}
