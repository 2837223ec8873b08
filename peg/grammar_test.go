package peg

import "testing"

func TestBuildGrammarSimpleSequence(t *testing.T) {
	rs, err := BuildGrammar(`
greeting:
    'hello' name

name:
    /[A-Za-z]+/
`)
	if err != nil {
		t.Fatalf("BuildGrammar: %v", err)
	}
	node, err := Parse(rs, "greeting", "hello world")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v := NewVisitor()
	v.On("name", func(matched string, _ []interface{}) interface{} { return matched })
	v.On("greeting", func(_ string, children []interface{}) interface{} { return children })
	got := v.Visit(node)
	children, ok := got.([]interface{})
	if !ok || len(children) != 2 {
		t.Fatalf("expected 2 children, got %#v", got)
	}
	if children[1] != "world" {
		t.Fatalf("expected captured name 'world', got %#v", children[1])
	}
}

func TestBuildGrammarChoiceAndRepetition(t *testing.T) {
	rs, err := BuildGrammar(`
list:
    item (',' item)*

item:
    'a' | 'b' | 'c'
`)
	if err != nil {
		t.Fatalf("BuildGrammar: %v", err)
	}
	if _, err := Parse(rs, "list", "a,b,c"); err != nil {
		t.Fatalf("Parse a,b,c: %v", err)
	}
	if _, err := Parse(rs, "list", "a"); err != nil {
		t.Fatalf("Parse a: %v", err)
	}
}

func TestBuildGrammarOneOrMoreRejectsEmpty(t *testing.T) {
	rs, err := BuildGrammar(`
digits:
    /[0-9]/+
`)
	if err != nil {
		t.Fatalf("BuildGrammar: %v", err)
	}
	if _, err := Parse(rs, "digits", "123"); err != nil {
		t.Fatalf("Parse 123: %v", err)
	}
	if _, err := Parse(rs, "digits", "abc"); err == nil {
		t.Fatalf("expected parse failure for non-digit input")
	}
}

func TestBuildGrammarUndefinedReference(t *testing.T) {
	_, err := BuildGrammar(`
start:
    missing_rule
`)
	if err == nil {
		t.Fatalf("expected build error for undefined rule reference")
	}
}

func TestBuildGrammarOptional(t *testing.T) {
	rs, err := BuildGrammar(`
greeting:
    'hi' 'there'?
`)
	if err != nil {
		t.Fatalf("BuildGrammar: %v", err)
	}
	if _, err := Parse(rs, "greeting", "hi"); err != nil {
		t.Fatalf("Parse 'hi': %v", err)
	}
	if _, err := Parse(rs, "greeting", "hi there"); err != nil {
		t.Fatalf("Parse 'hi there': %v", err)
	}
}
