package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
)

func TestRunParse(t *testing.T) {
	var out bytes.Buffer
	if err := runParse(&out, "(a and b)[ti]"); err != nil {
		t.Fatal(err)
	}
	want := "tree:    and(section:ti(a), section:ti(b))\npostfix: a [ti] b [ti] AND\n"
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}
	if err := runParse(&out, "(unclosed"); err == nil {
		t.Error("expected a parse error")
	}
}

func TestParseFields(t *testing.T) {
	sections := section.Default()
	doc, err := parseFields([]string{"ti=A title", "Body=text with = sign"}, sections)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Fields) != 2 || doc.Fields[0].Section != 1 || doc.Fields[1].Section != 2 || doc.Fields[1].Text != "text with = sign" {
		t.Errorf("fields = %+v", doc.Fields)
	}
	for _, bad := range []string{"no-equals", "footer=x"} {
		if _, err := parseFields([]string{bad}, sections); err == nil {
			t.Errorf("parseFields(%q) accepted", bad)
		}
	}
}

func TestRunMatch(t *testing.T) {
	sections := section.Default()
	doc, err := parseFields([]string{"title=A quick brown fox", "body=It naps. The dog barks."}, sections)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		query    string
		matched  bool
		failOpen bool
	}{
		{`"quick brown"`, true, false},
		{`"brown quick"`, false, false},
		{"fox[ti]", true, false},
		{"fox[body]", false, false},
		{"dog near barks", true, false},
		{"naps near barks", false, false},
		{"qui*", true, false},
		{"cat or bark*", true, false},
		{"fox[nosuch]", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			matched, failOpen, err := runMatch(doc, tt.query, sections)
			if err != nil {
				t.Fatal(err)
			}
			if matched != tt.matched || failOpen != tt.failOpen {
				t.Errorf("runMatch = %t, %t; want %t, %t", matched, failOpen, tt.matched, tt.failOpen)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"parse", "cat", "dog"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "postfix: cat dog AND") {
		t.Errorf("output = %q", out.String())
	}
}

func TestMatchCommandRequiresField(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"match", "fox"})
	if err := root.Execute(); err == nil {
		t.Error("expected an error without --field")
	}
}
