package query

import (
	"errors"
	"fmt"
)

var (
	// ErrNoQuery is returned when no query could be built from the input.
	ErrNoQuery = errors.New("no parseable query")
	// ErrIllegalStatement signals a postfix sequence that leaves the stack
	// in an inconsistent state. It indicates a defect, not bad user input.
	ErrIllegalStatement = errors.New("illegal query statement")
)

// Status is the outcome reported by an evaluation that ran to completion.
type Status int

const (
	StatusOK Status = iota
	StatusIllegalSectionName
	StatusIllegalQuerySyntax
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusIllegalSectionName:
		return "illegal_section_name"
	case StatusIllegalQuerySyntax:
		return "illegal_query_syntax"
	default:
		return "unknown"
	}
}

// ParseError describes where and why parsing stopped.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("position %d: %s", e.Pos, e.Msg)
}

// sectionError is raised by operand sets when a section name is unknown.
type sectionError struct {
	name string
}

func (e *sectionError) Error() string {
	return fmt.Sprintf("illegal section name %q", e.name)
}
