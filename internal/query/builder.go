// Package query composes parameterized SQL from optional predicates.
//
// A Builder hands out Param markers for bound values. Fragments embed markers
// instead of slot numbers, so a fragment and its value are always added together.
// Render walks the finished text once and numbers each marker in order of first
// appearance, emitting the argument list in that same order:
//
//	b := query.NewBuilder()
//	conds := b.Conditions()
//	conds.Add("a.search_vector @@ websearch_to_tsquery('english', %s)", text)
//	if start != nil {
//	    conds.Add("a.article_date >= %s", *start)
//	}
//	sql := "SELECT a.id FROM articles a " + conds.Where() + " LIMIT " + b.Bind(10).String()
//	stmt, err := b.Render(sql, dialect)
//
// A marker whose value was never bound is an error, and a bound value that no
// fragment references is never sent to the database.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Placeholder formats the positional parameter for a 1-based slot
type Placeholder interface {
	Placeholder(slot int) string
}

// PlaceholderFunc adapts a function to Placeholder
type PlaceholderFunc func(slot int) string

func (f PlaceholderFunc) Placeholder(slot int) string { return f(slot) }

// Dollar numbers parameters $1, $2, ... (PostgreSQL)
var Dollar = PlaceholderFunc(func(slot int) string { return "$" + strconv.Itoa(slot) })

// Question numbers parameters ?1, ?2, ... (SQLite)
var Question = PlaceholderFunc(func(slot int) string { return "?" + strconv.Itoa(slot) })

var (
	// ErrUnknownParam is returned when SQL text references a marker the builder never issued
	ErrUnknownParam = errors.New("unknown query parameter")
	// ErrArgumentMismatch is returned when a fragment's verbs and values disagree
	ErrArgumentMismatch = errors.New("fragment argument count mismatch")
)

const (
	markerOpen  = "\x00p"
	markerClose = "\x00"
)

// Param is a bound value's marker. Embed it in SQL text with %s or String().
type Param struct {
	id int
}

func (p Param) String() string {
	return markerOpen + strconv.Itoa(p.id) + markerClose
}

// Builder accumulates bound values for one statement. Not safe for concurrent use.
type Builder struct {
	values []any
	err    error
}

// NewBuilder creates an empty Builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Bind registers a value and returns its marker
func (b *Builder) Bind(value any) Param {
	b.values = append(b.values, value)
	return Param{id: len(b.values)}
}

// Fragment formats a fragment, binding each value (or reusing it if it is a Param).
// Every %s verb consumes exactly one value.
func (b *Builder) Fragment(format string, values ...any) string {
	if n := strings.Count(format, "%s"); n != len(values) {
		b.fail(fmt.Errorf("%w: %q has %d verbs, got %d values", ErrArgumentMismatch, format, n, len(values)))
		return ""
	}
	markers := make([]any, len(values))
	for i, v := range values {
		if p, ok := v.(Param); ok {
			markers[i] = p.String()
			continue
		}
		markers[i] = b.Bind(v).String()
	}
	return fmt.Sprintf(format, markers...)
}

// Conditions starts an empty AND-joined predicate list bound to this builder
func (b *Builder) Conditions() *Conditions {
	return &Conditions{b: b}
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Statement is rendered SQL text with its positional arguments
type Statement struct {
	SQL  string
	Args []any
}

// Render replaces every marker in sql with a numbered placeholder.
// Slots are numbered in order of first appearance; a marker used twice keeps its slot.
func (b *Builder) Render(sql string, ph Placeholder) (Statement, error) {
	if b.err != nil {
		return Statement{}, b.err
	}

	var (
		out   strings.Builder
		args  []any
		slots = make(map[int]int)
	)
	out.Grow(len(sql))

	rest := sql
	for {
		start := strings.Index(rest, markerOpen)
		if start < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:start])
		rest = rest[start+len(markerOpen):]

		end := strings.Index(rest, markerClose)
		if end < 0 {
			return Statement{}, fmt.Errorf("%w: unterminated marker", ErrUnknownParam)
		}
		id, err := strconv.Atoi(rest[:end])
		if err != nil || id < 1 || id > len(b.values) {
			return Statement{}, fmt.Errorf("%w: %q", ErrUnknownParam, rest[:end])
		}
		rest = rest[end+len(markerClose):]

		slot, seen := slots[id]
		if !seen {
			args = append(args, b.values[id-1])
			slot = len(args)
			slots[id] = slot
		}
		out.WriteString(ph.Placeholder(slot))
	}

	return Statement{SQL: out.String(), Args: args}, nil
}

// Conditions is an ordered list of predicates joined with AND
type Conditions struct {
	b     *Builder
	parts []string
}

// Add appends a predicate together with its values
func (c *Conditions) Add(format string, values ...any) {
	if frag := c.b.Fragment(format, values...); frag != "" {
		c.parts = append(c.parts, frag)
	}
}

// Len returns the number of predicates
func (c *Conditions) Len() int {
	return len(c.parts)
}

// Where renders "WHERE p1 AND p2 ..." or "" when there are no predicates
func (c *Conditions) Where() string {
	if len(c.parts) == 0 {
		return ""
	}
	return "WHERE " + c.And()
}

// And renders the predicates joined by AND without a keyword, or "1 = 1" when empty
func (c *Conditions) And() string {
	if len(c.parts) == 0 {
		return "1 = 1"
	}
	return strings.Join(c.parts, " AND ")
}
