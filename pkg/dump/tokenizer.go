// Package dump reads the legacy shop's SQL export.
//
// The export is one dialect only: each statement sits on its own line and has the form
//
//	insert into <table> values (...), (...), ...;
//
// Field values are bare or single-quoted. A backslash escapes the next character anywhere
// inside a tuple and a doubled quote inside a quoted value is a literal quote.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Row is one tuple of raw field values, in column order.
type Row []string

// Tables holds the rows of every recognized table, in dump order.
type Tables map[string][]Row

// Counts returns the number of rows per table.
func (t Tables) Counts() map[string]int {
	counts := make(map[string]int, len(t))
	for name, rows := range t {
		counts[name] = len(rows)
	}
	return counts
}

// Tokenizer extracts rows of a fixed set of tables from a dump.
type Tokenizer struct {
	tables map[string]struct{}
}

// NewTokenizer creates a Tokenizer that keeps rows of the named tables and ignores all others.
func NewTokenizer(tables ...string) *Tokenizer {
	set := make(map[string]struct{}, len(tables))
	for _, name := range tables {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = struct{}{}
		}
	}
	return &Tokenizer{tables: set}
}

// Tables returns the configured table names, sorted.
func (t *Tokenizer) Tables() []string {
	names := make([]string, 0, len(t.tables))
	for name := range t.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tokenize reads the dump line by line. Malformed statements yield whatever tuples
// could be completed; the only error returned is a read error from r.
func (t *Tokenizer) Tokenize(r io.Reader) (Tables, error) {
	// Lines can be megabytes long, so a Reader is used instead of a Scanner with a token cap.
	br := bufio.NewReaderSize(r, 1<<20)
	out := make(Tables)

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			t.consume(out, line)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("failed to read dump: %w", err)
		}
	}
}

func (t *Tokenizer) consume(out Tables, line string) {
	table, values, ok := SplitStatement(line)
	if !ok {
		return
	}
	if _, wanted := t.tables[table]; !wanted {
		return
	}
	out[table] = append(out[table], ParseValues(values)...)
}

// SplitStatement recognizes "insert into <table> values <tuples>" (keywords case-insensitive,
// table name optionally backquoted) and returns the table name and the tuple text.
func SplitStatement(line string) (table, values string, ok bool) {
	rest := strings.TrimLeft(line, " \t")
	const insertInto = "insert into "
	if len(rest) < len(insertInto) || !strings.EqualFold(rest[:len(insertInto)], insertInto) {
		return "", "", false
	}
	rest = strings.TrimLeft(rest[len(insertInto):], " ")

	end := strings.IndexByte(rest, ' ')
	if end <= 0 {
		return "", "", false
	}
	table = strings.Trim(rest[:end], "`")
	rest = strings.TrimLeft(rest[end:], " ")

	const kwValues = "values"
	if len(rest) < len(kwValues) || !strings.EqualFold(rest[:len(kwValues)], kwValues) {
		return "", "", false
	}
	return table, rest[len(kwValues):], true
}
