// Package symbols reads text symbol tables: one "symbol id" pair per line.
package symbols

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrUnknownSymbol is returned by Lookup for a symbol not in the table.
var ErrUnknownSymbol = errors.New("symbols: unknown symbol")

// Table maps symbols to ids and back.
type Table struct {
	ids   map[string]int
	names map[int]string
}

// New returns an empty table.
func New() *Table {
	return &Table{ids: map[string]int{}, names: map[int]string{}}
}

// Add binds name and id. A later binding for the same name or id overwrites
// the earlier one.
func (t *Table) Add(name string, id int) {
	t.ids[name] = id
	t.names[id] = name
}

// ID returns the id of name.
func (t *Table) ID(name string) (int, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// Lookup is ID with an error naming the missing symbol.
func (t *Table) Lookup(name string) (int, error) {
	id, ok := t.ids[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
	}
	return id, nil
}

// Symbol returns the symbol bound to id.
func (t *Table) Symbol(id int) (string, bool) {
	name, ok := t.names[id]
	return name, ok
}

func (t *Table) Len() int { return len(t.ids) }

// Read parses a symbol table. Blank lines are skipped; any other line must
// hold exactly two fields, the second an integer.
func Read(r io.Reader) (*Table, error) {
	t := New()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("symbols: line %d: expected 2 fields, got %d", line, len(fields))
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("symbols: line %d: %w", line, err)
		}
		t.Add(fields[0], id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("symbols: scan: %w", err)
	}
	return t, nil
}

// ReadFile reads the symbol table at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbols: %w", err)
	}
	defer f.Close()
	return Read(f)
}
