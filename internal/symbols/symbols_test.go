package symbols

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const table = `<eps> 0
a_B 1
a_I 2

a_E 3
hello 10
`

func TestRead(t *testing.T) {
	tbl, err := Read(strings.NewReader(table))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if tbl.Len() != 5 {
		t.Errorf("expected 5 symbols, got %d", tbl.Len())
	}
	if id, ok := tbl.ID("hello"); !ok || id != 10 {
		t.Errorf("hello: got %d %v", id, ok)
	}
	if name, ok := tbl.Symbol(2); !ok || name != "a_I" {
		t.Errorf("id 2: got %q %v", name, ok)
	}
	if _, ok := tbl.Symbol(99); ok {
		t.Error("id 99 should be absent")
	}
}

func TestLookupUnknown(t *testing.T) {
	tbl := New()
	tbl.Add("x", 1)
	if _, err := tbl.Lookup("y"); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}
	if id, err := tbl.Lookup("x"); err != nil || id != 1 {
		t.Errorf("lookup x: %d %v", id, err)
	}
}

func TestReadRejectsMalformed(t *testing.T) {
	for _, in := range []string{"a 1 2\n", "a\n", "a b\n"} {
		if _, err := Read(strings.NewReader(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if id, _ := tbl.ID("a_E"); id != 3 {
		t.Errorf("a_E = %d, want 3", id)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
