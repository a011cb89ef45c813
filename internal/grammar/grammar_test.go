// Package grammar holds this toolchain's invented concrete syntax as a
// literal EBNF file (grounded on lang/grammar's grammar_test.go, which
// parses and verifies the teacher's own Lua-derived grammar.ebnf the same
// way), so the syntax internal/lexer and internal/parser implement has a
// single, checkable source of truth independent of the recursive-descent
// code itself.
package grammar

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

func TestEBNF(t *testing.T) {
	f, err := os.Open("grammar.ebnf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := ebnf.Parse("grammar.ebnf", f)
	if err != nil {
		t.Fatal(err)
	}
	if err := ebnf.Verify(g, "Program"); err != nil {
		t.Fatal(err)
	}
}
