package lexer_test

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-lang/ash/internal/filetest"
	"github.com/ash-lang/ash/internal/lexer"
)

var testUpdateLexerTests = flag.Bool("test.update-lexer-tests", false, "If set, replace expected lexer test results with actual results.")

// TestScan mirrors lang/scanner's golden-file convention: every file under
// testdata/in is tokenized, and the token stream (and any lex error) is
// diffed against the matching file in testdata/out.
func TestScan(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".ash") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			require.NoError(t, err)

			var buf, ebuf bytes.Buffer
			lx := lexer.New(fi.Name(), string(src))
			for {
				tok, err := lx.Next()
				fmt.Fprintf(&buf, "%s\t%q\n", tok.Kind, tok.Lit)
				if err != nil {
					fmt.Fprintln(&ebuf, err)
					break
				}
				if tok.Kind == lexer.EOF {
					break
				}
			}
			filetest.DiffOutput(t, fi, buf.String(), resultDir, testUpdateLexerTests)
			filetest.DiffErrors(t, fi, ebuf.String(), resultDir, testUpdateLexerTests)
		})
	}
}

func TestScanEscapes(t *testing.T) {
	lx := lexer.New("t", `"a\nb\t\"c\""`)
	tok, err := lx.Next()
	require.NoError(t, err)
	assert.Equal(t, lexer.STRING, tok.Kind)
	assert.Equal(t, "a\nb\t\"c\"", tok.Lit)
}

func TestScanChar(t *testing.T) {
	lx := lexer.New("t", `'\n'`)
	tok, err := lx.Next()
	require.NoError(t, err)
	assert.Equal(t, lexer.CHAR, tok.Kind)
	assert.Equal(t, "\n", tok.Lit)
}

func TestScanFloatVsInt(t *testing.T) {
	lx := lexer.New("t", "1 1.5 1e3 1.5e-2")
	var kinds []lexer.Kind
	for {
		tok, err := lx.Next()
		require.NoError(t, err)
		if tok.Kind == lexer.EOF {
			break
		}
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []lexer.Kind{lexer.INT, lexer.FLOAT, lexer.FLOAT, lexer.FLOAT}, kinds)
}

func TestScanUnterminatedString(t *testing.T) {
	lx := lexer.New("t", `"unterminated`)
	_, err := lx.Next()
	assert.Error(t, err)
}

func TestScanIllegalChar(t *testing.T) {
	lx := lexer.New("t", "$")
	tok, err := lx.Next()
	assert.Error(t, err)
	assert.Equal(t, lexer.ILLEGAL, tok.Kind)
}

func TestScanComment(t *testing.T) {
	lx := lexer.New("t", "1 // comment\n2")
	tok, err := lx.Next()
	require.NoError(t, err)
	assert.Equal(t, "1", tok.Lit)
	tok, err = lx.Next()
	require.NoError(t, err)
	assert.Equal(t, "2", tok.Lit)
}
