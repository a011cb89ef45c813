package symtab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-lang/ash/internal/symtab"
	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

func TestDeclareAndLookupInSameScope(t *testing.T) {
	e := symtab.New()
	sym, err := e.Declare("x", types.Int(), token.Position{}, symtab.KindVariable)
	require.NoError(t, err)
	assert.Equal(t, "x", sym.ID)

	got, ok, captured := e.Lookup("x", nil)
	require.True(t, ok)
	assert.False(t, captured)
	assert.Equal(t, types.Int(), got.Ttype)
}

func TestDeclareDuplicateInSameScopeErrors(t *testing.T) {
	e := symtab.New()
	_, err := e.Declare("x", types.Int(), token.Position{}, symtab.KindVariable)
	require.NoError(t, err)
	_, err = e.Declare("x", types.Bool(), token.Position{}, symtab.KindVariable)
	require.Error(t, err)
}

func TestDeclareFunctionIsKeyedByMangledName(t *testing.T) {
	e := symtab.New()
	ft := types.Function([]types.Type{types.Int()}, types.Bool())
	sym, err := e.Declare("isPos", ft, token.Position{}, symtab.KindFunction)
	require.NoError(t, err)
	assert.Equal(t, types.Mangle("isPos", []types.Type{types.Int()}), sym.ID)
}

func TestDeclareFunctionWithNonFunctionTypeErrors(t *testing.T) {
	e := symtab.New()
	_, err := e.Declare("isPos", types.Int(), token.Position{}, symtab.KindFunction)
	require.Error(t, err)
}

func TestNoOverrideRejectsRedefinitionInAnyScope(t *testing.T) {
	e := symtab.New()
	e.NoOverride["print"] = struct{}{}
	_, err := e.Declare("print", types.Int(), token.Position{}, symtab.KindVariable)
	require.Error(t, err)

	e.Push()
	_, err = e.Declare("print", types.Int(), token.Position{}, symtab.KindVariable)
	require.Error(t, err)
}

func TestLookupFallsThroughToOuterScope(t *testing.T) {
	e := symtab.New()
	_, err := e.Declare("x", types.Int(), token.Position{}, symtab.KindVariable)
	require.NoError(t, err)

	e.Push()
	_, ok, _ := e.Lookup("x", []bool{false})
	require.True(t, ok)
	e.Pop()
}

func TestLookupAcrossClosureBoundaryRecordsCapture(t *testing.T) {
	e := symtab.New()
	_, err := e.Declare("x", types.Int(), token.Position{}, symtab.KindVariable)
	require.NoError(t, err)

	e.Push() // depth 1 is a closure body
	sym, ok, newCapture := e.Lookup("x", []bool{true})
	require.True(t, ok)
	assert.True(t, newCapture)
	assert.Equal(t, types.Int(), sym.Ttype)

	captured := e.Captured(1)
	require.Len(t, captured, 1)
	assert.Equal(t, "x", captured[0].ID)

	// A second lookup of the same name does not re-register the capture.
	_, ok, newCapture2 := e.Lookup("x", []bool{true})
	require.True(t, ok)
	assert.False(t, newCapture2)
	assert.Len(t, e.Captured(1), 1)
}

func TestLookupThroughPlainBlockDoesNotCapture(t *testing.T) {
	e := symtab.New()
	_, err := e.Declare("x", types.Int(), token.Position{}, symtab.KindVariable)
	require.NoError(t, err)

	e.Push() // depth 1 is a plain block, not a closure
	_, ok, newCapture := e.Lookup("x", []bool{false})
	require.True(t, ok)
	assert.False(t, newCapture)
	assert.Empty(t, e.Captured(1))
}

func TestLookupMangledPrefersMonomorphisedThenFallsBackToBareName(t *testing.T) {
	e := symtab.New()
	ft := types.Function([]types.Type{types.Int()}, types.Bool())
	_, err := e.Declare("isPos", ft, token.Position{}, symtab.KindFunction)
	require.NoError(t, err)

	sym, ok, _ := e.LookupMangled("isPos", []types.Type{types.Int()}, nil)
	require.True(t, ok)
	assert.Equal(t, types.Mangle("isPos", []types.Type{types.Int()}), sym.ID)

	_, ok, _ = e.LookupMangled("isPos", []types.Type{types.Str()}, nil)
	assert.False(t, ok)
}

func TestLookupUnknownIdentifierFails(t *testing.T) {
	e := symtab.New()
	_, ok, _ := e.Lookup("nope", nil)
	assert.False(t, ok)
}

func TestSuggestionsOrdersByEditDistance(t *testing.T) {
	e := symtab.New()
	_, _ = e.Declare("count", types.Int(), token.Position{}, symtab.KindVariable)
	_, _ = e.Declare("counter", types.Int(), token.Position{}, symtab.KindVariable)
	_, _ = e.Declare("zzz", types.Int(), token.Position{}, symtab.KindVariable)

	got := e.Suggestions("count", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "count", got[0])
	assert.Equal(t, "counter", got[1])
}
