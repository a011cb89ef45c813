package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-lang/ash/internal/types"
)

func TestStringPrinter(t *testing.T) {
	cases := []struct {
		desc string
		t    types.Type
		want string
	}{
		{"int", types.Int(), "Int"},
		{"list", types.List(types.Int()), "[Int]"},
		{"option", types.Option(types.Str()), "Option(String)"},
		{"tuple", types.Tuple([]types.Type{types.Int(), types.Str()}), "(Int,String)"},
		{"function", types.Function([]types.Type{types.Int()}, types.Bool()), "fn(Int)->Bool"},
		{"custom", types.Custom("Pair", []types.Type{types.Int(), types.Str()}), "Pair(Int,String)"},
		{"custom no params", types.Custom("Point", nil), "Point"},
		{"generic", types.Generic("T"), "$T"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			assert.Equal(t, c.want, c.t.String())
		})
	}
}

func TestMangle(t *testing.T) {
	assert.Equal(t, "add", types.Mangle("add", nil))
	assert.Equal(t, "add_Int_Int", types.Mangle("add", []types.Type{types.Int(), types.Int()}))
}

func TestMonomorphisationUniqueness(t *testing.T) {
	a := types.Mangle("add", []types.Type{types.Int(), types.Int()})
	b := types.Mangle("add", []types.Type{types.Float(), types.Float()})
	assert.NotEqual(t, a, b)
}

func TestUnifyBindsGenericAndSubstitutes(t *testing.T) {
	expected := []types.Type{types.Generic("T"), types.List(types.Generic("T"))}
	actual := []types.Type{types.Int(), types.List(types.Int())}

	b, err := types.Unify(expected, actual)
	require.NoError(t, err)
	assert.True(t, types.Equal(types.Int(), b["T"]))

	got := types.Substitute(types.Generic("T"), b)
	assert.True(t, types.Equal(types.Int(), got))
}

func TestUnifyRejectsConflictingGenericBinding(t *testing.T) {
	expected := []types.Type{types.Generic("T"), types.Generic("T")}
	actual := []types.Type{types.Int(), types.Str()}
	_, err := types.Unify(expected, actual)
	require.Error(t, err)
}

func TestUnifyRejectsGenericBoundToNoneOrVoid(t *testing.T) {
	_, err := types.Unify([]types.Type{types.Generic("T")}, []types.Type{types.None()})
	require.Error(t, err)

	_, err = types.Unify([]types.Type{types.Generic("T")}, []types.Type{types.Void()})
	require.Error(t, err)
}

func TestAnyAcceptsAnyButVoid(t *testing.T) {
	_, err := types.Unify([]types.Type{types.Any()}, []types.Type{types.Int()})
	require.NoError(t, err)

	_, err = types.Unify([]types.Type{types.Any()}, []types.Type{types.Void()})
	require.Error(t, err)
}

func TestUnifyArityMismatch(t *testing.T) {
	_, err := types.Unify([]types.Type{types.Int()}, []types.Type{types.Int(), types.Int()})
	require.Error(t, err)
}

func TestUnifyNestedLists(t *testing.T) {
	expected := []types.Type{types.List(types.List(types.Generic("T")))}
	actual := []types.Type{types.List(types.List(types.Bool()))}
	b, err := types.Unify(expected, actual)
	require.NoError(t, err)
	assert.True(t, types.Equal(types.Bool(), b["T"]))
}
