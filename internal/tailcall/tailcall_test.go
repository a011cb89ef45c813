package tailcall_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-lang/ash/internal/asm"
	"github.com/ash-lang/ash/internal/tailcall"
)

func TestRewritesSelfTailCall(t *testing.T) {
	ops := []asm.Op{
		asm.Function(0, "loop_Int"),
		asm.Get(0),
		asm.Dcall(3, "loop_Int"),
		asm.Ret(true),
	}
	out := tailcall.Optimize(ops)
	require.Len(t, out, 3)
	assert.Equal(t, asm.TCALL, out[2].Code)
	assert.Equal(t, uint32(3), out[2].Arg)
	assert.Equal(t, "loop_Int", out[2].Str)
}

func TestDoesNotRewriteCallToDifferentFunction(t *testing.T) {
	ops := []asm.Op{
		asm.Function(0, "f_Int"),
		asm.Dcall(3, "g_Int"),
		asm.Ret(true),
	}
	out := tailcall.Optimize(ops)
	require.Len(t, out, 3)
	assert.Equal(t, asm.DCALL, out[1].Code)
	assert.Equal(t, asm.RET, out[2].Code)
}

func TestDoesNotRewriteNonTailDcall(t *testing.T) {
	ops := []asm.Op{
		asm.Function(0, "f_Int"),
		asm.Dcall(3, "f_Int"),
		asm.Simple(asm.POP), // something between the call and ret
		asm.Ret(false),
	}
	out := tailcall.Optimize(ops)
	require.Len(t, out, 4)
	assert.Equal(t, asm.DCALL, out[1].Code)
}
