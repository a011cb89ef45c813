package native_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-lang/ash/internal/native"
	"github.com/ash-lang/ash/internal/vm"
)

func TestRegistryAssignsStableIndices(t *testing.T) {
	r := native.Standard()
	idx, ok := r.Index("uuid")
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)

	fns := r.Natives()
	require.Len(t, fns, 4)
}

func TestHeapStatsNative(t *testing.T) {
	r := native.Standard()
	idx, ok := r.Index("heap_stats")
	require.True(t, ok)

	st := vm.NewState(nil, nil, r.Natives())
	require.NoError(t, r.Natives()[idx](st))
	require.Len(t, st.Stack, 1)
	assert.Equal(t, vm.DataString, st.Stack[0].Tag)
	assert.Equal(t, "heap: 0 cells (0 free)", st.Heap[st.Stack[0].I].Str)
}
