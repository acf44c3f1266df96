package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPool_AllocateInitializesAndTracksUsage(t *testing.T) {
	p := New[int](4, "test", zap.NewNop())

	assert.Equal(t, 4, p.Cap())
	assert.Equal(t, 0, p.Used())
	assert.Equal(t, 4, p.Free())

	idx := p.Allocate(func(v *int) { *v = 42 })
	assert.Equal(t, 42, *p.At(idx))
	assert.True(t, p.InUse(idx))
	assert.Equal(t, 1, p.Used())
	assert.Equal(t, 3, p.Free())
}

func TestPool_DeallocateFreesSlotForReuse(t *testing.T) {
	p := New[int](2, "test", zap.NewNop())

	a := p.Allocate(func(v *int) { *v = 1 })
	b := p.Allocate(func(v *int) { *v = 2 })
	assert.Equal(t, 0, p.Free())

	p.Deallocate(a)
	assert.False(t, p.InUse(a))
	assert.Equal(t, 1, p.Free())

	c := p.Allocate(func(v *int) { *v = 3 })
	assert.Equal(t, a, c, "freed slot should be reused before any other")
	assert.Equal(t, 3, *p.At(c))
	assert.True(t, p.InUse(b))
}

func TestPool_AllocateSkipsSlotsStillInUse(t *testing.T) {
	p := New[int](3, "test", zap.NewNop())

	a := p.Allocate(func(v *int) { *v = 1 })
	b := p.Allocate(func(v *int) { *v = 2 })
	p.Deallocate(a)

	c := p.Allocate(func(v *int) { *v = 3 })
	assert.NotEqual(t, b, c)
	assert.True(t, p.InUse(b))
	assert.True(t, p.InUse(c))
}

func TestPool_InUseReportsFalseForOutOfRangeOrNilIndex(t *testing.T) {
	p := New[int](2, "test", zap.NewNop())
	assert.False(t, p.InUse(NilIndex))
	assert.False(t, p.InUse(99))
}
