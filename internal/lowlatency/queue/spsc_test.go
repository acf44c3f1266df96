package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSPSC_RoundTripPreservesOrder(t *testing.T) {
	q := New[int](8, "test", zap.NewNop())

	for i := 0; i < 5; i++ {
		*q.NextToWrite() = i
		q.CommitWrite()
	}
	assert.Equal(t, 5, q.Size())

	for i := 0; i < 5; i++ {
		got := q.NextToRead()
		if assert.NotNil(t, got) {
			assert.Equal(t, i, *got)
		}
		q.CommitRead()
	}
	assert.Equal(t, 0, q.Size())
}

func TestSPSC_NextToReadNilWhenEmpty(t *testing.T) {
	q := New[int](4, "test", zap.NewNop())
	assert.Nil(t, q.NextToRead())
}

func TestSPSC_WrapsAroundCapacity(t *testing.T) {
	q := New[int](4, "test", zap.NewNop())

	for round := 0; round < 3; round++ {
		for i := 0; i < 4; i++ {
			*q.NextToWrite() = round*10 + i
			q.CommitWrite()
		}
		for i := 0; i < 4; i++ {
			got := q.NextToRead()
			if assert.NotNil(t, got) {
				assert.Equal(t, round*10+i, *got)
			}
			q.CommitRead()
		}
	}
}

func TestSPSC_CapReportsFixedCapacity(t *testing.T) {
	q := New[int](16, "test", zap.NewNop())
	assert.Equal(t, 16, q.Cap())
}
