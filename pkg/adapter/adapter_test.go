package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTotalAndPush(t *testing.T) {
	var l List
	assert.Equal(t, 0, l.Total())

	l.Push(NewShared([]byte{1, 2, 3}))
	l.Push(NewShared([]byte{4, 5}))
	assert.Equal(t, 5, l.Total())
}

func TestListPushEmptyBufferIsNoop(t *testing.T) {
	var l List
	l.Push(NewShared(nil))
	assert.Equal(t, 0, l.Total())
}

func TestListTakeContiguous(t *testing.T) {
	var l List
	l.Push(NewShared([]byte{1, 2, 3}))

	buf := l.Take(3)
	assert.Equal(t, []byte{1, 2, 3}, buf.Bytes())
	assert.Equal(t, 0, l.Total())
}

func TestListTakeAcrossBuffers(t *testing.T) {
	var l List
	l.Push(NewShared([]byte{1, 2, 3}))
	l.Push(NewShared([]byte{4, 5, 6}))
	l.Push(NewShared([]byte{7, 8}))

	buf := l.Take(5)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, buf.Bytes())
	assert.Equal(t, 3, l.Total())

	rest := l.Take(3)
	assert.Equal(t, []byte{6, 7, 8}, rest.Bytes())
	assert.Equal(t, 0, l.Total())
}

func TestListTakeListPreservesOriginalBoundaries(t *testing.T) {
	var l List
	l.Push(NewShared([]byte{1, 2, 3}))
	l.Push(NewShared([]byte{4, 5, 6}))

	bufs := l.TakeList(5)
	require.Len(t, bufs, 2)
	assert.Equal(t, []byte{1, 2, 3}, bufs[0].Bytes())
	assert.Equal(t, []byte{4, 5}, bufs[1].Bytes())
	assert.Equal(t, 1, l.Total())
}

func TestListPeekDoesNotConsume(t *testing.T) {
	var l List
	l.Push(NewShared([]byte{1, 2, 3}))
	l.Push(NewShared([]byte{4, 5, 6}))

	out := make([]byte, 3)
	l.Peek(2, 3, out)
	assert.Equal(t, []byte{3, 4, 5}, out)
	assert.Equal(t, 6, l.Total())
}

func TestListClear(t *testing.T) {
	var l List
	l.Push(NewShared([]byte{1, 2, 3}))
	l.Clear()
	assert.Equal(t, 0, l.Total())
	assert.Equal(t, Buffer{}, l.Take(1))
}

func TestBufferMakeWritableCopiesSharedBuffer(t *testing.T) {
	backing := []byte{1, 2, 3, 4}
	shared := NewShared(backing)

	writable := shared.MakeWritable()
	writable.PutUint32BE(0, 0xAABBCCDD)

	assert.Equal(t, []byte{1, 2, 3, 4}, backing, "mutating the writable copy must not alias the original backing array")
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, writable.Bytes())
}

func TestBufferMakeWritableIsNoopForOwnedBuffer(t *testing.T) {
	owned := NewOwned([]byte{1, 2, 3, 4})
	writable := owned.MakeWritable()
	writable.PutUint32BE(0, 0xAABBCCDD)

	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, owned.Bytes(), "owned buffers alias the same backing array")
}
