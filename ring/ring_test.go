package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_PushPop_FIFO(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cap := rapid.IntRange(1, 32).Draw(t, "cap")
		items := rapid.SliceOfN(rapid.Int(), 0, cap).Draw(t, "items")

		b := New[int](cap)
		for _, it := range items {
			ok := b.Push(it)
			assert.True(t, ok)
		}
		assert.Equal(t, len(items), b.Count())

		for _, want := range items {
			got, ok := b.Pop()
			assert.True(t, ok)
			assert.Equal(t, want, got)
		}
		assert.Equal(t, 0, b.Count())
		_, ok := b.Pop()
		assert.False(t, ok)
	})
}

func Test_Push_RejectsWhenFull(t *testing.T) {
	b := New[int](2)
	assert.True(t, b.Push(1))
	assert.True(t, b.Push(2))
	assert.False(t, b.Push(3))
	assert.Equal(t, 2, b.Count())
}

func Test_ForcePush_EvictsOldest(t *testing.T) {
	b := New[int](2)
	b.Push(1)
	b.Push(2)

	assert.True(t, b.ForcePush(3))
	assert.Equal(t, 2, b.Count())

	v, ok := b.Pop()
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = b.Pop()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func Test_Peek_DoesNotConsume(t *testing.T) {
	b := New[string](3)
	b.Push("a")
	b.Push("b")

	v, ok := b.Peek()
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, b.Count())
}

func Test_Empty_DrainsEverything(t *testing.T) {
	b := New[int](4)
	b.Push(1)
	b.Push(2)
	b.Push(3)
	b.Empty()
	assert.Equal(t, 0, b.Count())
	_, ok := b.Peek()
	assert.False(t, ok)
}

func Test_WrapAround(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)
	b.Pop()
	b.Push(3)
	b.Push(4)

	var got []int
	for {
		v, ok := b.Pop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{2, 3, 4}, got)
}
