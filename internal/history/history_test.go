package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_PushBackForward(t *testing.T) {
	h := New("/base")
	assert.Equal(t, "/base", h.Current())
	assert.False(t, h.CanBack())
	assert.False(t, h.CanForward())

	h.Push("/base/a")
	h.Push("/base/a/b")
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, "/base/a/b", h.Current())
	assert.True(t, h.CanBack())

	p, ok := h.Back()
	require.True(t, ok)
	assert.Equal(t, "/base/a", p)
	assert.True(t, h.CanForward())

	p, ok = h.Forward()
	require.True(t, ok)
	assert.Equal(t, "/base/a/b", p)

	_, ok = h.Forward()
	assert.False(t, ok)
}

func TestHistory_PushTruncatesForward(t *testing.T) {
	h := New("/base")
	h.Push("/base/a")
	h.Push("/base/a/b")
	h.Back()
	h.Back()

	h.Push("/base/c")
	assert.Equal(t, []string{"/base", "/base/c"}, h.Entries())
	assert.False(t, h.CanForward())
	assert.Equal(t, 1, h.Index())
}

func TestHistory_PushCurrentIsNoop(t *testing.T) {
	h := New("/base")
	h.Push("/base")
	assert.Equal(t, 1, h.Len())
}

func TestHistory_ResetAndSeek(t *testing.T) {
	h := New("/base")
	h.Push("/base/a")
	h.Push("/base/b")

	assert.Equal(t, "/base", h.Seek(-5))
	assert.Equal(t, "/base/b", h.Seek(99))

	h.Reset("/base")
	assert.Equal(t, []string{"/base"}, h.Entries())
	assert.Equal(t, 0, h.Index())
}

func TestHistory_EntriesIsCopy(t *testing.T) {
	h := New("/base")
	e := h.Entries()
	e[0] = "/mutated"
	assert.Equal(t, "/base", h.Current())
}
