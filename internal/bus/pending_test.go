package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingTable(t *testing.T) {
	t.Parallel()
	p := NewPendingTable()

	ch, err := p.Insert("a")
	require.NoError(t, err)
	_, err = p.Insert("a")
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, p.Len())

	require.True(t, p.Resolve(Message{ID: "a", Event: echo}))
	require.False(t, p.Resolve(Message{ID: "a", Event: echo}), "second response must be dropped")
	got := <-ch
	assert.Equal(t, echo, got.Event)
	assert.Equal(t, 0, p.Len())

	_, err = p.Insert("b")
	require.NoError(t, err)
	p.Remove("b")
	assert.False(t, p.Resolve(Message{ID: "b"}))
}
