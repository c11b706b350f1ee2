package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

func TestEmitter_EmitCallsListenersInOrder(t *testing.T) {
	e := NewEmitter()
	var got []string

	require.NoError(t, e.On(domain.EventConnectionEnable, "a", func(p any) { got = append(got, "a:"+p.(string)) }))
	require.NoError(t, e.On(domain.EventConnectionEnable, "b", func(p any) { got = append(got, "b:"+p.(string)) }))

	e.Emit(domain.EventConnectionEnable, "x")
	e.Emit(domain.EventConfigUpdate, "ignored")

	assert.Equal(t, []string{"a:x", "b:x"}, got)
}

func TestEmitter_DuplicateListenerFails(t *testing.T) {
	e := NewEmitter()
	fn := func(any) {}

	require.NoError(t, e.On(domain.EventConfigUpdate, "id", fn))
	err := e.On(domain.EventConfigUpdate, "id", fn)

	assert.ErrorIs(t, err, domain.ErrListenerExists)
	// The same id on another event is a different registration.
	assert.NoError(t, e.On(domain.EventConnectionRemove, "id", fn))
}

func TestEmitter_OffUnknownListenerFails(t *testing.T) {
	e := NewEmitter()

	err := e.Off(domain.EventConfigUpdate, "missing")

	assert.ErrorIs(t, err, domain.ErrListenerNotFound)
}

func TestEmitter_OffStopsDelivery(t *testing.T) {
	e := NewEmitter()
	calls := 0
	require.NoError(t, e.On(domain.EventConfigUpdate, "id", func(any) { calls++ }))

	e.Emit(domain.EventConfigUpdate, nil)
	require.NoError(t, e.Off(domain.EventConfigUpdate, "id"))
	e.Emit(domain.EventConfigUpdate, nil)

	assert.Equal(t, 1, calls)
	assert.False(t, e.Has(domain.EventConfigUpdate, "id"))
	assert.ErrorIs(t, e.Off(domain.EventConfigUpdate, "id"), domain.ErrListenerNotFound)
}

func TestEmitter_ListenerMayRemoveItself(t *testing.T) {
	e := NewEmitter()
	calls := 0
	require.NoError(t, e.On(domain.EventConfigUpdate, "once", func(any) {
		calls++
		_ = e.Off(domain.EventConfigUpdate, "once")
	}))

	e.Emit(domain.EventConfigUpdate, nil)
	e.Emit(domain.EventConfigUpdate, nil)

	assert.Equal(t, 1, calls)
}

func TestEmitter_RemoveAllListeners(t *testing.T) {
	e := NewEmitter()
	calls := 0
	require.NoError(t, e.On(domain.EventConfigUpdate, "a", func(any) { calls++ }))
	require.NoError(t, e.On(domain.EventConnectionEnable, "b", func(any) { calls++ }))

	e.RemoveAllListeners()
	e.Emit(domain.EventConfigUpdate, nil)
	e.Emit(domain.EventConnectionEnable, nil)

	assert.Zero(t, calls)
	assert.NoError(t, e.On(domain.EventConfigUpdate, "a", func(any) {}))
}

func TestEmitter_InvalidRegistration(t *testing.T) {
	e := NewEmitter()

	assert.ErrorIs(t, e.On(domain.EventConfigUpdate, "", func(any) {}), domain.ErrInvalidInput)
	assert.ErrorIs(t, e.On(domain.EventConfigUpdate, "id", nil), domain.ErrInvalidInput)
}

func TestEmitter_Subscribe(t *testing.T) {
	e := NewEmitter()

	sub, err := e.Subscribe(domain.EventConnectionRemove, 2)
	require.NoError(t, err)

	e.Emit(domain.EventConnectionRemove, domain.ConnectionQuery{Slug: "slack"})
	got := <-sub.C
	assert.Equal(t, domain.ConnectionQuery{Slug: "slack"}, got)

	sub.Cancel()
	sub.Cancel()
	e.Emit(domain.EventConnectionRemove, domain.ConnectionQuery{Slug: "late"})

	_, open := <-sub.C
	assert.False(t, open)
}

func TestEmitter_SubscribeDropsWhenFull(t *testing.T) {
	e := NewEmitter()
	sub, err := e.Subscribe(domain.EventConfigUpdate, 1)
	require.NoError(t, err)
	defer sub.Cancel()

	e.Emit(domain.EventConfigUpdate, 1)
	e.Emit(domain.EventConfigUpdate, 2)

	assert.Equal(t, 1, <-sub.C)
	assert.Empty(t, sub.C)
}
