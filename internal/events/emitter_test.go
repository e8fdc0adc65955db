package events

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event, err := NewEvent(TypeResultsStored, ResultsStored{Files: 2, Rows: 120})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TypeResultsStored, event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var payload ResultsStored
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, ResultsStored{Files: 2, Rows: 120}, payload)

	_, err = NewEvent(TypeResultsStored, make(chan int))
	assert.Error(t, err)
}

func TestInMemoryEventEmitter(t *testing.T) {
	ctx := context.Background()
	event, err := NewEvent(TypeResultsStored, ResultsStored{Rows: 1})
	require.NoError(t, err)

	t.Run("no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger.Discard())
		assert.NoError(t, emitter.EmitEvent(ctx, event))
	})

	t.Run("every handler runs in order", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger.Discard())
		var calls []string
		emitter.RegisterHandler(HandlerFunc{Fn: func(context.Context, *Event) error {
			calls = append(calls, "first")
			return errors.New("first failed")
		}})
		emitter.RegisterHandler(HandlerFunc{Fn: func(context.Context, *Event) error {
			calls = append(calls, "second")
			return errors.New("second failed")
		}})

		err := emitter.EmitEvent(ctx, event)
		assert.EqualError(t, err, "first failed")
		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("typed handlers filter", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger.Discard())
		var got []string
		emitter.RegisterHandler(HandlerFunc{Type: "other", Fn: func(_ context.Context, e *Event) error {
			got = append(got, "other")
			return nil
		}})
		emitter.RegisterHandler(HandlerFunc{Type: TypeResultsStored, Fn: func(_ context.Context, e *Event) error {
			got = append(got, e.Type)
			return nil
		}})

		require.NoError(t, emitter.EmitEvent(ctx, event))
		assert.Equal(t, []string{TypeResultsStored}, got)
	})
}
