package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler(nil, "", nil)
	require.NoError(t, err)

	after := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC), s.Next(after))

	s, err = NewScheduler(nil, "@hourly", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC), s.Next(after))

	_, err = NewScheduler(nil, "every tuesday", nil)
	assert.Error(t, err)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	st := setupTestStore(t)
	s, err := NewScheduler(NewBuilder(st), "@yearly", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
