package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Monotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestTime_RoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	id := NewAt(at)

	got, ok := Time(id)
	require.True(t, ok)
	assert.True(t, got.Equal(at))
}

func TestTime_Invalid(t *testing.T) {
	_, ok := Time("not-a-ulid")
	assert.False(t, ok)
}
