package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule_Next(t *testing.T) {
	anchor := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	schedule := intervalSchedule{anchor: anchor, every: time.Hour}

	t.Run("mid-interval ticks on the grid", func(t *testing.T) {
		next := schedule.Next(anchor.Add(25 * time.Minute))
		assert.Equal(t, anchor.Add(time.Hour), next)
	})

	t.Run("exactly on a tick moves to the following one", func(t *testing.T) {
		next := schedule.Next(anchor.Add(2 * time.Hour))
		assert.Equal(t, anchor.Add(3*time.Hour), next)
	})

	t.Run("long downtime stays aligned to the anchor", func(t *testing.T) {
		next := schedule.Next(anchor.Add(49*time.Hour + 10*time.Minute))
		assert.Equal(t, anchor.Add(50*time.Hour), next)
	})

	t.Run("before the anchor fires at the anchor", func(t *testing.T) {
		next := schedule.Next(anchor.Add(-30 * time.Minute))
		assert.Equal(t, anchor, next)
	})

	t.Run("zero interval never fires", func(t *testing.T) {
		next := intervalSchedule{anchor: anchor}.Next(anchor)
		assert.True(t, next.IsZero())
	})
}
