package repository

import (
	"context"
	"testing"
	"time"

	"buybackd/models"
	"buybackd/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewCycleRepository(testDB.DB)
	ctx := context.Background()

	t.Run("create assigns ID", func(t *testing.T) {
		cycle := testutil.CreateTestCycle()
		err := repo.Create(ctx, cycle)
		require.NoError(t, err)
		assert.NotZero(t, cycle.ID)
	})

	t.Run("get by ID round-trips fields", func(t *testing.T) {
		cycle := testutil.CreateTestCycle()
		detail := "venue unavailable"
		cycle.Status = models.CycleStatusFailed
		cycle.ErrorDetail = &detail
		require.NoError(t, repo.Create(ctx, cycle))

		got, err := repo.GetByID(ctx, cycle.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, cycle.ClaimedLamports, got.ClaimedLamports)
		assert.Equal(t, cycle.ConvertedAmount, got.ConvertedAmount)
		assert.Equal(t, models.CycleStatusFailed, got.Status)
		require.NotNil(t, got.ErrorDetail)
		assert.Equal(t, detail, *got.ErrorDetail)
	})

	t.Run("get missing cycle returns nil", func(t *testing.T) {
		got, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestCycleRepository_Update(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewCycleRepository(testDB.DB)
	ctx := context.Background()

	t.Run("updates mutable fields", func(t *testing.T) {
		cycle := testutil.CreateTestCycle()
		require.NoError(t, repo.Create(ctx, cycle))

		now := time.Now().UTC()
		cycle.Status = models.CycleStatusCompleted
		cycle.CompletedAt = &now
		cycle.ConvertedAmount = 80_000_000
		require.NoError(t, repo.Update(ctx, cycle))

		got, err := repo.GetByID(ctx, cycle.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CycleStatusCompleted, got.Status)
		assert.Equal(t, uint64(80_000_000), got.ConvertedAmount)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("missing cycle errors", func(t *testing.T) {
		cycle := testutil.CreateTestCycle()
		cycle.ID = 999999
		err := repo.Update(ctx, cycle)
		assert.Error(t, err)
	})
}

func TestCycleRepository_GetRecent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewCycleRepository(testDB.DB)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		cycle := testutil.CreateTestCycle()
		cycle.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, cycle))
	}

	cycles, err := repo.GetRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, cycles, 3)
	// Newest first.
	assert.True(t, cycles[0].StartedAt.After(cycles[1].StartedAt))
	assert.True(t, cycles[1].StartedAt.After(cycles[2].StartedAt))
}
