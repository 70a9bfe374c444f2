//go:build integration_test || all_tests

package daily

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/2beens/fitjournal/internal/db"
	"github.com/2beens/fitjournal/internal/exercises"
	"github.com/2beens/fitjournal/internal/routines"
	"github.com/2beens/fitjournal/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, *routines.Repo, *exercises.Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postgres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "fitjournal",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	routinesRepo := routines.NewRepo(dbPool)
	return NewRepo(dbPool, routinesRepo), routinesRepo, exercises.NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func cleanTables(ctx context.Context, t *testing.T, repo *Repo) {
	t.Helper()
	for _, table := range []string{"daily_statistic", "routine", "gym_exercise", "activity"} {
		_, err := repo.db.Exec(ctx, "DELETE FROM "+table+";")
		require.NoError(t, err)
	}
}

func TestRepo_UpsertStatistic(t *testing.T) {
	repo, _, _, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	cleanTables(ctx, t, repo)

	day := mustDay(t, "2025-03-01")
	_, err := repo.GetStatisticByDay(ctx, day)
	assert.ErrorIs(t, err, ErrDayNotFound)

	stat, err := repo.UpsertStatistic(ctx, DailyStatistic{
		Day:      day,
		Proteins: pkg.Float64Ptr(140),
		Steps:    pkg.Float64Ptr(0),
	})
	require.NoError(t, err)

	retrieved, err := repo.GetStatisticByDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, stat.ID, retrieved.ID)
	require.NotNil(t, retrieved.Proteins)
	assert.Equal(t, 140., *retrieved.Proteins)
	require.NotNil(t, retrieved.Steps)
	assert.Zero(t, *retrieved.Steps)
	assert.Nil(t, retrieved.Carbs)

	// second upsert on the same day replaces fields, keeps the row
	_, err = repo.UpsertStatistic(ctx, DailyStatistic{
		Day:   day,
		Carbs: pkg.Float64Ptr(250),
	})
	require.NoError(t, err)
	retrieved, err = repo.GetStatisticByDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, stat.ID, retrieved.ID)
	assert.Nil(t, retrieved.Proteins)
	require.NotNil(t, retrieved.Carbs)
	assert.Equal(t, 250., *retrieved.Carbs)
}

func TestRepo_LogRoutine_snapshotFrozen(t *testing.T) {
	repo, routinesRepo, exercisesRepo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	cleanTables(ctx, t, repo)
	day := mustDay(t, "2025-03-02")

	bench, err := exercisesRepo.Add(ctx, exercises.Exercise{
		Title:     "Bench Press",
		Sets:      pkg.Float64Ptr(3),
		Weight:    pkg.Float64Ptr(60),
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	routine, err := routinesRepo.Add(ctx, routines.Routine{Name: "Push Day", CreatedAt: time.Now()})
	require.NoError(t, err)
	link, err := routinesRepo.AddExercise(ctx, routines.RoutineExercise{
		RoutineID:     routine.ID,
		GymExerciseID: bench.ID,
		Weight:        pkg.Float64Ptr(70),
	})
	require.NoError(t, err)

	entry, err := repo.LogRoutine(ctx, day, routine.ID)
	require.NoError(t, err)

	snapshots, err := repo.SnapshotExercises(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	require.NotNil(t, snapshots[0].Weight)
	assert.Equal(t, 70., *snapshots[0].Weight)
	require.NotNil(t, snapshots[0].Sets)
	assert.Equal(t, 3., *snapshots[0].Sets)

	// later routine edits leave the snapshot alone
	link.Weight = pkg.Float64Ptr(100)
	require.NoError(t, routinesRepo.UpdateExercise(ctx, link))
	snapshots, err = repo.SnapshotExercises(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, snapshots[0].Weight)
	assert.Equal(t, 70., *snapshots[0].Weight)

	// both logging paths land on the same statistic row
	stat, err := repo.GetStatisticByDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, stat.ID, entry.DailyStatisticID)

	entries, err := repo.RoutineEntries(ctx, stat.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Push Day", entries[0].RoutineName)

	require.NoError(t, repo.DeleteRoutineEntry(ctx, entry.ID))
	snapshots, err = repo.SnapshotExercises(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestRepo_ExerciseEntry_defaults(t *testing.T) {
	repo, _, exercisesRepo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	cleanTables(ctx, t, repo)
	day := mustDay(t, "2025-03-03")

	pullUp, err := exercisesRepo.Add(ctx, exercises.Exercise{
		Title:     "Pull Up",
		Sets:      pkg.Float64Ptr(3),
		Reps:      pkg.Float64Ptr(8),
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	entry, err := repo.AddExerciseEntry(ctx, day, ExerciseEntry{
		GymExerciseID: pullUp.ID,
		Reps:          pkg.Float64Ptr(10),
	})
	require.NoError(t, err)
	require.NotNil(t, entry.Reps)
	assert.Equal(t, 10., *entry.Reps)
	require.NotNil(t, entry.Sets)
	assert.Equal(t, 3., *entry.Sets)
	assert.Nil(t, entry.Weight)
}
