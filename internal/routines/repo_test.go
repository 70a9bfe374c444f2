//go:build integration_test || all_tests

package routines

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/2beens/fitjournal/internal/db"
	"github.com/2beens/fitjournal/internal/exercises"
	"github.com/2beens/fitjournal/pkg"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, *exercises.Repo, func()) {
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

	return NewRepo(dbPool), exercises.NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func deleteAll(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(ctx, `DELETE FROM routine;`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM gym_exercise;`)
	require.NoError(t, err)
}

func TestRepo_BasicCRUD(t *testing.T) {
	repo, _, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	deleteAll(ctx, t, repo.db)

	added, err := repo.Add(ctx, Routine{Name: "Push Day", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NotNil(t, added)
	assert.NotEmpty(t, added.ID)

	retrieved, err := repo.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Push Day", retrieved.Name)
	assert.Nil(t, retrieved.Description)

	retrieved.Name = "Pull Day"
	require.NoError(t, repo.Update(ctx, retrieved))
	retrieved, err = repo.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pull Day", retrieved.Name)

	listed, err := repo.List(ctx, ListParams{Query: "pull"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, added.ID, listed[0].ID)

	require.NoError(t, repo.Delete(ctx, added.ID))
	_, err = repo.Get(ctx, added.ID)
	assert.ErrorIs(t, err, ErrRoutineNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, added.ID), ErrRoutineNotFound)
}

func TestRepo_ExerciseLinks(t *testing.T) {
	repo, exercisesRepo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	deleteAll(ctx, t, repo.db)

	bench, err := exercisesRepo.Add(ctx, exercises.Exercise{
		Title:     "Bench Press",
		Sets:      pkg.Float64Ptr(3),
		Reps:      pkg.Float64Ptr(10),
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	routine, err := repo.Add(ctx, Routine{Name: "Push Day", CreatedAt: time.Now()})
	require.NoError(t, err)

	link1, err := repo.AddExercise(ctx, RoutineExercise{
		RoutineID:     routine.ID,
		GymExerciseID: bench.ID,
		Weight:        pkg.Float64Ptr(70),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, link1.OrderIndex)

	link2, err := repo.AddExercise(ctx, RoutineExercise{
		RoutineID:     routine.ID,
		GymExerciseID: bench.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, link2.OrderIndex)

	linked, err := repo.ListExercises(ctx, routine.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, link1.ID, linked[0].Link.ID)
	assert.Equal(t, "Bench Press", linked[0].Base.Title)
	require.NotNil(t, linked[0].Link.Weight)
	assert.Equal(t, 70., *linked[0].Link.Weight)

	// removing the first one closes the gap
	require.NoError(t, repo.RemoveExercise(ctx, routine.ID, link1.ID))
	linked, err = repo.ListExercises(ctx, routine.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, link2.ID, linked[0].Link.ID)
	assert.Equal(t, 0, linked[0].Link.OrderIndex)

	assert.ErrorIs(t, repo.RemoveExercise(ctx, routine.ID, link1.ID), ErrRoutineExerciseNotFound)
}

func TestRepo_Reorder(t *testing.T) {
	repo, exercisesRepo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	deleteAll(ctx, t, repo.db)

	squat, err := exercisesRepo.Add(ctx, exercises.Exercise{Title: "Squat", CreatedAt: time.Now()})
	require.NoError(t, err)
	routine, err := repo.Add(ctx, Routine{Name: "Leg Day", CreatedAt: time.Now()})
	require.NoError(t, err)

	var linkIDs []string
	for i := 0; i < 4; i++ {
		link, err := repo.AddExercise(ctx, RoutineExercise{RoutineID: routine.ID, GymExerciseID: squat.ID})
		require.NoError(t, err)
		linkIDs = append(linkIDs, link.ID)
	}

	newOrder := []string{linkIDs[3], linkIDs[1], linkIDs[0], linkIDs[2]}
	require.NoError(t, repo.Reorder(ctx, routine.ID, newOrder))

	linked, err := repo.ListExercises(ctx, routine.ID)
	require.NoError(t, err)
	require.Len(t, linked, 4)
	for i, le := range linked {
		assert.Equal(t, newOrder[i], le.Link.ID)
		assert.Equal(t, i, le.Link.OrderIndex)
	}

	// a failed reorder must not change anything
	err = repo.Reorder(ctx, routine.ID, []string{linkIDs[0]})
	assert.ErrorIs(t, err, ErrOrderMismatch)
	linked, err = repo.ListExercises(ctx, routine.ID)
	require.NoError(t, err)
	for i, le := range linked {
		assert.Equal(t, newOrder[i], le.Link.ID)
	}
}

func TestRepo_Reorder_concurrent(t *testing.T) {
	repo, exercisesRepo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	deleteAll(ctx, t, repo.db)

	squat, err := exercisesRepo.Add(ctx, exercises.Exercise{Title: "Squat", CreatedAt: time.Now()})
	require.NoError(t, err)
	routine, err := repo.Add(ctx, Routine{Name: "Leg Day", CreatedAt: time.Now()})
	require.NoError(t, err)

	var linkIDs []string
	for i := 0; i < 5; i++ {
		link, err := repo.AddExercise(ctx, RoutineExercise{RoutineID: routine.ID, GymExerciseID: squat.ID})
		require.NoError(t, err)
		linkIDs = append(linkIDs, link.ID)
	}

	order1 := []string{linkIDs[4], linkIDs[3], linkIDs[2], linkIDs[1], linkIDs[0]}
	order2 := []string{linkIDs[1], linkIDs[3], linkIDs[0], linkIDs[4], linkIDs[2]}

	var wg sync.WaitGroup
	for _, order := range [][]string{order1, order2} {
		wg.Add(1)
		go func(order []string) {
			defer wg.Done()
			assert.NoError(t, repo.Reorder(ctx, routine.ID, order))
		}(order)
	}
	wg.Wait()

	// one of the two orders won in full, no interleaving
	linked, err := repo.ListExercises(ctx, routine.ID)
	require.NoError(t, err)
	require.Len(t, linked, 5)
	got := make([]string, 0, len(linked))
	for i, le := range linked {
		assert.Equal(t, i, le.Link.OrderIndex)
		got = append(got, le.Link.ID)
	}
	if !assert.ObjectsAreEqual(order1, got) && !assert.ObjectsAreEqual(order2, got) {
		t.Errorf("final order matches neither submitted order: %v", got)
	}
}
