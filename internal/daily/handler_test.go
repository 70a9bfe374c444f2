package daily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/2beens/fitjournal/internal/activities"
	"github.com/2beens/fitjournal/internal/exercises"
	"github.com/2beens/fitjournal/internal/routines"
	"github.com/2beens/fitjournal/internal/telemetry/metrics"
	"github.com/2beens/fitjournal/internal/viewcache"
	"github.com/2beens/fitjournal/pkg"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// routinesMock is the part of the routines repo mock the daily tests
// drive directly.
type routinesMock interface {
	routinesSource
	Add(ctx context.Context, routine routines.Routine) (*routines.Routine, error)
	AddExercise(ctx context.Context, link routines.RoutineExercise) (*routines.RoutineExercise, error)
	AddBaseExercise(exercise exercises.Exercise) *exercises.Exercise
}

type testEnv struct {
	routinesRepo routinesMock
	repo         *repoMock
	router       *mux.Router
}

func testSetup(t *testing.T) testEnv {
	t.Helper()
	routinesRepo := routines.NewRepoMock()
	repo := NewRepoMock(routinesRepo)
	handler := NewHandler(
		repo,
		NewAggregator(repo),
		viewcache.NewLocalCache(1024*1024, time.Minute),
		metrics.NewTestManager(),
	)
	router := mux.NewRouter()
	handler.SetupRoutes(router)
	return testEnv{routinesRepo: routinesRepo, repo: repo, router: router}
}

func doJSON(t *testing.T, router *mux.Router, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleGetDay_absentVsInvalid(t *testing.T) {
	env := testSetup(t)

	rr := doJSON(t, env.router, "GET", "/daily/2025-03-01", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, env.router, "GET", "/daily/not-a-date", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Errors, "date")
}

func TestHandleUpsertStatistic(t *testing.T) {
	env := testSetup(t)

	rr := doJSON(t, env.router, "POST", "/daily/2025-03-01", `{"caloriesIngested": "2400", "steps": "0", "fat": ""}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var stat DailyStatistic
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stat))
	require.NotNil(t, stat.CaloriesIngested)
	assert.Equal(t, 2400., *stat.CaloriesIngested)
	// explicit zero steps is a value, blank fat is absence
	require.NotNil(t, stat.Steps)
	assert.Zero(t, *stat.Steps)
	assert.Nil(t, stat.Fat)

	// upsert again, same day keeps its identity
	rr = doJSON(t, env.router, "POST", "/daily/2025-03-01", `{"caloriesIngested": "2500"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var updated DailyStatistic
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, stat.ID, updated.ID)
	require.NotNil(t, updated.CaloriesIngested)
	assert.Equal(t, 2500., *updated.CaloriesIngested)
}

func TestHandleUpsertStatistic_negativeRejected(t *testing.T) {
	env := testSetup(t)

	rr := doJSON(t, env.router, "POST", "/daily/2025-03-01", `{"proteins": "-12"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Errors, "proteins")
}

func TestHandleLogRoutine(t *testing.T) {
	env := testSetup(t)
	ctx := context.Background()

	bench := env.routinesRepo.AddBaseExercise(exercises.Exercise{Title: "Bench Press", Sets: pkg.Float64Ptr(3)})
	routine, err := env.routinesRepo.Add(ctx, routines.Routine{Name: "Push Day", CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = env.routinesRepo.AddExercise(ctx, routines.RoutineExercise{
		RoutineID:     routine.ID,
		GymExerciseID: bench.ID,
	})
	require.NoError(t, err)

	rr := doJSON(t, env.router, "POST", "/daily/2025-03-01/routines", fmt.Sprintf(`{"routineId": %q}`, routine.ID))
	require.Equal(t, http.StatusCreated, rr.Code)

	var entry RoutineEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entry))
	assert.Equal(t, routine.ID, entry.RoutineID)

	rr = doJSON(t, env.router, "GET", "/daily/2025-03-01", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view DayView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Len(t, view.Routines, 1)
	assert.Equal(t, "Push Day", view.Routines[0].RoutineName)
	require.Len(t, view.Routines[0].Exercises, 1)
	assert.Equal(t, "Bench Press", view.Routines[0].Exercises[0].Title)
}

func TestHandleLogRoutine_unknownRoutine(t *testing.T) {
	env := testSetup(t)

	rr := doJSON(t, env.router, "POST", "/daily/2025-03-01/routines",
		`{"routineId": "d54a7e2f-3b01-45c3-b6a4-cbbd6bbf290c"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Errors, "routineId")
}

func TestHandleAddActivityEntry_defaultsFromActivity(t *testing.T) {
	env := testSetup(t)

	run := env.repo.AddActivity(activities.Activity{
		Title:       "Morning Run",
		TimeMinutes: pkg.Float64Ptr(45),
		Calories:    pkg.Float64Ptr(380),
	})

	// calories given explicitly, time minutes default from the activity
	body := fmt.Sprintf(`{"activityId": %q, "calories": "410"}`, run.ID)
	rr := doJSON(t, env.router, "POST", "/daily/2025-03-01/activities", body)
	require.Equal(t, http.StatusCreated, rr.Code)

	var entry ActivityEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entry))
	require.NotNil(t, entry.Calories)
	assert.Equal(t, 410., *entry.Calories)
	require.NotNil(t, entry.TimeMinutes)
	assert.Equal(t, 45., *entry.TimeMinutes)
}

func TestHandleAddActivityEntry_unknownActivity(t *testing.T) {
	env := testSetup(t)

	rr := doJSON(t, env.router, "POST", "/daily/2025-03-01/activities",
		`{"activityId": "0e37618f-4b3a-4a0e-a2bb-32e931080eb6"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Errors, "activityId")
}

func TestHandleAddExerciseEntry(t *testing.T) {
	env := testSetup(t)

	pullUp := env.repo.AddExercise(exercises.Exercise{
		Title: "Pull Up",
		Sets:  pkg.Float64Ptr(3),
		Reps:  pkg.Float64Ptr(8),
	})

	body := fmt.Sprintf(`{"gymExerciseId": %q, "reps": "10"}`, pullUp.ID)
	rr := doJSON(t, env.router, "POST", "/daily/2025-03-01/exercises", body)
	require.Equal(t, http.StatusCreated, rr.Code)

	var entry ExerciseEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entry))
	require.NotNil(t, entry.Reps)
	assert.Equal(t, 10., *entry.Reps)
	require.NotNil(t, entry.Sets)
	assert.Equal(t, 3., *entry.Sets)

	// the day's statistic came to life through the logging
	rr = doJSON(t, env.router, "GET", "/daily/2025-03-01", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view DayView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Len(t, view.Exercises, 1)
	assert.Equal(t, "Pull Up", view.Exercises[0].ExerciseTitle)
}

func TestHandleUpdateAndDeleteEntries(t *testing.T) {
	env := testSetup(t)
	ctx := context.Background()
	day := mustDay(t, "2025-03-01")

	run := env.repo.AddActivity(activities.Activity{Title: "Run"})
	activityEntry, err := env.repo.AddActivityEntry(ctx, day, ActivityEntry{ActivityID: run.ID})
	require.NoError(t, err)

	rr := doJSON(t, env.router, "PUT", "/daily/activities/"+activityEntry.ID, `{"timeMinutes": "30"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, env.repo.activityEntries[activityEntry.ID].TimeMinutes)
	assert.Equal(t, 30., *env.repo.activityEntries[activityEntry.ID].TimeMinutes)

	rr = doJSON(t, env.router, "DELETE", "/daily/activities/"+activityEntry.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, env.repo.activityEntries, activityEntry.ID)

	rr = doJSON(t, env.router, "DELETE", "/daily/activities/"+activityEntry.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleUpdateSnapshotExercise(t *testing.T) {
	routinesRepo := routines.NewRepoMock()
	repo := NewRepoMock(routinesRepo)
	handler := NewHandler(
		repo,
		NewAggregator(repo),
		viewcache.NewLocalCache(1024*1024, time.Minute),
		metrics.NewTestManager(),
	)
	router := mux.NewRouter()
	handler.SetupRoutes(router)
	ctx := context.Background()
	day := mustDay(t, "2025-03-01")

	bench := routinesRepo.AddBaseExercise(exercises.Exercise{Title: "Bench Press", Weight: pkg.Float64Ptr(60)})
	routine, err := routinesRepo.Add(ctx, routines.Routine{Name: "Push Day", CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = routinesRepo.AddExercise(ctx, routines.RoutineExercise{
		RoutineID:     routine.ID,
		GymExerciseID: bench.ID,
	})
	require.NoError(t, err)

	entry, err := repo.LogRoutine(ctx, day, routine.ID)
	require.NoError(t, err)
	snapshots, err := repo.SnapshotExercises(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	// correct the logged weight after the fact
	rr := doJSON(t, router, "PUT", "/daily/routines/exercises/"+snapshots[0].ID,
		`{"weight": "65", "comments": "felt heavy"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	snapshots, err = repo.SnapshotExercises(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, snapshots[0].Weight)
	assert.Equal(t, 65., *snapshots[0].Weight)
	require.NotNil(t, snapshots[0].Comments)
	assert.Equal(t, "felt heavy", *snapshots[0].Comments)
}
