package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/2beens/fitjournal/internal/daily"
	"github.com/2beens/fitjournal/internal/exercises"
	"github.com/2beens/fitjournal/internal/routines"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoutineDayFlow walks the whole path: exercise -> routine ->
// routine exercise with an override -> logged day -> day view with the
// snapshot frozen against a later routine edit.
func (s *IntegrationTestSuite) TestRoutineDayFlow() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	token := s.doLogin(ctx, t)

	status, respBytes := s.doReq(ctx, t, "POST", "/exercises", token, map[string]string{
		"title":    "Bench Press",
		"bodyPart": "chest",
		"sets":     "3",
		"reps":     "10",
		"weight":   "60",
	})
	require.Equal(t, http.StatusCreated, status)
	var benchPress exercises.Exercise
	require.NoError(t, json.Unmarshal(respBytes, &benchPress))

	status, respBytes = s.doReq(ctx, t, "POST", "/routines", token, map[string]string{
		"name": "Push Day",
	})
	require.Equal(t, http.StatusCreated, status)
	var pushDay routines.Routine
	require.NoError(t, json.Unmarshal(respBytes, &pushDay))

	status, respBytes = s.doReq(ctx, t, "POST", fmt.Sprintf("/routines/%s/exercises", pushDay.ID), token, map[string]string{
		"gymExerciseId": benchPress.ID,
		"weight":        "70", // override the exercise default
	})
	require.Equal(t, http.StatusCreated, status)
	var link routines.RoutineExercise
	require.NoError(t, json.Unmarshal(respBytes, &link))
	assert.Equal(t, 0, link.OrderIndex)

	// the routine detail resolves overrides against exercise defaults
	status, respBytes = s.doReq(ctx, t, "GET", fmt.Sprintf("/routines/%s", pushDay.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	var routineView routines.RoutineView
	require.NoError(t, json.Unmarshal(respBytes, &routineView))
	require.Len(t, routineView.Exercises, 1)
	require.NotNil(t, routineView.Exercises[0].Weight)
	assert.Equal(t, 70.0, *routineView.Exercises[0].Weight)
	require.NotNil(t, routineView.Exercises[0].Sets)
	assert.Equal(t, 3.0, *routineView.Exercises[0].Sets)

	day := "2026-02-03"

	status, _ = s.doReq(ctx, t, "GET", "/daily/"+day, token, nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = s.doReq(ctx, t, "POST", fmt.Sprintf("/daily/%s/routines", day), token, map[string]string{
		"routineId": pushDay.ID,
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = s.doReq(ctx, t, "POST", "/daily/"+day, token, map[string]string{
		"caloriesIngested": "2400",
		"steps":            "9000",
	})
	require.Equal(t, http.StatusOK, status)

	// edit the routine override after logging, the snapshot must not move
	status, _ = s.doReq(ctx, t, "PUT", fmt.Sprintf("/routines/%s/exercises/%s", pushDay.ID, link.ID), token, map[string]string{
		"gymExerciseId": benchPress.ID,
		"weight":        "100",
	})
	require.Equal(t, http.StatusOK, status)

	status, respBytes = s.doReq(ctx, t, "GET", "/daily/"+day, token, nil)
	require.Equal(t, http.StatusOK, status)

	var dayView daily.DayView
	require.NoError(t, json.Unmarshal(respBytes, &dayView))
	require.NotNil(t, dayView.Statistic.CaloriesIngested)
	assert.Equal(t, 2400.0, *dayView.Statistic.CaloriesIngested)
	require.Len(t, dayView.Routines, 1)
	assert.Equal(t, "Push Day", dayView.Routines[0].RoutineName)
	require.Len(t, dayView.Routines[0].Exercises, 1)

	snapshot := dayView.Routines[0].Exercises[0]
	assert.Equal(t, "Bench Press", snapshot.Title)
	require.NotNil(t, snapshot.Weight)
	assert.Equal(t, 70.0, *snapshot.Weight)
}
