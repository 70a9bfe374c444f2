package daily

import "time"

// DayFormat is the wire format for the {date} path segment.
const DayFormat = "2006-01-02"

// DailyStatistic is the root record of one tracked day. It is created
// lazily: logging anything on a day creates it first.
type DailyStatistic struct {
	ID               string    `json:"id"`
	Day              time.Time `json:"day"`
	CaloriesIngested *float64  `json:"caloriesIngested,omitempty"`
	Proteins         *float64  `json:"proteins,omitempty"`
	Carbs            *float64  `json:"carbs,omitempty"`
	Fat              *float64  `json:"fat,omitempty"`
	Steps            *float64  `json:"steps,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

type RoutineEntry struct {
	ID               string    `json:"id"`
	DailyStatisticID string    `json:"dailyStatisticId"`
	RoutineID        string    `json:"routineId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SnapshotExercise is one exercise of a logged routine, frozen at
// logging time. Later edits of the routine or the gym exercise do not
// touch it; only its own update endpoint does.
type SnapshotExercise struct {
	ID             string   `json:"id"`
	RoutineEntryID string   `json:"routineEntryId"`
	GymExerciseID  string   `json:"gymExerciseId"`
	OrderIndex     int      `json:"orderIndex"`
	Sets           *float64 `json:"sets,omitempty"`
	Reps           *float64 `json:"reps,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
	Comments       *string  `json:"comments,omitempty"`
}

type ActivityEntry struct {
	ID               string    `json:"id"`
	DailyStatisticID string    `json:"dailyStatisticId"`
	ActivityID       string    `json:"activityId"`
	TimeMinutes      *float64  `json:"timeMinutes,omitempty"`
	Calories         *float64  `json:"calories,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

type ExerciseEntry struct {
	ID               string    `json:"id"`
	DailyStatisticID string    `json:"dailyStatisticId"`
	GymExerciseID    string    `json:"gymExerciseId"`
	Sets             *float64  `json:"sets,omitempty"`
	Reps             *float64  `json:"reps,omitempty"`
	Weight           *float64  `json:"weight,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// view types: entries joined with display fields of the linked entities

type SnapshotExerciseView struct {
	SnapshotExercise
	Title    string  `json:"title"`
	BodyPart *string `json:"bodyPart,omitempty"`
}

type RoutineEntryView struct {
	RoutineEntry
	RoutineName string                 `json:"routineName"`
	Exercises   []SnapshotExerciseView `json:"exercises"`
}

type ActivityEntryView struct {
	ActivityEntry
	ActivityTitle string `json:"activityTitle"`
}

type ExerciseEntryView struct {
	ExerciseEntry
	ExerciseTitle string  `json:"exerciseTitle"`
	BodyPart      *string `json:"bodyPart,omitempty"`
}

// DayView is the full aggregation of one day.
type DayView struct {
	Statistic  DailyStatistic      `json:"statistic"`
	Routines   []RoutineEntryView  `json:"routines"`
	Activities []ActivityEntryView `json:"activities"`
	Exercises  []ExerciseEntryView `json:"exercises"`
}
