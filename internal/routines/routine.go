package routines

import (
	"time"

	"github.com/2beens/fitjournal/internal/exercises"
)

type Routine struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RoutineExercise is a slot in a routine: a link to a gym exercise plus
// optional per-routine overrides of the exercise defaults. OrderIndex is
// dense and 0-based within a routine.
type RoutineExercise struct {
	ID            string   `json:"id"`
	RoutineID     string   `json:"routineId"`
	GymExerciseID string   `json:"gymExerciseId"`
	OrderIndex    int      `json:"orderIndex"`
	Sets          *float64 `json:"sets,omitempty"`
	Reps          *float64 `json:"reps,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Comments      *string  `json:"comments,omitempty"`
}

// LinkedExercise pairs a routine slot with the gym exercise it points to,
// before override resolution.
type LinkedExercise struct {
	Link RoutineExercise
	Base exercises.Exercise
}

// ResolvedExercise is what a routine slot looks like after applying the
// overrides on top of the exercise defaults.
type ResolvedExercise struct {
	LinkID        string   `json:"linkId"`
	GymExerciseID string   `json:"gymExerciseId"`
	Title         string   `json:"title"`
	BodyPart      *string  `json:"bodyPart,omitempty"`
	OrderIndex    int      `json:"orderIndex"`
	Sets          *float64 `json:"sets,omitempty"`
	Reps          *float64 `json:"reps,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Comments      *string  `json:"comments,omitempty"`
}
