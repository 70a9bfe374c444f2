package exercises

import "time"

// Exercise is a gym exercise definition with its default
// sets/reps/weight. Routines may override the defaults per slot.
type Exercise struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Comments    *string   `json:"comments,omitempty"`
	BodyPart    *string   `json:"bodyPart,omitempty"`
	Sets        *float64  `json:"sets,omitempty"`
	Reps        *float64  `json:"reps,omitempty"`
	Weight      *float64  `json:"weight,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
