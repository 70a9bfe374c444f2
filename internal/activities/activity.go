package activities

import "time"

type Activity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	TimeMinutes *float64  `json:"timeMinutes,omitempty"`
	Calories    *float64  `json:"calories,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
