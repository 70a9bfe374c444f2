package recipes

import "time"

type Recipe struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	SocialMediaURL *string   `json:"socialMediaUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
