package models

import "time"

// Profile is a row of user_profiles. An empty PhotoURL means no photo.
type Profile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Age         int       `json:"age"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Interests   []string  `json:"interests"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfileInput is the onboarding payload.
type ProfileInput struct {
	DisplayName string   `json:"display_name" validate:"required,min=2,max=80"`
	Age         int      `json:"age" validate:"gte=16,lte=100"`
	PhotoURL    string   `json:"photo_url,omitempty" validate:"omitempty,url"`
	Interests   []string `json:"interests" validate:"min=1,dive,required"`
}

// ProfileProjection is the subset of a profile used by the feed.
type ProfileProjection struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
}
