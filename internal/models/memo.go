package models

import "time"

// VoiceMemo is a row of voice_memos.
type VoiceMemo struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	AudioURL      string    `json:"audio_url"`
	Duration      int       `json:"duration"`
	CreatedAt     time.Time `json:"created_at"`
	IsPublished   bool      `json:"is_published"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
}

// NewVoiceMemo is the insert payload. Server-assigned fields are absent.
type NewVoiceMemo struct {
	UserID      string `json:"user_id"`
	Title       string `json:"title" validate:"required,max=120"`
	AudioURL    string `json:"audio_url" validate:"required"`
	Duration    int    `json:"duration" validate:"gte=0"`
	IsPublished bool   `json:"is_published"`
}

// Author is the profile projection shown next to a memo.
type Author struct {
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// MemoWithAuthor is a feed item: a memo joined with its author projection.
type MemoWithAuthor struct {
	VoiceMemo
	Author Author `json:"author"`
}
