package api

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/models"
)

type Empty struct{}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	User models.User `json:"user"`
}

type UpsertProfileRequest struct {
	Profile models.ProfileInput `json:"profile"`
}

type GetProfileRequest struct {
	// UserID defaults to the caller.
	UserID string `json:"user_id,omitempty"`
}

type ProfileResponse struct {
	Profile models.Profile `json:"profile"`
}

type ListProfilesRequest struct {
	UserIDs []string `json:"user_ids"`
}

type ListProfilesResponse struct {
	Profiles []models.ProfileProjection `json:"profiles"`
}

type CreateUploadRequest struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Overwrite   bool   `json:"overwrite"`
}

type CreateUploadResponse struct {
	Key       string      `json:"key"`
	URL       string      `json:"url"`
	Method    string      `json:"method"`
	Headers   http.Header `json:"headers,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// PutObjectRequest uploads through the server instead of a presigned URL.
type PutObjectRequest struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Overwrite   bool   `json:"overwrite"`
	Data        []byte `json:"data"`
}

type PutObjectResponse struct {
	Path string `json:"path"`
}

type GetPublicURLRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type GetPublicURLResponse struct {
	URL string `json:"url"`
}

type RemoveObjectsRequest struct {
	Bucket string   `json:"bucket"`
	Keys   []string `json:"keys"`
}

type InsertMemoRequest struct {
	Memo models.NewVoiceMemo `json:"memo"`
}

type MemoResponse struct {
	Memo models.VoiceMemo `json:"memo"`
}

type ListPublishedMemosRequest struct{}

type ListMemosResponse struct {
	Memos []models.VoiceMemo `json:"memos"`
}

type IncrementRequest struct {
	ID string `json:"id"`
}

type CounterResponse struct {
	Value int `json:"value"`
}

type WatchChangesRequest struct {
	Table  string             `json:"table"`
	Events models.EventFilter `json:"events,omitempty"`
}
