package dto

import (
	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// AuthResponse represents the response after register/login
type AuthResponse struct {
	User   *models.User `json:"user"`
	Tokens TokenPair    `json:"tokens"`
}

// TokenPair carries the issued access/refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ThreadListResponse represents the list of threads for a user
type ThreadListResponse struct {
	Threads []models.ThreadView `json:"threads"`
	Total   int                 `json:"total"`
}

// PaginatedMessagesResponse represents a page of thread history
type PaginatedMessagesResponse struct {
	Messages   []models.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// UploadResponse represents the response after uploading an attachment
type UploadResponse struct {
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
	Size     int64  `json:"size"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
