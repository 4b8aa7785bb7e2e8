package api

import (
	"time"

	"github.com/satriahrh/vaani/domain/entities"
)

// SessionResponse represents the response payload for session creation
type SessionResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LanguagesResponse lists the target languages offered to the selector
type LanguagesResponse struct {
	Source    string              `json:"source"`
	Default   string              `json:"default"`
	Languages []entities.Language `json:"languages"`
}

// HistoryResponse lists recent runs of the caller's session, newest first
type HistoryResponse struct {
	SessionID string                        `json:"session_id"`
	Records   []*entities.TranslationRecord `json:"records"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
