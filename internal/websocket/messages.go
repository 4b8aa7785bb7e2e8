package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/satriahrh/vaani/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Client to server message types
const (
	MessageTypePing           MessageType = "ping"
	MessageTypeLanguageChange MessageType = "language_change"
	MessageTypeRecordingStart MessageType = "recording_start"
	MessageTypeRecordingEnd   MessageType = "recording_end"
)

// Server to client message types
const (
	MessageTypePong  MessageType = "pong"
	MessageTypeState MessageType = "state"
	MessageTypeError MessageType = "error"
)

// Error codes sent in ErrorMessage
const (
	ErrorCodeInvalidMessage      = "invalid_message"
	ErrorCodeUnsupportedLanguage = "unsupported_language"
	ErrorCodeRecordingNotStarted = "recording_not_started"
	ErrorCodeRecordingTooLarge   = "recording_too_large"
	ErrorCodeSessionClosed       = "session_closed"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// LanguageChangeMessage selects a new target language
type LanguageChangeMessage struct {
	BaseMessage
	Language string `json:"language"`
}

// RecordingStartMessage opens a recording. Binary frames that follow are
// appended to it until RecordingEndMessage.
type RecordingStartMessage struct {
	BaseMessage
	MIMEType string `json:"mime_type"`
	// Language overrides the selected language for this recording only when set
	Language string `json:"language,omitempty"`
}

// RecordingEndMessage closes the recording and starts translating it
type RecordingEndMessage struct {
	BaseMessage
}

// StateMessage carries a snapshot of the session state after a transition
type StateMessage struct {
	BaseMessage
	SessionID string                `json:"session_id"`
	State     entities.SessionState `json:"state"`
}

// ErrorMessage represents a protocol error. Pipeline failures are reported
// through StateMessage instead.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct {
	maxMIMETypeLength int
}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{maxMIMETypeLength: 128}
}

// ValidateMessage parses and validates an incoming text frame
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	if base.Timestamp == "" {
		base.Timestamp = time.Now().Format(time.RFC3339)
	}

	switch base.Type {
	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		msg.BaseMessage = base
		return &msg, nil

	case MessageTypeLanguageChange:
		var msg LanguageChangeMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid language change message: %w", err)
		}
		msg.Language = strings.TrimSpace(msg.Language)
		if msg.Language == "" {
			return nil, fmt.Errorf("language is required")
		}
		msg.BaseMessage = base
		return &msg, nil

	case MessageTypeRecordingStart:
		var msg RecordingStartMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid recording start message: %w", err)
		}
		if err := v.validateRecordingStart(&msg); err != nil {
			return nil, err
		}
		msg.BaseMessage = base
		return &msg, nil

	case MessageTypeRecordingEnd:
		return &RecordingEndMessage{BaseMessage: base}, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// validateRecordingStart validates recording start fields
func (v *MessageValidator) validateRecordingStart(msg *RecordingStartMessage) error {
	msg.MIMEType = strings.TrimSpace(msg.MIMEType)
	msg.Language = strings.TrimSpace(msg.Language)

	if msg.MIMEType == "" {
		return fmt.Errorf("mime_type is required")
	}
	if len(msg.MIMEType) > v.maxMIMETypeLength {
		return fmt.Errorf("mime_type is too long")
	}
	if !strings.HasPrefix(strings.ToLower(msg.MIMEType), "audio/") {
		return fmt.Errorf("mime_type must be an audio type")
	}
	return nil
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Code:    code,
		Message: message,
		Details: details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePong,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Data: data,
	}
}

// CreateStateMessage wraps a session state snapshot
func CreateStateMessage(sessionID string, state entities.SessionState) *StateMessage {
	return &StateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeState,
			Timestamp: time.Now().Format(time.RFC3339Nano),
		},
		SessionID: sessionID,
		State:     state,
	}
}
