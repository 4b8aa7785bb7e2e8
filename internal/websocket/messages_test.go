package websocket

import (
	"encoding/json"
	"testing"

	"github.com/satriahrh/vaani/domain/entities"
)

func TestMessageValidator_ValidateMessage(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name     string
		message  string
		wantType interface{}
		wantErr  bool
	}{
		{
			name:     "ping",
			message:  `{"type": "ping", "data": "hi"}`,
			wantType: &PingMessage{},
		},
		{
			name:     "language change",
			message:  `{"type": "language_change", "language": "ta"}`,
			wantType: &LanguageChangeMessage{},
		},
		{
			name:    "language change without language",
			message: `{"type": "language_change", "language": "  "}`,
			wantErr: true,
		},
		{
			name:     "recording start",
			message:  `{"type": "recording_start", "mime_type": "audio/webm;codecs=opus", "language": "hi"}`,
			wantType: &RecordingStartMessage{},
		},
		{
			name:    "recording start without mime type",
			message: `{"type": "recording_start"}`,
			wantErr: true,
		},
		{
			name:    "recording start with video",
			message: `{"type": "recording_start", "mime_type": "video/webm"}`,
			wantErr: true,
		},
		{
			name:     "recording end",
			message:  `{"type": "recording_end"}`,
			wantType: &RecordingEndMessage{},
		},
		{
			name:    "missing type",
			message: `{"language": "hi"}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			message: `{"type": "audio_chunk"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			message: `hello`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			switch tt.wantType.(type) {
			case *PingMessage:
				if _, ok := msg.(*PingMessage); !ok {
					t.Errorf("Expected *PingMessage, got %T", msg)
				}
			case *LanguageChangeMessage:
				if _, ok := msg.(*LanguageChangeMessage); !ok {
					t.Errorf("Expected *LanguageChangeMessage, got %T", msg)
				}
			case *RecordingStartMessage:
				if _, ok := msg.(*RecordingStartMessage); !ok {
					t.Errorf("Expected *RecordingStartMessage, got %T", msg)
				}
			case *RecordingEndMessage:
				if _, ok := msg.(*RecordingEndMessage); !ok {
					t.Errorf("Expected *RecordingEndMessage, got %T", msg)
				}
			}
		})
	}
}

func TestMessageValidator_FillsTimestamp(t *testing.T) {
	validator := NewMessageValidator()

	msg, err := validator.ValidateMessage([]byte(`{"type": "recording_start", "mime_type": " audio/wav "}`))
	if err != nil {
		t.Fatalf("ValidateMessage: %v", err)
	}

	start := msg.(*RecordingStartMessage)
	if start.Timestamp == "" {
		t.Error("Timestamp should be filled in")
	}
	if start.MIMEType != "audio/wav" {
		t.Errorf("Expected trimmed mime type, got %q", start.MIMEType)
	}
}

func TestCreateMessages(t *testing.T) {
	errMsg := CreateErrorMessage(ErrorCodeRecordingTooLarge, "too big", "")
	if errMsg.Type != MessageTypeError || errMsg.Code != ErrorCodeRecordingTooLarge {
		t.Errorf("Unexpected error message %+v", errMsg)
	}

	pong := CreatePongMessage("hi")
	if pong.Type != MessageTypePong || pong.Data != "hi" {
		t.Errorf("Unexpected pong %+v", pong)
	}

	state := entities.NewSessionState("hi")
	state.SetTranscript("hello")
	stateMsg := CreateStateMessage("s1", state)

	data, err := json.Marshal(stateMsg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["type"] != "state" || decoded["session_id"] != "s1" {
		t.Errorf("Unexpected state message %s", data)
	}
	inner := decoded["state"].(map[string]interface{})
	if inner["selected_language"] != "hi" || inner["transcript"] != "hello" {
		t.Errorf("Unexpected state payload %v", inner)
	}
}
