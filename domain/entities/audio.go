package entities

import (
	"mime"
	"strings"
	"time"
)

// AudioBlob is an opaque audio payload with its MIME type
type AudioBlob struct {
	Data     []byte
	MIMEType string
}

// Size returns the payload length in bytes
func (b AudioBlob) Size() int {
	return len(b.Data)
}

// Empty reports whether the blob carries no audio
func (b AudioBlob) Empty() bool {
	return len(b.Data) == 0
}

// BaseMIMEType returns the MIME type without parameters, e.g. "audio/webm;codecs=opus" becomes "audio/webm"
func (b AudioBlob) BaseMIMEType() string {
	if b.MIMEType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(b.MIMEType)
	if err != nil {
		base, _, _ := strings.Cut(b.MIMEType, ";")
		return strings.ToLower(strings.TrimSpace(base))
	}
	return mediaType
}

// FileExtension guesses a file extension for uploads that need a filename
func (b AudioBlob) FileExtension() string {
	switch b.BaseMIMEType() {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/flac":
		return ".flac"
	default:
		return ".wav"
	}
}

// AudioHandle is a playable reference to synthesized audio.
// Handles are created and released only through an AudioStore.
type AudioHandle struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	MIMEType  string    `json:"mime_type"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
