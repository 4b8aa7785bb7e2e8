package sarvam

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain"
	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

// SpeechToText transcribes recordings with Saarika
type SpeechToText struct {
	client *Client
}

var _ repositories.SpeechToText = (*SpeechToText)(nil)

// NewSpeechToText creates a Saarika adapter
func NewSpeechToText(client *Client) *SpeechToText {
	return &SpeechToText{client: client}
}

type transcriptionResponse struct {
	RequestID    string  `json:"request_id"`
	Transcript   *string `json:"transcript"`
	LanguageCode string  `json:"language_code"`
}

// TranscribeAudio uploads the recording as multipart form data
func (s *SpeechToText) TranscribeAudio(ctx context.Context, audio entities.AudioBlob, language string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="recording%s"`, audio.FileExtension()))
	header.Set("Content-Type", audio.BaseMIMEType())
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := writer.WriteField("model", s.client.config.STTModel); err != nil {
		return "", err
	}
	if err := writer.WriteField("language_code", entities.Locale(language)); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.apiBaseURL+"/speech-to-text", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp transcriptionResponse
	if err := s.client.do(req, &resp); err != nil {
		return "", err
	}
	if resp.Transcript == nil {
		return "", domain.FormatError(provider, fmt.Errorf("transcript missing from response"))
	}

	s.client.logger.Info("Sarvam transcription completed",
		zap.String("requestID", resp.RequestID),
		zap.Int("length", len(*resp.Transcript)))
	return *resp.Transcript, nil
}
