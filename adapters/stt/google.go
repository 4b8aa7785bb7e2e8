package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"

	"github.com/satriahrh/vaani/domain"
	"github.com/satriahrh/vaani/domain/entities"
)

const googleProvider = "google"

// recognizer is the subset of the speech client used here
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client recognizer
}

// NewGoogleSpeechToText creates a client. An empty credentialsFile uses application default credentials.
func NewGoogleSpeechToText(ctx context.Context, credentialsFile string) (*GoogleSpeechToText, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleSpeechToText{client: client}, nil
}

// TranscribeAudio converts a whole recording to text using Google Cloud Speech-to-Text
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audio entities.AudioBlob, language string) (string, error) {
	encoding, err := getAudioEncoding(audio.BaseMIMEType())
	if err != nil {
		return "", err
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encoding,
			LanguageCode:               entities.Locale(language),
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.Data},
		},
	})
	if err != nil {
		if st, ok := status.FromError(err); ok {
			return "", &domain.ServiceError{Provider: googleProvider, StatusCode: int(st.Code()), Message: st.Message()}
		}
		return "", fmt.Errorf("failed to recognize speech: %w", err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		if alternatives := result.GetAlternatives(); len(alternatives) > 0 {
			// take the best alternative of each segment
			parts = append(parts, strings.TrimSpace(alternatives[0].GetTranscript()))
		}
	}
	return strings.Join(parts, " "), nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// getAudioEncoding maps a recording MIME type to the Speech API enum
func getAudioEncoding(mimeType string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/l16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "audio/flac", "audio/x-flac":
		return speechpb.RecognitionConfig_FLAC, nil
	case "audio/basic", "audio/mulaw":
		return speechpb.RecognitionConfig_MULAW, nil
	case "audio/amr":
		return speechpb.RecognitionConfig_AMR, nil
	case "audio/amr-wb":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "audio/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio type for google speech: %q", mimeType)
	}
}
