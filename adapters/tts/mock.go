package tts

import (
	"bytes"
	"context"
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

const mockSampleRate = 16000

// MockTextToSpeech is a placeholder implementation that returns silence
type MockTextToSpeech struct {
	logger *zap.Logger
}

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(logger *zap.Logger) repositories.TextToSpeech {
	return &MockTextToSpeech{logger: logger}
}

// Synthesize returns a mono 16-bit WAV of silence, 60ms per character
func (m *MockTextToSpeech) Synthesize(ctx context.Context, text, language string) (entities.AudioBlob, error) {
	m.logger.Info("Processing mock text-to-speech",
		zap.Int("textLength", len(text)),
		zap.String("language", language))

	if text == "" {
		return entities.AudioBlob{MIMEType: "audio/wav"}, nil
	}

	samples := len([]rune(text)) * mockSampleRate * 60 / 1000
	return entities.AudioBlob{Data: silentWAV(samples), MIMEType: "audio/wav"}, nil
}

func silentWAV(samples int) []byte {
	dataSize := uint32(samples * 2)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))             // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))              // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))              // mono
	binary.Write(&buf, binary.LittleEndian, uint32(mockSampleRate)) // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(mockSampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
