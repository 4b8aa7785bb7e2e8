package tts

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestMockTextToSpeech(t *testing.T) {
	tts := NewMockTextToSpeech(zaptest.NewLogger(t))

	audio, err := tts.Synthesize(context.Background(), "नमस्ते", "hi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if audio.MIMEType != "audio/wav" {
		t.Errorf("Expected audio/wav, got %s", audio.MIMEType)
	}
	// 6 runes * 960 samples * 2 bytes + 44 byte header
	if audio.Size() != 44+6*960*2 {
		t.Errorf("Unexpected size %d", audio.Size())
	}
	if string(audio.Data[:4]) != "RIFF" || string(audio.Data[8:12]) != "WAVE" {
		t.Error("Missing WAV header")
	}

	empty, err := tts.Synthesize(context.Background(), "", "hi")
	if err != nil || !empty.Empty() {
		t.Errorf("Expected empty audio for empty text, got %d bytes, %v", empty.Size(), err)
	}
}
