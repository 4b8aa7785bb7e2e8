package entities

import (
	"errors"
	"testing"
	"time"
)

func TestSessionStateCreation(t *testing.T) {
	state := NewSessionState("hi")

	if state.SelectedLanguage != "hi" {
		t.Errorf("Expected language hi, got %s", state.SelectedLanguage)
	}

	if state.Loading {
		t.Error("New state should not be loading")
	}

	if state.Generation != 0 {
		t.Errorf("Expected generation 0, got %d", state.Generation)
	}
}

func TestBeginRunClearsResults(t *testing.T) {
	state := NewSessionState("hi")
	state.SetTranscript("hello")
	state.SetTranslation("नमस्ते")
	state.SetAudio(&AudioHandle{ID: "a1"})
	state.Fail("old error")

	gen := state.BeginRun()

	if gen != 1 {
		t.Errorf("Expected generation 1, got %d", gen)
	}
	if !state.Loading {
		t.Error("State should be loading after BeginRun")
	}
	if state.Transcript != "" || state.Translation != "" || state.Audio != nil || state.Error != "" {
		t.Errorf("BeginRun should clear results, got %+v", state)
	}
	if !state.IsCurrent(gen) {
		t.Error("Generation returned by BeginRun should be current")
	}
}

func TestSelectLanguageResetsEverything(t *testing.T) {
	state := NewSessionState("hi")
	gen := state.BeginRun()
	state.SetTranscript("hello")
	state.SetTranslation("नमस्ते")
	state.SetAudio(&AudioHandle{ID: "a1"})

	state.SelectLanguage("ta")

	if state.SelectedLanguage != "ta" {
		t.Errorf("Expected language ta, got %s", state.SelectedLanguage)
	}
	if state.Transcript != "" || state.Translation != "" || state.Audio != nil || state.Error != "" {
		t.Errorf("SelectLanguage should clear results, got %+v", state)
	}
	if state.Loading {
		t.Error("SelectLanguage should stop loading")
	}
	if state.IsCurrent(gen) {
		t.Error("Run started before the language change should be stale")
	}
}

func TestFailKeepsTextDropsAudio(t *testing.T) {
	state := NewSessionState("hi")
	state.BeginRun()
	state.SetTranscript("hello")
	state.SetTranslation("नमस्ते")
	state.SetAudio(&AudioHandle{ID: "a1"})

	state.Fail("boom")

	if state.Error != "boom" {
		t.Errorf("Expected error boom, got %s", state.Error)
	}
	if state.Transcript != "hello" || state.Translation != "नमस्ते" {
		t.Error("Fail should keep transcript and translation")
	}
	if state.Audio != nil {
		t.Error("Fail should drop the audio handle")
	}
	if !state.Loading {
		t.Error("Fail should not change loading; Finish does")
	}

	state.Finish()
	if state.Loading {
		t.Error("Finish should clear loading")
	}
}

func TestSnapshotDoesNotShareHandle(t *testing.T) {
	state := NewSessionState("hi")
	state.SetAudio(&AudioHandle{ID: "a1", URL: "/audio/a1"})

	snap := state.Snapshot()
	snap.Audio.URL = "changed"

	if state.Audio.URL != "/audio/a1" {
		t.Error("Snapshot should copy the audio handle")
	}
}

func TestTranslationRecordStages(t *testing.T) {
	record := NewTranslationRecord("s1", "en-IN", "hi", 10000)

	if _, ok := record.LastStage(); ok {
		t.Error("New record should have no stages")
	}

	started := time.Now().Add(-50 * time.Millisecond)
	record.AddStage(StageTranscribe, started, nil)
	record.AddStage(StageTranslate, time.Now(), errors.New("empty"))

	if len(record.Stages) != 2 {
		t.Fatalf("Expected 2 stages, got %d", len(record.Stages))
	}
	if record.Stages[0].State != StageStateCompleted {
		t.Errorf("Expected completed, got %s", record.Stages[0].State)
	}
	if record.Stages[0].Duration() < 50*time.Millisecond {
		t.Errorf("Expected duration >= 50ms, got %s", record.Stages[0].Duration())
	}

	last, _ := record.LastStage()
	if last.State != StageStateFailed || last.Error != "empty" {
		t.Errorf("Expected failed stage with error, got %+v", last)
	}
}
