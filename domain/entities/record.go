package entities

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RunStatus is the outcome of a pipeline run
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusDiscarded RunStatus = "discarded"
)

// Stage names one of the three remote operations
type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageTranslate  Stage = "translate"
	StageSynthesize Stage = "synthesize"
)

// StageState represents the state of an individual stage
type StageState string

const (
	StageStateCompleted StageState = "completed"
	StageStateFailed    StageState = "failed"
)

// StageTrace records how one stage of a run went
type StageTrace struct {
	Stage       Stage      `json:"stage" bson:"stage"`
	State       StageState `json:"state" bson:"state"`
	StartedAt   time.Time  `json:"started_at" bson:"started_at"`
	CompletedAt time.Time  `json:"completed_at" bson:"completed_at"`
	Error       string     `json:"error,omitempty" bson:"error,omitempty"`
}

// Duration returns how long the stage took
func (t StageTrace) Duration() time.Duration {
	return t.CompletedAt.Sub(t.StartedAt)
}

// TranslationRecord is the persisted history entry of one run
type TranslationRecord struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID      string             `json:"session_id" bson:"session_id"`
	SourceLanguage string             `json:"source_language" bson:"source_language"`
	TargetLanguage string             `json:"target_language" bson:"target_language"`
	Transcript     string             `json:"transcript,omitempty" bson:"transcript,omitempty"`
	Translation    string             `json:"translation,omitempty" bson:"translation,omitempty"`
	InputSize      int                `json:"input_size" bson:"input_size"`
	AudioSize      int                `json:"audio_size,omitempty" bson:"audio_size,omitempty"`
	Status         RunStatus          `json:"status" bson:"status"`
	ErrorKind      string             `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	Error          string             `json:"error,omitempty" bson:"error,omitempty"`
	Stages         []StageTrace       `json:"stages" bson:"stages"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// NewTranslationRecord creates a record for a run that is about to start
func NewTranslationRecord(sessionID, source, target string, inputSize int) *TranslationRecord {
	return &TranslationRecord{
		ID:             primitive.NewObjectID(),
		SessionID:      sessionID,
		SourceLanguage: source,
		TargetLanguage: target,
		InputSize:      inputSize,
		Stages:         make([]StageTrace, 0, 3),
		CreatedAt:      time.Now(),
	}
}

// AddStage appends a stage trace
func (r *TranslationRecord) AddStage(stage Stage, startedAt time.Time, err error) {
	trace := StageTrace{
		Stage:       stage,
		State:       StageStateCompleted,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
	}
	if err != nil {
		trace.State = StageStateFailed
		trace.Error = err.Error()
	}
	r.Stages = append(r.Stages, trace)
}

// LastStage returns the most recent stage trace, if any
func (r *TranslationRecord) LastStage() (StageTrace, bool) {
	if len(r.Stages) == 0 {
		return StageTrace{}, false
	}
	return r.Stages[len(r.Stages)-1], true
}
