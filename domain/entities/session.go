package entities

// SessionState is the UI state of one translator session.
// It is owned by a single session and mutated only through the transition methods below.
type SessionState struct {
	SelectedLanguage string       `json:"selected_language"`
	Loading          bool         `json:"loading"`
	Error            string       `json:"error,omitempty"`
	Transcript       string       `json:"transcript,omitempty"`
	Translation      string       `json:"translation,omitempty"`
	Audio            *AudioHandle `json:"audio,omitempty"`

	// Generation identifies the latest run; results from older generations are stale.
	Generation uint64 `json:"generation"`
}

// NewSessionState creates an idle state with the given language selected
func NewSessionState(language string) SessionState {
	return SessionState{SelectedLanguage: language}
}

// SelectLanguage switches the target language and clears every result.
// Any run in flight becomes stale.
func (s *SessionState) SelectLanguage(code string) {
	s.SelectedLanguage = code
	s.Reset()
}

// Reset clears results, error and loading, and makes any run in flight stale
func (s *SessionState) Reset() {
	s.clearResults()
	s.Error = ""
	s.Loading = false
	s.Generation++
}

// BeginRun starts a new run and returns its generation
func (s *SessionState) BeginRun() uint64 {
	s.clearResults()
	s.Error = ""
	s.Loading = true
	s.Generation++
	return s.Generation
}

// IsCurrent reports whether generation is the latest run
func (s *SessionState) IsCurrent(generation uint64) bool {
	return s.Generation == generation
}

// SetTranscript records the result of the transcription stage
func (s *SessionState) SetTranscript(text string) {
	s.Transcript = text
}

// SetTranslation records the result of the translation stage
func (s *SessionState) SetTranslation(text string) {
	s.Translation = text
}

// SetAudio records the playable handle produced by the synthesis stage
func (s *SessionState) SetAudio(handle *AudioHandle) {
	s.Audio = handle
}

// Fail records a user-facing error. Partial text results are kept, the playable handle is dropped.
func (s *SessionState) Fail(message string) {
	s.Error = message
	s.Audio = nil
}

// Finish marks the run as no longer loading
func (s *SessionState) Finish() {
	s.Loading = false
}

// Snapshot returns a copy that does not share the audio handle
func (s SessionState) Snapshot() SessionState {
	if s.Audio != nil {
		handle := *s.Audio
		s.Audio = &handle
	}
	return s
}

func (s *SessionState) clearResults() {
	s.Transcript = ""
	s.Translation = ""
	s.Audio = nil
}
