package domain

// TranslationResult is the outcome of a one-shot translation request
type TranslationResult struct {
	SessionID      string `json:"session_id"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Transcript     string `json:"transcript,omitempty"`
	Translation    string `json:"translation,omitempty"`
	AudioURL       string `json:"audio_url,omitempty"`
	AudioID        string `json:"audio_id,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorKind      string `json:"error_kind,omitempty"`
}
