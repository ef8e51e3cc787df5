package models

type UploadResponse struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	OriginalName  string `json:"original_name"`
	FileType      string `json:"file_type"`
	ExtractedSize int    `json:"extracted_chars"`
}

type StartSessionRequest struct {
	Persona                  string `json:"persona"`
	JobDescriptionText       string `json:"job_description_text"`
	ResumeText               string `json:"resume_text"`
	JobDescriptionDocumentID string `json:"job_description_document_id"`
	ResumeDocumentID         string `json:"resume_document_id"`
}

type VoiceResponse struct {
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

type StartSessionResponse struct {
	SessionID     string        `json:"session_id"`
	FirstQuestion string        `json:"first_question"`
	Persona       string        `json:"persona"`
	Voice         VoiceResponse `json:"voice"`
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

type SubmitAnswerResponse struct {
	NextInterviewerText string `json:"next_interviewer_text"`
	SessionCompleted    bool   `json:"session_completed"`
	CurrentSeedIndex    int    `json:"current_seed_index"`
}

type SessionResponse struct {
	ID               string `json:"id"`
	Persona          string `json:"persona"`
	State            string `json:"state"`
	CurrentSeedIndex int    `json:"current_seed_index"`
	SeedCount        int    `json:"seed_count"`
	Completed        bool   `json:"completed"`
	CurrentQuestion  string `json:"current_question,omitempty"`
}

type TurnResponse struct {
	SequenceNumber int    `json:"sequence_number"`
	Speaker        string `json:"speaker"`
	Kind           string `json:"kind"`
	Text           string `json:"text"`
	CreatedAt      string `json:"created_at"`
}

type ReportResponse struct {
	SessionID       string   `json:"session_id"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Risks           []string `json:"risks"`
	Recommendations []string `json:"recommendations"`
}
