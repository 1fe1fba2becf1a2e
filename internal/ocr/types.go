package ocr

import "encoding/json"

// JobRequest is sent to POST /jobs
type JobRequest struct {
	Image    string `json:"image"`
	Language string `json:"language,omitempty"`
	ClientID string `json:"client_id"`
}

// JobResponse is returned from POST /jobs
type JobResponse struct {
	JobID string `json:"job_id"`
	Error string `json:"error,omitempty"`
}

// ResultResponse is returned from GET /jobs/{id}/result
type ResultResponse struct {
	JobID     string `json:"job_id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// WSMessage represents a WebSocket message from the OCR service
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// CompletedData is the data payload for "completed" messages
type CompletedData struct {
	JobID string `json:"job_id"`
}

// ProgressData is the data payload for "progress" messages
type ProgressData struct {
	Value int    `json:"value"`
	Max   int    `json:"max"`
	JobID string `json:"job_id"`
}

// JobErrorData is the data payload for "job_error" messages
type JobErrorData struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}
