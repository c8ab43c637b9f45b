package models

// Job statuses.
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobPartial    = "partial"
	JobFailed     = "failed"
)

// JobResponse is the immediate response for POST /api/v1/harvest/jobs.
type JobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// JobStatusResponse is the response for GET /api/v1/harvest/jobs/:id.
type JobStatusResponse struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	CreatedAt int64            `json:"created_at"`
	Result    *HarvestResponse `json:"result,omitempty"`
}

// HarvestJob tracks an asynchronous harvest.
type HarvestJob struct {
	ID        string
	Status    string
	Result    *HarvestResponse
	CreatedAt int64 // unix timestamp
}
