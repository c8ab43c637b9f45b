package models

// ErrorResponse is the body of every rejected request.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// LocatorsResponse is the response for POST /api/v1/locators.
type LocatorsResponse struct {
	Success  bool         `json:"success"`
	Locators []Locator    `json:"locators"`
	Total    int          `json:"total"`
	Error    *ErrorDetail `json:"error,omitempty"`
}

// HarvestResponse is the JSON response for POST /api/v1/harvest.
type HarvestResponse struct {
	// Success is false only when the run produced no usable batch
	// (invalid input, index fetch failure, abort policy triggered).
	Success bool `json:"success"`

	// Schema is the sorted union of all record field names.
	Schema []string `json:"schema"`

	// Rows holds one schema-aligned row per record.
	Rows [][]string `json:"rows"`

	// Records holds the partial records in crawl order.
	Records Batch `json:"records"`

	Report *Report `json:"report,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// LocatorMs is the time spent scanning index pages.
	LocatorMs int64 `json:"locator_ms"`

	// HarvestMs is the time spent fetching and extracting target pages.
	HarvestMs int64 `json:"harvest_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string `json:"status"` // "healthy" or "busy"
	Uptime     string `json:"uptime"`
	Version    string `json:"version"`
	FetchMode  string `json:"fetch_mode"`
	CacheSize  int    `json:"cache_size"`
	ActiveJobs int    `json:"active_jobs"`
}
