package models

import "time"

// Failure describes a locator whose page could not be harvested.
type Failure struct {
	Locator  Locator `json:"locator"`
	Code     string  `json:"code"`
	Message  string  `json:"message"`
	Status   int     `json:"status,omitempty"`
	Attempts int     `json:"attempts"`
}

// Report summarises one crawl.
type Report struct {
	// Requested is the number of locators handed to the run.
	Requested int `json:"requested"`

	// Harvested is the number of records appended to the batch.
	Harvested int `json:"harvested"`

	// Failed lists locators that produced no record.
	Failed []Failure `json:"failed"`

	// SkippedRows is the total number of info-table rows that had no
	// readable label or value.
	SkippedRows int `json:"skipped_rows"`

	// MissingTables counts pages without a matching info table.
	MissingTables int `json:"missing_tables"`

	// CacheHits counts pages served from the page cache.
	CacheHits int `json:"cache_hits"`

	// Aborted is true when the run stopped before processing every locator.
	Aborted bool `json:"aborted"`

	Duration time.Duration `json:"duration_ns"`
}
