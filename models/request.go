package models

// LocatorRules selects the links of an index page. All values are CSS
// selectors; an empty Group means each container is a single group.
type LocatorRules struct {
	Container string `json:"container,omitempty" yaml:"container"`
	Group     string `json:"group,omitempty" yaml:"group"`
	Entry     string `json:"entry,omitempty" yaml:"entry"`
	Link      string `json:"link,omitempty" yaml:"link"`

	// Next selects the "next page" link of a paginated index. Empty
	// disables pagination.
	Next string `json:"next,omitempty" yaml:"next"`
}

// RecordRules selects the info table of a target page and its cells.
type RecordRules struct {
	Table string `json:"table,omitempty" yaml:"table"`
	Row   string `json:"row,omitempty" yaml:"row"`
	Label string `json:"label,omitempty" yaml:"label"`
	Value string `json:"value,omitempty" yaml:"value"`

	// SeedField is the name under which the locator title is stored.
	SeedField string `json:"seed_field,omitempty" yaml:"seed_field"`

	// ValueFormat is "text" (default) or "markdown".
	ValueFormat string `json:"value_format,omitempty" yaml:"value_format" binding:"omitempty,oneof=text markdown"`

	// SummaryField, when set, adds the readability excerpt of the page
	// under that name.
	SummaryField string `json:"summary_field,omitempty" yaml:"summary_field"`
}

// Merge returns r with every empty field taken from defaults.
func (r LocatorRules) Merge(defaults LocatorRules) LocatorRules {
	if r.Container == "" {
		r.Container = defaults.Container
	}
	if r.Group == "" {
		r.Group = defaults.Group
	}
	if r.Entry == "" {
		r.Entry = defaults.Entry
	}
	if r.Link == "" {
		r.Link = defaults.Link
	}
	if r.Next == "" {
		r.Next = defaults.Next
	}
	return r
}

// Merge returns r with every empty field taken from defaults.
func (r RecordRules) Merge(defaults RecordRules) RecordRules {
	if r.Table == "" {
		r.Table = defaults.Table
	}
	if r.Row == "" {
		r.Row = defaults.Row
	}
	if r.Label == "" {
		r.Label = defaults.Label
	}
	if r.Value == "" {
		r.Value = defaults.Value
	}
	if r.SeedField == "" {
		r.SeedField = defaults.SeedField
	}
	if r.ValueFormat == "" {
		r.ValueFormat = defaults.ValueFormat
	}
	if r.SummaryField == "" {
		r.SummaryField = defaults.SummaryField
	}
	return r
}

// LocatorsRequest is the payload for POST /api/v1/locators.
type LocatorsRequest struct {
	// IndexURL is the directory page to scan. Required.
	IndexURL string `json:"index_url" binding:"required,url"`

	Rules LocatorRules `json:"rules"`

	// MaxIndexPages bounds pagination. 0 uses the server default.
	MaxIndexPages int `json:"max_index_pages,omitempty" binding:"omitempty,min=1,max=100"`

	// Limit truncates the locator list. 0 means no limit.
	Limit int `json:"limit,omitempty" binding:"omitempty,min=0"`
}

// HarvestRequest is the payload for POST /api/v1/harvest and
// POST /api/v1/harvest/jobs. Either IndexURL or Locators must be set.
type HarvestRequest struct {
	IndexURL string    `json:"index_url,omitempty" binding:"omitempty,url"`
	Locators []Locator `json:"locators,omitempty" binding:"omitempty,max=1000"`

	LocatorRules  LocatorRules `json:"locator_rules"`
	RecordRules   RecordRules  `json:"record_rules"`
	MaxIndexPages int          `json:"max_index_pages,omitempty" binding:"omitempty,min=1,max=100"`
	Limit         int          `json:"limit,omitempty" binding:"omitempty,min=0"`

	// DelayMs overrides the pause between fetches. Values below the server
	// minimum are raised to it.
	DelayMs int `json:"delay_ms,omitempty" binding:"omitempty,min=0"`

	// Format is the response rendering: "json" (default), "csv" or "markdown".
	Format string `json:"format,omitempty" binding:"omitempty,oneof=json csv markdown"`

	// WebhookURL receives a signed event when an async job finishes.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *HarvestRequest) Defaults() {
	if r.Format == "" {
		r.Format = "json"
	}
}
