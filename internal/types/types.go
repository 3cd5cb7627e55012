package types

import "time"

// Dataset names used across workflows, activities and cache tags.
const (
	DatasetRegistrations   = "registrations"
	DatasetCOE             = "coe"
	DatasetDeregistrations = "deregistrations"
)

// PipelineParams is the input of every dataset pipeline.
type PipelineParams struct {
	Dataset string `json:"dataset"`
	// Optional period hint (YYYY-MM). When set it replaces the latest period
	// resolved from storage.
	Month string `json:"month,omitempty"`
	// Relative subdirectory under the scratch root where archives are extracted.
	// Workflows set it to their run ID.
	ScratchSubdir string `json:"scratch_subdir,omitempty"`
	// If true, the workflow skips removing the scratch subdir when it finishes.
	KeepScratch bool `json:"keep_scratch,omitempty"`
}

// PipelineResult is the terminal value of a pipeline run.
type PipelineResult struct {
	Message string `json:"message"`
	PostID  string `json:"post_id,omitempty"`
}

// UpdaterResult is the terminal value of one ingestion run.
type UpdaterResult struct {
	Table            string    `json:"table"`
	RecordsProcessed int       `json:"records_processed"`
	Message          string    `json:"message"`
	Timestamp        time.Time `json:"timestamp"`
	Checksum         string    `json:"checksum,omitempty"`
}

// PeriodMarker is the most recent reporting interval known to storage.
// BiddingNo is only set for datasets with sub-monthly rounds.
type PeriodMarker struct {
	Month     string `json:"month"`
	BiddingNo int    `json:"bidding_no,omitempty"`
}

// Empty reports whether no period was found.
func (p PeriodMarker) Empty() bool { return p.Month == "" }

// PeriodParams addresses one period of one dataset.
type PeriodParams struct {
	Dataset string `json:"dataset"`
	Month   string `json:"month"`
}

// InvalidateParams lists the cache tags to invalidate for a dataset.
type InvalidateParams struct {
	Dataset string   `json:"dataset"`
	Tags    []string `json:"tags"`
}

// PostRef identifies a derived post. Found is false when no post exists.
type PostRef struct {
	ID    string `json:"id,omitempty"`
	Slug  string `json:"slug,omitempty"`
	Found bool   `json:"found"`
}

// FuelTotal is the number of registrations of one fuel type in a month.
type FuelTotal struct {
	FuelType string `json:"fuel_type"`
	Total    int64  `json:"total"`
}

// MakeTotal is the number of registrations of one make in a month.
type MakeTotal struct {
	Make  string `json:"make"`
	Total int64  `json:"total"`
}

// FuelBreakdown is the top makes for one fuel type.
type FuelBreakdown struct {
	FuelType string      `json:"fuel_type"`
	Total    int64       `json:"total"`
	TopMakes []MakeTotal `json:"top_makes"`
}

// COEResult is one bidding result row.
type COEResult struct {
	Month        string `json:"month"`
	BiddingNo    int    `json:"bidding_no"`
	VehicleClass string `json:"vehicle_class"`
	Quota        int64  `json:"quota"`
	BidsSuccess  int64  `json:"bids_success"`
	BidsReceived int64  `json:"bids_received"`
	Premium      int64  `json:"premium"`
}

// Aggregate is the dataset summary handed to the content generator.
type Aggregate struct {
	Dataset string          `json:"dataset"`
	Month   string          `json:"month"`
	Total   int64           `json:"total,omitempty"`
	ByFuel  []FuelBreakdown `json:"by_fuel,omitempty"`
	COE     []COEResult     `json:"coe,omitempty"`
}

// GeneratedPost is the output of the content generation step.
type GeneratedPost struct {
	Dataset string `json:"dataset"`
	Month   string `json:"month"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// PublishParams describes a post to announce on external channels.
type PublishParams struct {
	Dataset string `json:"dataset"`
	PostID  string `json:"post_id"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
}

// PublishResult lists the channels the post was announced on.
type PublishResult struct {
	Channels []string `json:"channels"`
	Skipped  []string `json:"skipped,omitempty"`
}

// CleanupParams instructs the cleanup activity which subdir to remove.
type CleanupParams struct {
	ScratchSubdir string
}
