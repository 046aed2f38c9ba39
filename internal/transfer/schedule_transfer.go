package transfer

// ScheduleRequest is the input of a schedule call. ScheduledAt and Text are optional.
type ScheduleRequest struct {
	ProductID   int64   `json:"product_id"`
	Mode        string  `json:"mode"`
	ScheduledAt string  `json:"scheduled_at,omitempty"`
	Text        *string `json:"text,omitempty"`
}

type SelectionRequest struct {
	MediaIDs []int64 `json:"media_ids"`
}

type DispatchSummary struct {
	Due       int `json:"due"`
	Published int `json:"published"`
}

type IngestSummary struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}
