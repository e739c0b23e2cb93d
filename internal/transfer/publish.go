package transfer

// PublishOutcome is the result of one platform publish attempt.
// Category is one of the errs category constants when Success is false.
type PublishOutcome struct {
	Platform string
	Success  bool
	PostID   string
	Error    string
	Category string
}

// PublishResult aggregates the all-settled outcomes of a fan-out.
// Success is true iff at least one platform succeeded.
type PublishResult struct {
	Success         bool
	PlatformPostIDs map[string]string
	ErrorMessage    string
}

type PostCreation struct {
	Content         string   `json:"content"`
	ScheduledTime   string   `json:"scheduled_time"`
	TargetPlatforms []string `json:"target_platforms"`
	MediaURLs       []string `json:"media_urls"`
}
