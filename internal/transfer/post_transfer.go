package transfer

// PostCreation carries the raw form values of one post submission. Platforms
// and PageTargets arrive JSON-encoded from the multipart form; the service
// layer parses and validates them.
type PostCreation struct {
	Content       string
	Platforms     string
	PageTargets   string
	Intent        string
	ScheduledTime string
	AIGenerated   bool
}

// Publish intent values. Exactly one applies per submission.
const (
	IntentPublishNow = "publish_now"
	IntentDraft      = "draft"
	IntentSchedule   = "schedule"
)

// PublishRequest is the body of the per-platform publish endpoints
// (/api/social/:platform/post).
type PublishRequest struct {
	Content        string `json:"content"`
	SelectedPageID string `json:"selectedPageId"`
	WorkspaceID    int64  `json:"workspaceId"`
}

type PublishResponse struct {
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	PageName string      `json:"pageName,omitempty"`
	Message  string      `json:"message,omitempty"`
}
