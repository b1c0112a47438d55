package gerrit

// Wire types for the review endpoint, following the Gerrit REST
// documentation (rest-api-changes, "Set Review"). Empty fields are dropped
// from the JSON so the payload matches what the server expects.

// Notify controls who is notified when a review is published.
type Notify string

const (
	NotifyNone           Notify = "NONE"
	NotifyOwner          Notify = "OWNER"
	NotifyOwnerReviewers Notify = "OWNER_REVIEWERS"
	NotifyAll            Notify = "ALL"
)

// CommentRange selects the region a comment is anchored to: from
// start_character of start_line through end_character of end_line. A
// character of 0 means the beginning of the line and is omitted on the
// wire; the server fills in the same default.
type CommentRange struct {
	StartLine      int `json:"start_line"`
	StartCharacter int `json:"start_character,omitempty"`
	EndLine        int `json:"end_line"`
	EndCharacter   int `json:"end_character,omitempty"`
}

// CommentInput is one draft comment on a file.
type CommentInput struct {
	Message string        `json:"message"`
	Range   *CommentRange `json:"range,omitempty"`
}

// ReviewInput is the payload posted to publish a review: a cover message,
// per-file comments, label votes and the notify directive.
type ReviewInput struct {
	Message  string                    `json:"message,omitempty"`
	Labels   map[string]int            `json:"labels,omitempty"`
	Comments map[string][]CommentInput `json:"comments,omitempty"`
	Notify   Notify                    `json:"notify,omitempty"`
}
