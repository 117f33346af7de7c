// Package relay forwards finished applications to the intake webhook and
// translates its answer into a Result.
package relay

import "time"

// Fixed client-facing messages.
const (
	MessageReceived         = "Application received."
	MessageUpstreamFailed   = "Failed to process application"
	MessageInternalError    = "Internal server error"
	MessageMethodNotAllowed = "Method not allowed"
	MessageBadRequest       = "Invalid submission body"
)

// SubmittedAtField is stamped onto every forwarded payload.
const SubmittedAtField = "submitted_at"

// TimestampLayout formats submitted_at in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Result is the acknowledgement returned to the applicant.
type Result struct {
	OK            bool    `json:"ok"`
	CorrelationID *string `json:"correlationId"`
	Message       string  `json:"message"`
}

// Reference returns the correlation id, or "".
func (r Result) Reference() string {
	if r.CorrelationID == nil {
		return ""
	}
	return *r.CorrelationID
}

// Submission is a flattened application plus its optional files.
type Submission struct {
	Fields      map[string]any
	Attachments []Attachment
}

// Attachment is one uploaded document.
type Attachment struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// Stamp sets submitted_at when the payload does not carry one.
func (s *Submission) Stamp(now time.Time) {
	if s.Fields == nil {
		s.Fields = make(map[string]any)
	}
	if v, ok := s.Fields[SubmittedAtField].(string); ok && v != "" {
		return
	}
	s.Fields[SubmittedAtField] = now.UTC().Format(TimestampLayout)
}

func failure(msg string) Result {
	return Result{OK: false, Message: msg}
}
