package chat

import "time"

// Status tracks delivery of a user-authored message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Rank orders statuses so callers can check forward-only progress.
// The zero status ranks below sent.
func (s Status) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// TimestampLayout renders timestamps as ISO-8601 with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp converts t to the stored ISO-8601 form in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Message is one entry of the conversation. Sender is a snapshot taken at creation.
type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Sender    User   `json:"sender"`
	Timestamp string `json:"timestamp"`
	Status    Status `json:"status,omitempty"`
}

// MessagePatch is a partial update. Nil fields are left untouched. The ID of a
// message can never be patched.
type MessagePatch struct {
	Content   *string
	Status    *Status
	Timestamp *string
	Sender    *User
}

// Apply merges the patch into m field by field and returns the result.
func (p MessagePatch) Apply(m Message) Message {
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.Timestamp != nil {
		m.Timestamp = *p.Timestamp
	}
	if p.Sender != nil {
		m.Sender = *p.Sender
	}
	return m
}

// ContentPatch replaces only the message content.
func ContentPatch(content string) MessagePatch {
	return MessagePatch{Content: &content}
}

// StatusPatch replaces only the delivery status.
func StatusPatch(status Status) MessagePatch {
	return MessagePatch{Status: &status}
}
