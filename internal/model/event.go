package model

import (
	"time"
)

// EventKind classifies an inbound user event.
type EventKind string

const (
	EventCommand     EventKind = "command"
	EventText        EventKind = "text"
	EventButtonPress EventKind = "button_press"
	EventImage       EventKind = "image"
)

// ImageAttachment carries the bytes of a user-supplied image.
type ImageAttachment struct {
	Data     []byte
	MIMEType string
}

// Event is an inbound user event delivered by the transport adapter.
type Event struct {
	UserID  UserID
	Kind    EventKind
	Command string
	Text    string
	Caption string
	Image   *ImageAttachment
}

// Keyboard describes a reply keyboard to render alongside an outbound reply.
type Keyboard struct {
	Rows            [][]string
	Resize          bool
	OneTimeKeyboard bool
}

// Reply is the outbound message produced by the controller for one event.
type Reply struct {
	UserID   UserID
	Text     string
	Keyboard *Keyboard
}

// AuditEventType classifies entries on the bot audit stream.
type AuditEventType string

const (
	AuditEventUpdate          AuditEventType = "update"
	AuditEventReply           AuditEventType = "reply"
	AuditEventProviderFailure AuditEventType = "provider_failure"
	AuditEventQuotaRejected   AuditEventType = "quota_rejected"
)

// AuditEvent is the record published to the event stream for operational
// visibility. Publishing is fire-and-forget; a bus failure never affects the
// user-facing reply.
type AuditEvent struct {
	ID        string         `json:"id"`
	UserID    UserID         `json:"user_id"`
	Type      AuditEventType `json:"type"`
	Flow      string         `json:"flow,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
