package model

import "time"

// NotificationType tags what a notification is about.
type NotificationType string

const (
	NotifyProjectMatch      NotificationType = "project_match"
	NotifyNewApplication    NotificationType = "new_application"
	NotifyApplicationStatus NotificationType = "application_status"
)

// Notification is a message for one recipient. Delivery is best effort.
type Notification struct {
	ID             string           `json:"id"`
	RecipientID    string           `json:"recipient_id"`
	RecipientEmail string           `json:"recipient_email,omitempty"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Data           map[string]any   `json:"data,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// DedupeKey identifies the (recipient, type, subject) triple a notification is about.
// The subject is taken from Data["subject_id"] when present.
func (n Notification) DedupeKey() string {
	subject, _ := n.Data["subject_id"].(string)
	return n.RecipientID + ":" + string(n.Type) + ":" + subject
}
