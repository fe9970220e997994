package model

import (
	"fmt"
	"time"
)

// ApplicationStatus is the lifecycle state of a volunteer's application.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "PENDING"
	ApplicationAccepted  ApplicationStatus = "ACCEPTED"
	ApplicationRejected  ApplicationStatus = "REJECTED"
	ApplicationWithdrawn ApplicationStatus = "WITHDRAWN"
)

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// CanTransition reports whether an application may move from s to next.
// Only pending applications move; every other state is terminal.
func (s ApplicationStatus) CanTransition(next ApplicationStatus) bool {
	if s != ApplicationPending {
		return false
	}
	switch next {
	case ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// Application links a volunteer to a project they applied to.
type Application struct {
	ID          string            `json:"id"`
	ProjectID   string            `json:"project_id"`
	VolunteerID string            `json:"volunteer_id"`
	Status      ApplicationStatus `json:"status"`
	Message     string            `json:"message,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Transition moves the application to next, stamping UpdatedAt.
func (a *Application) Transition(next ApplicationStatus, now time.Time) error {
	if !a.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, next)
	}
	a.Status = next
	a.UpdatedAt = now
	return nil
}
