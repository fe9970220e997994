// Package repository persists volunteers, projects and applications.
package repository

import (
	"context"
	"time"

	"github.com/okian/vmatch/internal/domain/model"
)

// Counts summarizes the catalog.
type Counts struct {
	Volunteers   int `json:"volunteers"`
	Projects     int `json:"projects"`
	Applications int `json:"applications"`
}

// Store provides read/write access to the catalog.
type Store interface {
	// GetVolunteer returns ErrNotFound if the profile is unknown.
	GetVolunteer(ctx context.Context, id string) (model.VolunteerProfile, error)
	// SaveVolunteer inserts or replaces a profile. CreatedAt of an existing row is kept.
	SaveVolunteer(ctx context.Context, v model.VolunteerProfile) error
	ListAvailableVolunteers(ctx context.Context) ([]model.VolunteerProfile, error)

	GetProject(ctx context.Context, id string) (model.Project, error)
	// CreateProject returns ErrDuplicate if the id is taken.
	CreateProject(ctx context.Context, p model.Project) error
	UpdateProjectStatus(ctx context.Context, id string, status model.ProjectStatus, at time.Time) error
	ListActiveProjects(ctx context.Context) ([]model.Project, error)

	// CreateApplication records a and increments the project's applied count in one step.
	// It returns ErrDuplicate if the volunteer already applied and ErrProjectFull
	// if the project has no capacity left.
	CreateApplication(ctx context.Context, a model.Application) error
	GetApplication(ctx context.Context, id string) (model.Application, error)
	// TransitionApplication moves an application from one status to another.
	// It returns ErrStaleStatus if the stored status is no longer from.
	TransitionApplication(ctx context.Context, id string, from, to model.ApplicationStatus, at time.Time) error
	ListApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]model.Application, error)
	ListApplicationsByProject(ctx context.Context, projectID string) ([]model.Application, error)

	Counts(ctx context.Context) (Counts, error)
	Ping(ctx context.Context) error
	Close() error
}
