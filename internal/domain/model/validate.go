package model

import (
	"fmt"
	"strings"
)

// Validate checks the invariants a stored volunteer profile must hold.
func (v VolunteerProfile) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("%w: volunteer id is required", ErrInvalid)
	}
	if v.Location != nil && !v.Location.Valid() {
		return fmt.Errorf("%w: volunteer location out of range", ErrInvalid)
	}
	if v.Availability.HoursPerWeek < 0 || v.TotalHours < 0 || v.ImpactScore < 0 {
		return fmt.Errorf("%w: volunteer hours and impact must not be negative", ErrInvalid)
	}
	switch v.Availability.Status {
	case Available, Busy, Unavailable:
	default:
		return fmt.Errorf("%w: unknown availability status %q", ErrInvalid, v.Availability.Status)
	}
	for _, s := range v.Skills {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: skill name is required", ErrInvalid)
		}
		if s.Level.Rank() == 0 {
			return fmt.Errorf("%w: unknown proficiency %q", ErrInvalid, s.Level)
		}
	}
	return nil
}

// Validate checks the invariants a stored project must hold.
func (p Project) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: project id is required", ErrInvalid)
	case strings.TrimSpace(p.OrganizationID) == "":
		return fmt.Errorf("%w: organization id is required", ErrInvalid)
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalid)
	case p.Capacity < 0 || p.AppliedCount < 0:
		return fmt.Errorf("%w: capacity and applied count must not be negative", ErrInvalid)
	case p.HoursPerWeek < 0 || p.DurationWeeks < 0:
		return fmt.Errorf("%w: hours and duration must not be negative", ErrInvalid)
	case !p.Status.Valid():
		return fmt.Errorf("%w: unknown project status %q", ErrInvalid, p.Status)
	case p.Location != nil && !p.Location.Valid():
		return fmt.Errorf("%w: project location out of range", ErrInvalid)
	}
	for _, s := range p.Skills {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: skill name is required", ErrInvalid)
		}
		if s.Level.Rank() == 0 {
			return fmt.Errorf("%w: unknown proficiency %q", ErrInvalid, s.Level)
		}
	}
	return nil
}
